package psocache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/psocache/pipeline"
)

// mockPipeline records how often it was destroyed.
type mockPipeline struct {
	id        int64
	destroyed atomic.Int32
}

func (p *mockPipeline) Destroy() { p.destroyed.Add(1) }

// mockDevice counts native creations. Each call sleeps for delay, then
// fails with fail if set.
type mockDevice struct {
	delay     time.Duration
	fail      error
	nilResult bool

	graphicsCalls atomic.Int64
	computeCalls  atomic.Int64

	mu      sync.Mutex
	created []*mockPipeline
}

func (d *mockDevice) CreateGraphicsPipeline(*pipeline.GraphicsDescriptor) (Pipeline, error) {
	d.graphicsCalls.Add(1)
	return d.create()
}

func (d *mockDevice) CreateComputePipeline(*pipeline.ComputeDescriptor) (Pipeline, error) {
	d.computeCalls.Add(1)
	return d.create()
}

func (d *mockDevice) create() (Pipeline, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.fail != nil {
		return nil, d.fail
	}
	if d.nilResult {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	p := &mockPipeline{id: int64(len(d.created) + 1)}
	d.created = append(d.created, p)
	return p, nil
}

func (d *mockDevice) calls() int64 { return d.graphicsCalls.Load() + d.computeCalls.Load() }

func (d *mockDevice) pipelines() []*mockPipeline {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*mockPipeline(nil), d.created...)
}

var errDeviceLost = errors.New("device lost")

// testShader returns a prehashed compute shader.
func testShader(hash uint64) *pipeline.Shader {
	return pipeline.NewPrehashedShader(pipeline.StageCompute, "cs", "cs_main", hash, nil)
}

// testInitializer returns a graphics initializer with vertex and pixel
// shaders of the given hashes and one BGRA8 render target.
func testInitializer(vsHash, psHash uint64) *pipeline.GraphicsInitializer {
	gi := &pipeline.GraphicsInitializer{
		Label: "test-pipeline",
		VertexDeclaration: pipeline.NewVertexDeclaration(gputypes.VertexBufferLayout{
			ArrayStride: 16,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{ShaderLocation: 0, Format: gputypes.VertexFormatFloat32x2, Offset: 0},
				{ShaderLocation: 1, Format: gputypes.VertexFormatFloat32x2, Offset: 8},
			},
		}),
		Rasterizer: pipeline.RasterizerState{
			CullMode:  gputypes.CullModeNone,
			FrontFace: gputypes.FrontFaceCCW,
		},
		PrimitiveType:    pipeline.PrimitiveTriangleList,
		NumRenderTargets: 1,
		NumSamples:       1,
	}
	gi.Shaders.Set(pipeline.NewPrehashedShader(pipeline.StageVertex, "vs", "vs_main", vsHash, nil))
	gi.Shaders.Set(pipeline.NewPrehashedShader(pipeline.StagePixel, "ps", "fs_main", psHash, nil))
	gi.RenderTargetFormats[0] = gputypes.TextureFormatBGRA8Unorm
	gi.Blend.Targets[0] = pipeline.TargetBlend{
		Enabled: true,
		Color: pipeline.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: pipeline.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		WriteMask: gputypes.ColorWriteMaskAll,
	}
	return gi
}
