package psocache

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache/pipeline"
)

// Default shader entry points when a shader does not name one.
const (
	defaultVertexEntry   = "vs_main"
	defaultFragmentEntry = "fs_main"
	defaultComputeEntry  = "cs_main"
)

// HALDevice creates native pipelines on a wgpu hal.Device.
//
// WebGPU has no geometry, hull or domain stages; descriptors using them
// fail with ErrUnsupportedStage, which the cache records as a failed entry.
type HALDevice struct {
	device hal.Device
}

// NewHALDevice wraps a hal.Device.
func NewHALDevice(device hal.Device) (*HALDevice, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &HALDevice{device: device}, nil
}

// NewHALDeviceFromProvider extracts the hal.Device from a gpucontext
// device provider, such as the one a gogpu application exposes.
// The provider must implement HalDevice() any.
func NewHALDeviceFromProvider(provider gpucontext.DeviceProvider) (*HALDevice, error) {
	if provider == nil {
		return nil, ErrNilDevice
	}
	type halProvider interface {
		HalDevice() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHALDevice, hp.HalDevice())
	}
	return NewHALDevice(device)
}

// Raw returns the underlying hal.Device.
func (d *HALDevice) Raw() hal.Device { return d.device }

// CreateGraphicsPipeline implements Device.
func (d *HALDevice) CreateGraphicsPipeline(desc *pipeline.GraphicsDescriptor) (Pipeline, error) {
	halDesc, err := renderPipelineDescriptor(desc)
	if err != nil {
		return nil, err
	}
	p, err := d.device.CreateRenderPipeline(halDesc)
	if err != nil {
		return nil, fmt.Errorf("create render pipeline %q: %w", desc.Label, err)
	}
	return &HALRenderPipeline{device: d.device, pipeline: p}, nil
}

// CreateComputePipeline implements Device.
func (d *HALDevice) CreateComputePipeline(desc *pipeline.ComputeDescriptor) (Pipeline, error) {
	if desc.Shader == nil || desc.Shader.Module == nil {
		return nil, fmt.Errorf("%w: compute pipeline %q has no shader module", ErrNilShader, desc.Label)
	}
	p, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout(desc.RootSignature),
		Compute: hal.ComputeState{
			Module:     desc.Shader.Module,
			EntryPoint: entryPoint(desc.Shader, defaultComputeEntry),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline %q: %w", desc.Label, err)
	}
	return &HALComputePipeline{device: d.device, pipeline: p}, nil
}

// renderPipelineDescriptor translates desc into its hal form.
func renderPipelineDescriptor(desc *pipeline.GraphicsDescriptor) (*hal.RenderPipelineDescriptor, error) {
	for _, st := range []pipeline.Stage{pipeline.StageGeometry, pipeline.StageHull, pipeline.StageDomain} {
		if desc.Shaders.Get(st) != nil {
			return nil, fmt.Errorf("%w: %s shader", ErrUnsupportedStage, st)
		}
	}
	topology, ok := desc.PrimitiveType.GPUTopology()
	if !ok {
		return nil, fmt.Errorf("%w: patch list topology", ErrUnsupportedStage)
	}

	vs := desc.Shaders.Vertex
	if vs == nil || vs.Module == nil {
		return nil, fmt.Errorf("%w: render pipeline %q has no vertex module", ErrNilShader, desc.Label)
	}

	halDesc := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout(desc.RootSignature),
		Vertex: hal.VertexState{
			Module:     vs.Module,
			EntryPoint: entryPoint(vs, defaultVertexEntry),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  topology,
			FrontFace:      desc.Rasterizer.FrontFace,
			CullMode:       desc.Rasterizer.CullMode,
			UnclippedDepth: desc.Rasterizer.UnclippedDepth,
		},
		Multisample: multisampleState(desc),
	}
	if desc.VertexDeclaration != nil {
		halDesc.Vertex.Buffers = desc.VertexDeclaration.Buffers()
	}

	if ps := desc.Shaders.Pixel; ps != nil {
		if ps.Module == nil {
			return nil, fmt.Errorf("%w: render pipeline %q has no fragment module", ErrNilShader, desc.Label)
		}
		n := desc.ActiveRenderTargets()
		targets := make([]gputypes.ColorTargetState, n)
		for i := range n {
			t := &desc.Blend.Targets[i]
			targets[i] = gputypes.ColorTargetState{
				Format:    desc.RenderTargetFormats[i],
				Blend:     t.GPUBlend(),
				WriteMask: t.WriteMask,
			}
		}
		halDesc.Fragment = &hal.FragmentState{
			Module:     ps.Module,
			EntryPoint: entryPoint(ps, defaultFragmentEntry),
			Targets:    targets,
		}
	}

	if desc.DepthStencilFormat != gputypes.TextureFormatUndefined {
		ds := &desc.DepthStencil
		halDesc.DepthStencil = &hal.DepthStencilState{
			Format:              desc.DepthStencilFormat,
			DepthWriteEnabled:   ds.DepthWriteEnabled,
			DepthCompare:        ds.DepthCompare,
			StencilFront:        ds.StencilFront,
			StencilBack:         ds.StencilBack,
			StencilReadMask:     ds.StencilReadMask,
			StencilWriteMask:    ds.StencilWriteMask,
			DepthBias:           desc.Rasterizer.DepthBias,
			DepthBiasSlopeScale: desc.Rasterizer.DepthBiasSlopeScale,
			DepthBiasClamp:      desc.Rasterizer.DepthBiasClamp,
		}
	}
	return halDesc, nil
}

// multisampleState maps sample count, mask and alpha-to-coverage. A zero
// count means one sample and a zero mask means all samples.
func multisampleState(desc *pipeline.GraphicsDescriptor) gputypes.MultisampleState {
	ms := gputypes.MultisampleState{
		Count:                  desc.Sample.Count,
		Mask:                   0xFFFFFFFF,
		AlphaToCoverageEnabled: desc.Blend.AlphaToCoverage,
	}
	if ms.Count == 0 {
		ms.Count = 1
	}
	if desc.SampleMask != 0 {
		ms.Mask = uint64(desc.SampleMask)
	}
	return ms
}

func pipelineLayout(rs *pipeline.RootSignature) hal.PipelineLayout {
	if rs == nil {
		return nil
	}
	return rs.Layout
}

func entryPoint(s *pipeline.Shader, fallback string) string {
	if s.EntryPoint == "" {
		return fallback
	}
	return s.EntryPoint
}

// HALRenderPipeline is a render pipeline created by HALDevice.
type HALRenderPipeline struct {
	device   hal.Device
	pipeline hal.RenderPipeline
	once     sync.Once
}

// Raw returns the underlying hal.RenderPipeline.
func (p *HALRenderPipeline) Raw() hal.RenderPipeline { return p.pipeline }

// Destroy releases the pipeline. Subsequent calls are no-ops.
func (p *HALRenderPipeline) Destroy() {
	p.once.Do(func() {
		p.device.DestroyRenderPipeline(p.pipeline)
	})
}

// HALComputePipeline is a compute pipeline created by HALDevice.
type HALComputePipeline struct {
	device   hal.Device
	pipeline hal.ComputePipeline
	once     sync.Once
}

// Raw returns the underlying hal.ComputePipeline.
func (p *HALComputePipeline) Raw() hal.ComputePipeline { return p.pipeline }

// Destroy releases the pipeline. Subsequent calls are no-ops.
func (p *HALComputePipeline) Destroy() {
	p.once.Do(func() {
		p.device.DestroyComputePipeline(p.pipeline)
	})
}
