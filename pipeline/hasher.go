// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"encoding/binary"
	"math"
	"sync"

	farm "github.com/dgryski/go-farm"
	"github.com/gogpu/wgpu/hal"
)

// HashGraphics computes the structural hash of a graphics descriptor.
//
// The result is stable across runs for identical input and is never zero.
// It is not stable across versions of this package, which is fine for a
// process-lifetime cache.
func HashGraphics(d *GraphicsDescriptor) uint64 {
	e := getEncoder()
	defer putEncoder(e)

	e.buf = d.AppendProjection(e.buf)
	return e.sum()
}

// HashCompute computes the structural hash of a compute descriptor.
func HashCompute(d *ComputeDescriptor) uint64 {
	e := getEncoder()
	defer putEncoder(e)

	e.buf = d.AppendProjection(e.buf)
	return e.sum()
}

// HashInitializer hashes the identity-relevant content of an initializer
// without building a descriptor. Initializers that build equal descriptors
// for the same root signature hash equally.
func HashInitializer(gi *GraphicsInitializer) uint64 {
	e := getEncoder()
	defer putEncoder(e)

	topology := gi.PrimitiveType.Class()
	if gi.Shaders.Hull != nil && gi.Shaders.Domain != nil {
		topology = TopologyPatch
	}

	for st := StageVertex; st < Stage(NumGraphicsStages); st++ {
		e.u64(gi.Shaders.Get(st).Hash())
	}
	e.u64(gi.VertexDeclaration.Hash())
	e.fixedState(&gi.Blend, &gi.Rasterizer, &gi.DepthStencil)
	e.u8(uint8(gi.PrimitiveType))
	e.u8(uint8(topology))
	e.u32(uint32(gi.DepthStencilFormat))
	e.u32(gi.NumSamples)
	e.u32(gi.SampleQuality)
	e.u32(gi.SampleMask)
	e.u32(gi.NodeMask)
	e.u32(uint32(gi.Flags))

	n := min(int(gi.NumRenderTargets), MaxRenderTargets)
	e.u32(gi.NumRenderTargets)
	for i := 0; i < n; i++ {
		e.u32(uint32(gi.RenderTargetFormats[i]))
		e.targetBlend(&gi.Blend.Targets[i])
	}
	return e.sum()
}

// AppendProjection implements Descriptor.
//
// Layout: root signature ID, stage hashes, vertex layout hash,
// fixed-function blocks, primitive type and topology class, depth-stencil
// format, sample descriptor, node mask, flags, render-target count, then
// one (format, blend) record per active render target.
func (d *GraphicsDescriptor) AppendProjection(dst []byte) []byte {
	e := encoder{buf: dst}

	e.u64(d.RootSignatureID)
	for _, h := range d.StageHashes {
		e.u64(h)
	}
	e.u64(d.VertexLayoutHash)
	e.fixedState(&d.Blend, &d.Rasterizer, &d.DepthStencil)
	e.u8(uint8(d.PrimitiveType))
	e.u8(uint8(d.Topology))
	e.u32(uint32(d.DepthStencilFormat))
	e.u32(d.Sample.Count)
	e.u32(d.Sample.Quality)
	e.u32(d.SampleMask)
	e.u32(d.NodeMask)
	e.u32(uint32(d.Flags))

	n := d.ActiveRenderTargets()
	e.u32(d.NumRenderTargets)
	for i := 0; i < n; i++ {
		e.u32(uint32(d.RenderTargetFormats[i]))
		e.targetBlend(&d.Blend.Targets[i])
	}
	return e.buf
}

// AppendProjection implements Descriptor.
func (d *ComputeDescriptor) AppendProjection(dst []byte) []byte {
	e := encoder{buf: dst}
	e.u64(d.RootSignatureID)
	e.u64(d.ShaderHash)
	e.u32(d.NodeMask)
	e.u32(uint32(d.Flags))
	return e.buf
}

// =============================================================================
// Encoder
// =============================================================================

// encoder appends fixed-width little-endian fields to a byte buffer.
// Unlike hashing a struct's memory, the output has no padding.
type encoder struct {
	buf []byte
}

// encPool reuses encoders so hashing does not allocate on the hot path.
var encPool = sync.Pool{
	New: func() any { return &encoder{buf: make([]byte, 0, 512)} },
}

func getEncoder() *encoder {
	e := encPool.Get().(*encoder)
	e.buf = e.buf[:0]
	return e
}

func putEncoder(e *encoder) { encPool.Put(e) }

// sum hashes the buffer. Zero is reserved for "not computed".
func (e *encoder) sum() uint64 {
	h := farm.Hash64(e.buf)
	if h == 0 {
		h = 1
	}
	return h
}

func (e *encoder) u8(v uint8) { e.buf = append(e.buf, v) }

func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) f32(v float32) { e.u32(math.Float32bits(v)) }

func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

//nolint:gosec // G115: entry point names are short
func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) stencilFace(f *hal.StencilFaceState) {
	e.u32(uint32(f.Compare))
	e.u32(uint32(f.FailOp))
	e.u32(uint32(f.DepthFailOp))
	e.u32(uint32(f.PassOp))
}

func (e *encoder) blendComponent(c *BlendComponent) {
	e.u32(uint32(c.SrcFactor))
	e.u32(uint32(c.DstFactor))
	e.u32(uint32(c.Operation))
}

func (e *encoder) targetBlend(t *TargetBlend) {
	e.boolean(t.Enabled)
	e.blendComponent(&t.Color)
	e.blendComponent(&t.Alpha)
	e.u32(uint32(t.WriteMask))
}

// fixedState writes the non-per-target parts of the fixed-function blocks.
// Per-target blend state is written with the render-target tail.
func (e *encoder) fixedState(b *BlendState, r *RasterizerState, ds *DepthStencilState) {
	e.boolean(b.AlphaToCoverage)

	e.u32(uint32(r.CullMode))
	e.u32(uint32(r.FrontFace))
	//nolint:gosec // G115: bit pattern of the signed bias is what matters
	e.u32(uint32(r.DepthBias))
	e.f32(r.DepthBiasSlopeScale)
	e.f32(r.DepthBiasClamp)
	e.boolean(r.UnclippedDepth)

	e.boolean(ds.DepthWriteEnabled)
	e.u32(uint32(ds.DepthCompare))
	e.stencilFace(&ds.StencilFront)
	e.stencilFace(&ds.StencilBack)
	e.u32(ds.StencilReadMask)
	e.u32(ds.StencilWriteMask)
}
