// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import "github.com/gogpu/gputypes"

// BoundShaders holds the shader bound to each graphics stage. Absent
// stages are nil.
type BoundShaders struct {
	Vertex   *Shader
	Pixel    *Shader
	Geometry *Shader
	Hull     *Shader
	Domain   *Shader
}

// Get returns the shader bound to the stage, or nil.
func (b *BoundShaders) Get(stage Stage) *Shader {
	switch stage {
	case StageVertex:
		return b.Vertex
	case StagePixel:
		return b.Pixel
	case StageGeometry:
		return b.Geometry
	case StageHull:
		return b.Hull
	case StageDomain:
		return b.Domain
	default:
		return nil
	}
}

// Set binds s to its own stage. Compute shaders are ignored.
func (b *BoundShaders) Set(s *Shader) {
	if s == nil {
		return
	}
	switch s.Stage {
	case StageVertex:
		b.Vertex = s
	case StagePixel:
		b.Pixel = s
	case StageGeometry:
		b.Geometry = s
	case StageHull:
		b.Hull = s
	case StageDomain:
		b.Domain = s
	}
}

// Mask returns a bit set with bit i set when Stage(i) is bound.
func (b *BoundShaders) Mask() StageMask {
	var m StageMask
	for st := StageVertex; st < Stage(NumGraphicsStages); st++ {
		if b.Get(st) != nil {
			m |= 1 << st
		}
	}
	return m
}

// StageMask is a bit set of shader stages.
type StageMask uint8

// Has reports whether the stage bit is set.
func (m StageMask) Has(stage Stage) bool {
	return m&(1<<stage) != 0
}

// GraphicsInitializer is the caller-facing description of a graphics
// pipeline. It is a comparable value: two initializers with equal fields
// compare equal with ==.
type GraphicsInitializer struct {
	// Label is a debug name. It is not part of pipeline identity.
	Label string

	Shaders           BoundShaders
	VertexDeclaration *VertexDeclaration

	Blend        BlendState
	Rasterizer   RasterizerState
	DepthStencil DepthStencilState

	PrimitiveType PrimitiveType

	NumRenderTargets    uint32
	RenderTargetFormats [MaxRenderTargets]gputypes.TextureFormat
	DepthStencilFormat  gputypes.TextureFormat

	NumSamples    uint32
	SampleQuality uint32
	SampleMask    uint32

	NodeMask uint32
	Flags    CreationFlags
}

// SamePipeline reports whether gi and o describe the same pipeline, using
// the same notion of identity as HashInitializer. Shaders and vertex
// declarations compare by content hash, so separately constructed but
// identical objects match. Labels and render-target slots past
// NumRenderTargets are ignored.
func (gi *GraphicsInitializer) SamePipeline(o *GraphicsInitializer) bool {
	if gi == o {
		return true
	}
	for st := StageVertex; st < Stage(NumGraphicsStages); st++ {
		if gi.Shaders.Get(st).Hash() != o.Shaders.Get(st).Hash() {
			return false
		}
	}
	if gi.VertexDeclaration.Hash() != o.VertexDeclaration.Hash() {
		return false
	}
	return gi.valueFields() == o.valueFields()
}

// valueFields returns a copy of gi with references, the label and unused
// render-target slots cleared.
func (gi *GraphicsInitializer) valueFields() GraphicsInitializer {
	c := *gi
	c.Label = ""
	c.Shaders = BoundShaders{}
	c.VertexDeclaration = nil
	for i := min(int(c.NumRenderTargets), MaxRenderTargets); i < MaxRenderTargets; i++ {
		c.RenderTargetFormats[i] = gputypes.TextureFormatUndefined
		c.Blend.Targets[i] = TargetBlend{}
	}
	return c
}
