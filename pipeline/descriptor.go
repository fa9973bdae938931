// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import "github.com/gogpu/gputypes"

// Kind distinguishes graphics and compute descriptors.
type Kind uint8

// Descriptor kinds.
const (
	KindGraphics Kind = iota
	KindCompute
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGraphics:
		return "graphics"
	case KindCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// Descriptor is a canonical pipeline description ready for caching.
type Descriptor interface {
	// Kind reports whether this is a graphics or compute descriptor.
	Kind() Kind

	// CombinedHash returns the structural hash, or zero if the descriptor
	// has not been finalized.
	CombinedHash() uint64

	// AppendProjection appends the identity-relevant bytes of the
	// descriptor to dst. Equal projections mean equal pipelines.
	AppendProjection(dst []byte) []byte
}

// GraphicsDescriptor is the canonical form of a graphics pipeline.
//
// Reference fields (RootSignature, Shaders, VertexDeclaration, Label) are
// carried for the native layer but are not part of pipeline identity. The
// identity-relevant parts of the references are captured as hashes and IDs.
type GraphicsDescriptor struct {
	Label             string
	RootSignature     *RootSignature
	Shaders           BoundShaders
	VertexDeclaration *VertexDeclaration

	RootSignatureID  uint64
	StageHashes      [NumGraphicsStages]uint64
	VertexLayoutHash uint64

	Blend        BlendState
	Rasterizer   RasterizerState
	DepthStencil DepthStencilState

	PrimitiveType PrimitiveType
	Topology      TopologyClass

	NumRenderTargets    uint32
	RenderTargetFormats [MaxRenderTargets]gputypes.TextureFormat
	DepthStencilFormat  gputypes.TextureFormat

	Sample     SampleDesc
	SampleMask uint32
	NodeMask   uint32
	Flags      CreationFlags

	combinedHash uint64
}

// Kind implements Descriptor.
func (d *GraphicsDescriptor) Kind() Kind { return KindGraphics }

// CombinedHash implements Descriptor.
func (d *GraphicsDescriptor) CombinedHash() uint64 { return d.combinedHash }

// Finalize computes the combined hash if it has not been computed yet and
// returns it. Once set, the hash is never recomputed, so fields must not be
// modified after Finalize.
func (d *GraphicsDescriptor) Finalize() uint64 {
	if d.combinedHash == 0 {
		d.combinedHash = HashGraphics(d)
	}
	return d.combinedHash
}

// ActiveRenderTargets returns NumRenderTargets clamped to MaxRenderTargets.
func (d *GraphicsDescriptor) ActiveRenderTargets() int {
	if d.NumRenderTargets > MaxRenderTargets {
		return MaxRenderTargets
	}
	return int(d.NumRenderTargets)
}

// ComputeDescriptor is the canonical form of a compute pipeline.
type ComputeDescriptor struct {
	Label         string
	RootSignature *RootSignature
	Shader        *Shader

	RootSignatureID uint64
	ShaderHash      uint64
	NodeMask        uint32
	Flags           CreationFlags

	combinedHash uint64
}

// Kind implements Descriptor.
func (d *ComputeDescriptor) Kind() Kind { return KindCompute }

// CombinedHash implements Descriptor.
func (d *ComputeDescriptor) CombinedHash() uint64 { return d.combinedHash }

// Finalize computes the combined hash once and returns it.
func (d *ComputeDescriptor) Finalize() uint64 {
	if d.combinedHash == 0 {
		d.combinedHash = HashCompute(d)
	}
	return d.combinedHash
}
