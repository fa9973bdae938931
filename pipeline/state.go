// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Limits shared by initializers and descriptors.
const (
	// MaxRenderTargets is the number of simultaneous color attachments.
	MaxRenderTargets = 8

	// MaxVertexBuffers is the number of vertex streams tracked per pipeline.
	MaxVertexBuffers = 8
)

// BlendComponent describes a blend equation for color or alpha.
type BlendComponent struct {
	SrcFactor gputypes.BlendFactor
	DstFactor gputypes.BlendFactor
	Operation gputypes.BlendOperation
}

// TargetBlend is the blend configuration of one render target.
type TargetBlend struct {
	// Enabled turns blending on. When false, Color and Alpha are ignored
	// by the native layer but still participate in hashing.
	Enabled bool

	Color BlendComponent
	Alpha BlendComponent

	// WriteMask selects the channels written to the target.
	WriteMask gputypes.ColorWriteMask
}

// GPUBlend converts the target blend into the gputypes form used by the
// HAL, or nil when blending is disabled.
func (t TargetBlend) GPUBlend() *gputypes.BlendState {
	if !t.Enabled {
		return nil
	}
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: t.Color.SrcFactor,
			DstFactor: t.Color.DstFactor,
			Operation: t.Color.Operation,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: t.Alpha.SrcFactor,
			DstFactor: t.Alpha.DstFactor,
			Operation: t.Alpha.Operation,
		},
	}
}

// BlendState is the output-merger blend block.
type BlendState struct {
	AlphaToCoverage bool
	Targets         [MaxRenderTargets]TargetBlend
}

// RasterizerState is the fixed-function rasterizer block.
type RasterizerState struct {
	CullMode            gputypes.CullMode
	FrontFace           gputypes.FrontFace
	DepthBias           int32
	DepthBiasSlopeScale float32
	DepthBiasClamp      float32
	UnclippedDepth      bool
}

// DepthStencilState is the depth and stencil test block.
type DepthStencilState struct {
	DepthWriteEnabled bool
	DepthCompare      gputypes.CompareFunction
	StencilFront      hal.StencilFaceState
	StencilBack       hal.StencilFaceState
	StencilReadMask   uint32
	StencilWriteMask  uint32
}

// SampleDesc is the multisample count and quality level.
type SampleDesc struct {
	Count   uint32
	Quality uint32
}

// PrimitiveType is the primitive assembly a caller draws with.
type PrimitiveType uint8

// Primitive types.
const (
	PrimitiveTriangleList PrimitiveType = iota
	PrimitiveTriangleStrip
	PrimitiveLineList
	PrimitiveLineStrip
	PrimitivePointList
	PrimitivePatchList
)

// TopologyClass is the coarse topology a pipeline is compiled for.
type TopologyClass uint8

// Topology classes.
const (
	TopologyUndefined TopologyClass = iota
	TopologyPoint
	TopologyLine
	TopologyTriangle
	TopologyPatch
)

// Class returns the topology class of the primitive type.
func (p PrimitiveType) Class() TopologyClass {
	switch p {
	case PrimitiveTriangleList, PrimitiveTriangleStrip:
		return TopologyTriangle
	case PrimitiveLineList, PrimitiveLineStrip:
		return TopologyLine
	case PrimitivePointList:
		return TopologyPoint
	case PrimitivePatchList:
		return TopologyPatch
	default:
		return TopologyUndefined
	}
}

// GPUTopology maps the primitive type onto a WebGPU topology. Patch lists
// have no WebGPU equivalent and report false.
func (p PrimitiveType) GPUTopology() (gputypes.PrimitiveTopology, bool) {
	switch p {
	case PrimitiveTriangleList:
		return gputypes.PrimitiveTopologyTriangleList, true
	case PrimitiveTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip, true
	case PrimitiveLineList:
		return gputypes.PrimitiveTopologyLineList, true
	case PrimitiveLineStrip:
		return gputypes.PrimitiveTopologyLineStrip, true
	case PrimitivePointList:
		return gputypes.PrimitiveTopologyPointList, true
	default:
		return gputypes.PrimitiveTopologyTriangleList, false
	}
}

// CreationFlags alter how the native layer builds a pipeline.
type CreationFlags uint32

// Creation flags.
const (
	// FlagDebug asks the native layer to keep debug information.
	FlagDebug CreationFlags = 1 << iota
)
