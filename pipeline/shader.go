// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import (
	"sync/atomic"

	farm "github.com/dgryski/go-farm"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Stage identifies a programmable pipeline stage.
type Stage uint8

// Shader stages. The graphics stages come first so they can index
// per-stage arrays of length NumGraphicsStages.
const (
	StageVertex Stage = iota
	StagePixel
	StageGeometry
	StageHull
	StageDomain
	StageCompute
)

// NumGraphicsStages is the number of stages a graphics pipeline can bind.
const NumGraphicsStages = 5

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StagePixel:
		return "pixel"
	case StageGeometry:
		return "geometry"
	case StageHull:
		return "hull"
	case StageDomain:
		return "domain"
	case StageCompute:
		return "compute"
	default:
		return "unknown"
	}
}

// Shader is a compiled shader stage together with its content hash.
//
// The hash is computed once by the constructor and identifies the shader
// for caching purposes. Two shaders with the same bytecode and entry point
// hash identically even if they are distinct objects.
type Shader struct {
	// Label is an optional debug name.
	Label string

	// Stage is the pipeline stage this shader is bound to.
	Stage Stage

	// EntryPoint is the name of the entry function in Code.
	EntryPoint string

	// Code is the compiled bytecode (SPIR-V for the HAL backends).
	Code []byte

	// Module is the native shader module, if one was created.
	Module hal.ShaderModule

	hash uint64
}

// NewShader creates a shader and computes its content hash from the
// bytecode, stage and entry point.
func NewShader(stage Stage, label, entryPoint string, code []byte, module hal.ShaderModule) *Shader {
	e := getEncoder()
	defer putEncoder(e)

	// Only the bytecode digest enters the pooled buffer.
	e.u8(uint8(stage))
	e.str(entryPoint)
	//nolint:gosec // G115: bytecode length fits in 64 bits
	e.u64(uint64(len(code)))
	e.u64(farm.Hash64(code))

	return &Shader{
		Label:      label,
		Stage:      stage,
		EntryPoint: entryPoint,
		Code:       code,
		Module:     module,
		hash:       e.sum(),
	}
}

// NewPrehashedShader creates a shader whose content hash was computed
// elsewhere, for example by an offline shader compiler. A zero hash is
// replaced by 1 because zero means "stage absent" in descriptors.
func NewPrehashedShader(stage Stage, label, entryPoint string, hash uint64, module hal.ShaderModule) *Shader {
	if hash == 0 {
		hash = 1
	}
	return &Shader{
		Label:      label,
		Stage:      stage,
		EntryPoint: entryPoint,
		Module:     module,
		hash:       hash,
	}
}

// Hash returns the shader's content hash. A nil shader hashes to zero.
func (s *Shader) Hash() uint64 {
	if s == nil {
		return 0
	}
	return s.hash
}

// RootSignature describes the resource bindings a pipeline expects.
//
// A native pipeline is compiled against one layout, so the root signature
// is part of pipeline identity. Identity is the object, not its contents:
// each RootSignature gets a process-unique ID on first use, and two
// signatures wrapping the same layout still produce separate pipelines.
// A nil signature has ID zero.
type RootSignature struct {
	// Label is an optional debug name.
	Label string

	// Layout is the native pipeline layout.
	Layout hal.PipelineLayout

	id atomic.Uint64
}

var nextRootSignatureID atomic.Uint64

// NewRootSignature creates a root signature for layout.
func NewRootSignature(label string, layout hal.PipelineLayout) *RootSignature {
	rs := &RootSignature{Label: label, Layout: layout}
	rs.ID()
	return rs
}

// ID returns the signature's identity, assigning it on first call.
func (rs *RootSignature) ID() uint64 {
	if rs == nil {
		return 0
	}
	if id := rs.id.Load(); id != 0 {
		return id
	}
	rs.id.CompareAndSwap(0, nextRootSignatureID.Add(1))
	return rs.id.Load()
}

// VertexDeclaration is an immutable vertex input layout with a precomputed
// content hash.
type VertexDeclaration struct {
	buffers []gputypes.VertexBufferLayout
	hash    uint64
}

// NewVertexDeclaration copies the given buffer layouts and hashes them.
// An empty declaration is valid and hashes to a fixed non-zero value.
func NewVertexDeclaration(buffers ...gputypes.VertexBufferLayout) *VertexDeclaration {
	owned := make([]gputypes.VertexBufferLayout, len(buffers))
	for i := range buffers {
		owned[i] = buffers[i]
		owned[i].Attributes = append([]gputypes.VertexAttribute(nil), buffers[i].Attributes...)
	}

	e := getEncoder()
	defer putEncoder(e)

	//nolint:gosec // G115: vertex buffer count is bounded by GPU limits
	e.u32(uint32(len(owned)))
	for i := range owned {
		layout := &owned[i]
		e.u64(layout.ArrayStride)
		e.u32(uint32(layout.StepMode))
		//nolint:gosec // G115: attribute count is bounded by GPU limits
		e.u32(uint32(len(layout.Attributes)))
		for j := range layout.Attributes {
			attr := &layout.Attributes[j]
			e.u32(attr.ShaderLocation)
			e.u32(uint32(attr.Format))
			e.u64(attr.Offset)
		}
	}

	return &VertexDeclaration{buffers: owned, hash: e.sum()}
}

// Hash returns the layout hash. A nil declaration hashes to zero.
func (v *VertexDeclaration) Hash() uint64 {
	if v == nil {
		return 0
	}
	return v.hash
}

// Buffers returns the buffer layouts. Callers must not modify the result.
func (v *VertexDeclaration) Buffers() []gputypes.VertexBufferLayout {
	if v == nil {
		return nil
	}
	return v.buffers
}

// NumElements returns the total number of vertex attributes.
func (v *VertexDeclaration) NumElements() int {
	if v == nil {
		return 0
	}
	n := 0
	for i := range v.buffers {
		n += len(v.buffers[i].Attributes)
	}
	return n
}

// Strides returns the array stride of each vertex stream. Streams beyond
// MaxVertexBuffers are ignored.
func (v *VertexDeclaration) Strides() [MaxVertexBuffers]uint64 {
	var strides [MaxVertexBuffers]uint64
	if v == nil {
		return strides
	}
	for i := range v.buffers {
		if i >= MaxVertexBuffers {
			break
		}
		strides[i] = v.buffers[i].ArrayStride
	}
	return strides
}
