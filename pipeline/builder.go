// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

// BuildGraphicsDescriptor converts an initializer into a canonical,
// finalized descriptor.
//
// The descriptor starts from its zero value so absent stages and unused
// render-target slots stay zero. Topology is TopologyPatch when both hull
// and domain shaders are bound, otherwise it follows gi.PrimitiveType.
// No validation is performed; malformed input is passed through.
func BuildGraphicsDescriptor(gi *GraphicsInitializer, rootSig *RootSignature) *GraphicsDescriptor {
	d := &GraphicsDescriptor{}

	d.Label = gi.Label
	d.RootSignature = rootSig
	d.RootSignatureID = rootSig.ID()
	d.Shaders = gi.Shaders
	for st := StageVertex; st < Stage(NumGraphicsStages); st++ {
		d.StageHashes[st] = gi.Shaders.Get(st).Hash()
	}

	d.VertexDeclaration = gi.VertexDeclaration
	d.VertexLayoutHash = gi.VertexDeclaration.Hash()

	d.Blend = gi.Blend
	d.Rasterizer = gi.Rasterizer
	d.DepthStencil = gi.DepthStencil

	d.PrimitiveType = gi.PrimitiveType
	if gi.Shaders.Hull != nil && gi.Shaders.Domain != nil {
		d.Topology = TopologyPatch
	} else {
		d.Topology = gi.PrimitiveType.Class()
	}

	d.NumRenderTargets = gi.NumRenderTargets
	d.RenderTargetFormats = gi.RenderTargetFormats
	d.DepthStencilFormat = gi.DepthStencilFormat

	d.Sample = SampleDesc{Count: gi.NumSamples, Quality: gi.SampleQuality}
	d.SampleMask = gi.SampleMask
	d.NodeMask = gi.NodeMask
	d.Flags = gi.Flags

	d.Finalize()
	return d
}

// BuildComputeDescriptor builds a finalized compute descriptor.
func BuildComputeDescriptor(cs *Shader, rootSig *RootSignature, nodeMask uint32, flags CreationFlags) *ComputeDescriptor {
	d := &ComputeDescriptor{
		RootSignature:   rootSig,
		Shader:          cs,
		RootSignatureID: rootSig.ID(),
		ShaderHash:      cs.Hash(),
		NodeMask:        nodeMask,
		Flags:           flags,
	}
	if cs != nil {
		d.Label = cs.Label
	}
	d.Finalize()
	return d
}
