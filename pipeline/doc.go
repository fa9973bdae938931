// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipeline describes GPU pipeline state and turns it into canonical,
// hashable descriptors.
//
// # Data Model
//
// Callers describe a draw-time pipeline with a [GraphicsInitializer]:
// shader references per stage, a [VertexDeclaration], the fixed-function
// state blocks ([BlendState], [RasterizerState], [DepthStencilState]),
// render-target formats and sample settings. Compute pipelines need only a
// compute [Shader].
//
// Shaders and vertex declarations arrive pre-hashed. This package never
// hashes shader bytecode during descriptor construction; it reads the
// content hash the upstream object computed once.
//
// # Descriptor Builder
//
// [BuildGraphicsDescriptor] and [BuildComputeDescriptor] are pure functions.
// They start from a zero descriptor, copy every identity-relevant field, and
// finish by computing the combined hash exactly once.
//
//	desc := pipeline.BuildGraphicsDescriptor(&gi, rootSig)
//	hash := desc.CombinedHash() // never zero
//
// # Structural Hasher
//
// The hasher serializes a padding-free projection of the descriptor into a
// little-endian byte buffer and feeds it to farmhash. Pointer fields
// (shader objects, vertex declaration object, labels) are not part of the
// projection; their content hashes are. The root signature contributes its
// ID, because a native pipeline is compiled against one layout. Only the
// first NumRenderTargets render-target slots contribute, so unused trailing
// slots never affect the result.
//
// The projection is also the equality key: two descriptors are the same
// pipeline iff their projections are byte-identical.
package pipeline
