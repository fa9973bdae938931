package psocache

import (
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/psocache/pipeline"
)

// GraphicsPipelineState is a reference-counted handle returned by graphics
// lookups. It wraps a low-level Entry together with a copy of the
// initializer it was requested with.
//
// The runtime cache owns one reference to every handle it holds. Callers
// that keep a handle past Cache.Teardown take their own reference with
// AddRef and drop it with Release.
type GraphicsPipelineState struct {
	initializer pipeline.GraphicsInitializer
	rootSig     *pipeline.RootSignature
	hash        uint64
	entry       *Entry
	stages      pipeline.StageMask
	strides     [pipeline.MaxVertexBuffers]uint64
	refs        atomic.Int32
}

// newGraphicsPipelineState returns a handle holding one reference.
func newGraphicsPipelineState(gi *pipeline.GraphicsInitializer, rootSig *pipeline.RootSignature, hash uint64, e *Entry) *GraphicsPipelineState {
	s := &GraphicsPipelineState{
		initializer: *gi,
		rootSig:     rootSig,
		hash:        hash,
		entry:       e,
		stages:      gi.Shaders.Mask(),
	}
	if gi.VertexDeclaration != nil {
		s.strides = gi.VertexDeclaration.Strides()
	}
	s.refs.Store(1)
	e.runtimeRefs.Add(1)
	return s
}

// Pipeline resolves the wrapped entry. See Entry.Resolve.
func (s *GraphicsPipelineState) Pipeline() (Pipeline, error) { return s.entry.Resolve() }

// Entry returns the low-level entry. The entry is owned by the cache.
func (s *GraphicsPipelineState) Entry() *Entry { return s.entry }

// Initializer returns a copy of the initializer the handle was created for.
func (s *GraphicsPipelineState) Initializer() pipeline.GraphicsInitializer { return s.initializer }

// RootSignature returns the root signature the pipeline was built for.
func (s *GraphicsPipelineState) RootSignature() *pipeline.RootSignature { return s.rootSig }

// matches reports whether the handle serves gi with rootSig.
func (s *GraphicsPipelineState) matches(gi *pipeline.GraphicsInitializer, rootSig *pipeline.RootSignature) bool {
	return s.rootSig == rootSig && s.initializer.SamePipeline(gi)
}

// BoundShaders returns the set of shader stages present in the pipeline.
func (s *GraphicsPipelineState) BoundShaders() pipeline.StageMask { return s.stages }

// StreamStrides returns the per-slot vertex buffer strides.
func (s *GraphicsPipelineState) StreamStrides() [pipeline.MaxVertexBuffers]uint64 { return s.strides }

// AddRef takes an additional reference.
func (s *GraphicsPipelineState) AddRef() { s.refs.Add(1) }

// RefCount returns the current reference count.
func (s *GraphicsPipelineState) RefCount() int32 { return s.refs.Load() }

// Release drops one reference. When the last reference goes the handle
// detaches from its entry; the entry itself stays in the low-level cache.
// Releasing more references than were taken panics.
func (s *GraphicsPipelineState) Release() {
	n := s.refs.Add(-1)
	switch {
	case n == 0:
		s.entry.runtimeRefs.Add(-1)
	case n < 0:
		panic("psocache: GraphicsPipelineState released too many times")
	}
}

// runtimeCache is the layer above the graphics low-level cache that skips
// building a descriptor for repeated requests. Handles are bucketed by
// initializer content hash and matched by full comparison, so it holds one
// handle per distinct (initializer content, root signature) pair no matter
// how many initializer objects callers construct. A miss always falls
// through to the low-level cache, which produces the same entry.
type runtimeCache struct {
	mu      sync.RWMutex
	handles map[uint64][]*GraphicsPipelineState

	// bounded replaces handles when a capacity is configured. Capacity
	// counts hash buckets.
	bounded *lru.Cache[uint64, []*GraphicsPipelineState]
	count   int
	closed  bool
}

func newRuntimeCache(capacity int) (*runtimeCache, error) {
	rc := &runtimeCache{}
	if capacity == 0 {
		rc.handles = make(map[uint64][]*GraphicsPipelineState)
		return rc, nil
	}

	bounded, err := lru.NewWithEvict(capacity, rc.evict)
	if err != nil {
		return nil, fmt.Errorf("psocache: runtime cache: %w", err)
	}
	rc.bounded = bounded
	return rc, nil
}

// evict releases the cache's reference to every handle in an evicted
// bucket. The LRU only evicts inside add and teardown, which hold rc.mu.
func (rc *runtimeCache) evict(_ uint64, bucket []*GraphicsPipelineState) {
	rc.count -= len(bucket)
	for _, s := range bucket {
		s.Release()
	}
}

// bucketLocked returns the handles stored under hash. The caller holds rc.mu.
func (rc *runtimeCache) bucketLocked(hash uint64) []*GraphicsPipelineState {
	if rc.bounded != nil {
		bucket, _ := rc.bounded.Get(hash)
		return bucket
	}
	return rc.handles[hash]
}

func lookupHandle(bucket []*GraphicsPipelineState, gi *pipeline.GraphicsInitializer, rootSig *pipeline.RootSignature) *GraphicsPipelineState {
	for _, s := range bucket {
		if s.matches(gi, rootSig) {
			return s
		}
	}
	return nil
}

// find returns the handle for gi and rootSig, or nil.
func (rc *runtimeCache) find(hash uint64, gi *pipeline.GraphicsInitializer, rootSig *pipeline.RootSignature) *GraphicsPipelineState {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return lookupHandle(rc.bucketLocked(hash), gi, rootSig)
}

// add returns the cached handle for gi and rootSig, inserting a new one
// wrapping e if none matches. The cache keeps the handle's initial
// reference. Once the cache is closed, add returns an uncached handle owned
// by the caller.
func (rc *runtimeCache) add(hash uint64, gi *pipeline.GraphicsInitializer, rootSig *pipeline.RootSignature, e *Entry) *GraphicsPipelineState {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.closed {
		return newGraphicsPipelineState(gi, rootSig, hash, e)
	}

	bucket := rc.bucketLocked(hash)
	if s := lookupHandle(bucket, gi, rootSig); s != nil {
		return s
	}

	s := newGraphicsPipelineState(gi, rootSig, hash, e)
	bucket = append(bucket[:len(bucket):len(bucket)], s)
	rc.count++
	if rc.bounded != nil {
		rc.bounded.Add(hash, bucket)
	} else {
		rc.handles[hash] = bucket
	}
	return s
}

// len returns the number of cached handles.
func (rc *runtimeCache) len() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.count
}

// teardown releases every handle the cache owns. Handles still referenced
// by callers are reported through leaked; they keep their entry pointer
// but the entry is destroyed right after.
func (rc *runtimeCache) teardown(leaked func(*GraphicsPipelineState)) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.closed {
		return 0
	}
	rc.closed = true

	n := rc.count
	report := func(bucket []*GraphicsPipelineState) {
		for _, s := range bucket {
			if s.RefCount() != 1 {
				leaked(s)
			}
		}
	}

	if rc.bounded != nil {
		for _, hash := range rc.bounded.Keys() {
			if bucket, ok := rc.bounded.Peek(hash); ok {
				report(bucket)
			}
		}
		// Purge runs the eviction callback, which releases each handle.
		rc.bounded.Purge()
		return n
	}

	for hash, bucket := range rc.handles {
		report(bucket)
		for _, s := range bucket {
			s.Release()
		}
		delete(rc.handles, hash)
	}
	rc.count = 0
	return n
}
