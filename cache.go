package psocache

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/psocache/pipeline"
)

// Cache is a two-level pipeline state object cache bound to one device.
//
// The low-level cache maps descriptor content to entries and guarantees
// at most one native pipeline per distinct descriptor. The optional
// runtime cache above it maps initializer content to reference-counted
// handles so repeated lookups skip building a descriptor.
//
// Cache is safe for concurrent use. Native creation never runs under a
// cache lock, so lookups for different pipelines never wait on each other.
type Cache struct {
	device Device
	opts   options

	graphics *lowLevelCache
	compute  *lowLevelCache
	runtime  *runtimeCache // nil when disabled

	stats  counters
	closed atomic.Bool
}

// New creates a cache that creates native pipelines on device.
func New(device Device, opts ...Option) (*Cache, error) {
	if device == nil {
		return nil, ErrNilDevice
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache{
		device:   device,
		opts:     o,
		graphics: newLowLevelCache(pipeline.KindGraphics),
		compute:  newLowLevelCache(pipeline.KindCompute),
	}
	if o.runtimeCache {
		rc, err := newRuntimeCache(o.runtimeCapacity)
		if err != nil {
			return nil, err
		}
		c.runtime = rc
	}
	return c, nil
}

// log returns the per-cache logger, or the package logger.
func (c *Cache) log() *slog.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return Logger()
}

// lowLevel returns the low-level cache for desc's kind.
func (c *Cache) lowLevel(desc pipeline.Descriptor) *lowLevelCache {
	if desc.Kind() == pipeline.KindCompute {
		return c.compute
	}
	return c.graphics
}

// GetOrCreateGraphicsPipeline returns the handle for the pipeline described
// by gi and rootSig. The first request for a given pipeline creates it;
// later requests with field-identical initializers and the same root
// signature share the same entry and native pipeline. Pipelines built for
// different root signatures are distinct, since the native pipeline is
// compiled against the signature's layout.
//
// The returned handle is owned by the runtime cache; call AddRef to keep
// it past Teardown. When the runtime cache is disabled every call returns
// a fresh handle owned by the caller.
//
// Creation failures are cached: the handle is returned and resolving it
// reports the error matching ErrCreationFailed.
func (c *Cache) GetOrCreateGraphicsPipeline(gi *pipeline.GraphicsInitializer, rootSig *pipeline.RootSignature) (*GraphicsPipelineState, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}
	if gi == nil {
		return nil, ErrNilInitializer
	}
	if gi.Shaders.Vertex == nil {
		return nil, fmt.Errorf("%w: graphics pipeline has no vertex stage", ErrNilShader)
	}

	hash := pipeline.HashInitializer(gi)
	if c.runtime != nil {
		if s := c.runtime.find(hash, gi, rootSig); s != nil {
			c.stats.runtimeHits.Add(1)
			return s, nil
		}
		c.stats.runtimeMisses.Add(1)
	}

	desc := pipeline.BuildGraphicsDescriptor(gi, rootSig)
	e := c.FindInLowLevelCache(desc)
	if e == nil {
		var err error
		if e, err = c.CreateAndAddToLowLevelCache(desc, nil); err != nil {
			return nil, err
		}
	}

	if c.runtime != nil {
		return c.runtime.add(hash, gi, rootSig, e), nil
	}
	return newGraphicsPipelineState(gi, rootSig, hash, e), nil
}

// GetOrCreateComputePipeline returns the entry for the compute pipeline
// running cs with rootSig. Two shaders with different content always get
// different entries, as do different root signatures.
func (c *Cache) GetOrCreateComputePipeline(cs *pipeline.Shader, rootSig *pipeline.RootSignature) (*Entry, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}
	if cs == nil {
		return nil, fmt.Errorf("%w: compute pipeline has no shader", ErrNilShader)
	}

	desc := pipeline.BuildComputeDescriptor(cs, rootSig, 0, 0)
	if e := c.FindInLowLevelCache(desc); e != nil {
		return e, nil
	}
	return c.CreateAndAddToLowLevelCache(desc, nil)
}

// FindInLowLevelCache returns the entry for desc, or nil if none exists.
//
// desc must be finalized: a zero combined hash panics. The cache never
// hashes on the caller's behalf.
func (c *Cache) FindInLowLevelCache(desc pipeline.Descriptor) *Entry {
	if c.closed.Load() {
		return nil
	}
	e := c.lowLevel(desc).find(desc)
	if e != nil {
		c.stats.lowLevelHits.Add(1)
	}
	return e
}

// CreateAndAddToLowLevelCache returns the entry for desc, inserting and
// creating it if it is absent.
//
// The entry is inserted under the cache lock, which is released before the
// native pipeline is created. If this call inserted the entry, synchronous
// creation runs on the calling goroutine and onCreated, if non-nil, is
// invoked with the entry afterwards. If another goroutine got there first,
// its entry is returned without any creation work; resolve it to wait.
//
// desc must be finalized. The cache stores its own copy.
func (c *Cache) CreateAndAddToLowLevelCache(desc pipeline.Descriptor, onCreated func(*Entry)) (*Entry, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	ll := c.lowLevel(desc)
	e, inserted, ok := ll.insert(desc, func(key string) *Entry {
		return newEntry(c, cloneDescriptor(desc), key)
	})
	if !ok {
		return nil, ErrCacheClosed
	}
	if !inserted {
		c.stats.lowLevelHits.Add(1)
		return e, nil
	}

	c.stats.lowLevelMisses.Add(1)
	c.log().Debug("psocache: cache miss",
		"kind", e.kind.String(),
		"hash", fmt.Sprintf("%016x", e.hash),
		"async", c.opts.async)

	if !c.opts.async {
		e.createInline()
	}
	if onCreated != nil {
		onCreated(e)
	}
	return e, nil
}

// Teardown releases every runtime handle, then destroys every entry and its
// native pipeline. Runtime handles go first because they point into
// entries. In-flight creations are waited for, never abandoned.
//
// Teardown is safe to call more than once and at any point after New.
// Afterwards lookups return ErrCacheClosed.
func (c *Cache) Teardown() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	var handles int
	if c.runtime != nil {
		handles = c.runtime.teardown(func(s *GraphicsPipelineState) {
			c.stats.leakedHandles.Add(1)
			c.log().Warn("psocache: runtime handle still referenced at teardown",
				"hash", fmt.Sprintf("%016x", s.hash),
				"refs", s.RefCount())
		})
	}

	graphics := c.graphics.teardown()
	compute := c.compute.teardown()

	c.log().Debug("psocache: teardown",
		"runtime_handles", handles,
		"graphics_entries", graphics,
		"compute_entries", compute)
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	s := Stats{
		GraphicsEntries:  c.graphics.len(),
		ComputeEntries:   c.compute.len(),
		LowLevelHits:     c.stats.lowLevelHits.Load(),
		LowLevelMisses:   c.stats.lowLevelMisses.Load(),
		RuntimeHits:      c.stats.runtimeHits.Load(),
		RuntimeMisses:    c.stats.runtimeMisses.Load(),
		Creations:        c.stats.creations.Load(),
		CreationFailures: c.stats.creationFailures.Load(),
		Stalls:           c.stats.stalls.Load(),
		LeakedHandles:    c.stats.leakedHandles.Load(),
	}
	if c.runtime != nil {
		s.RuntimeEntries = c.runtime.len()
	}
	return s
}
