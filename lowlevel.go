package psocache

import (
	"sync"

	"github.com/gogpu/psocache/pipeline"
)

// lowLevelCache maps descriptor content to entries. Buckets are keyed by
// the combined hash; entries within a bucket are told apart by their
// identity projection, so hash collisions never merge distinct pipelines.
//
// The lock is held only for map access. Native creation always happens
// after it is released.
type lowLevelCache struct {
	kind    pipeline.Kind
	mu      sync.RWMutex
	entries map[uint64][]*Entry
	count   int
	closed  bool
}

func newLowLevelCache(kind pipeline.Kind) *lowLevelCache {
	return &lowLevelCache{
		kind:    kind,
		entries: make(map[uint64][]*Entry),
	}
}

// keyPool recycles projection buffers used for lookups.
var keyPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 512)
		return &b
	},
}

// checkDescriptor enforces the lookup preconditions.
func (c *lowLevelCache) checkDescriptor(desc pipeline.Descriptor) uint64 {
	if desc.Kind() != c.kind {
		panic("psocache: descriptor kind does not match cache")
	}
	hash := desc.CombinedHash()
	if hash == 0 {
		panic("psocache: descriptor hash not computed; call Finalize first")
	}
	return hash
}

// lookupLocked returns the entry whose projection equals key.
// The caller holds c.mu.
func (c *lowLevelCache) lookupLocked(hash uint64, key []byte) *Entry {
	for _, e := range c.entries[hash] {
		if e.key == string(key) {
			return e
		}
	}
	return nil
}

// find returns the entry for desc, or nil.
func (c *lowLevelCache) find(desc pipeline.Descriptor) *Entry {
	hash := c.checkDescriptor(desc)

	bp := keyPool.Get().(*[]byte)
	key := desc.AppendProjection((*bp)[:0])

	c.mu.RLock()
	e := c.lookupLocked(hash, key)
	c.mu.RUnlock()

	*bp = key
	keyPool.Put(bp)
	return e
}

// insert returns the entry for desc, creating it with newFn if absent.
// inserted reports whether this call created the entry. ok is false once
// teardown has run, in which case nothing is inserted. newFn runs under
// the write lock and must not block.
func (c *lowLevelCache) insert(desc pipeline.Descriptor, newFn func(key string) *Entry) (e *Entry, inserted, ok bool) {
	hash := c.checkDescriptor(desc)

	bp := keyPool.Get().(*[]byte)
	key := desc.AppendProjection((*bp)[:0])
	defer func() {
		*bp = key
		keyPool.Put(bp)
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false, false
	}
	// Another goroutine may have inserted between find and insert.
	if e := c.lookupLocked(hash, key); e != nil {
		return e, false, true
	}

	e = newFn(string(key))
	c.entries[hash] = append(c.entries[hash], e)
	c.count++
	return e, true, true
}

// len returns the number of entries.
func (c *lowLevelCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.count
}

// teardown destroys and removes every entry under the write lock and
// rejects later inserts. It returns the number of entries destroyed.
func (c *lowLevelCache) teardown() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	n := c.count
	for hash, bucket := range c.entries {
		for _, e := range bucket {
			e.destroy()
		}
		delete(c.entries, hash)
	}
	c.count = 0
	return n
}

// cloneDescriptor returns a private copy of desc so that later caller
// mutations cannot change a cached entry.
func cloneDescriptor(desc pipeline.Descriptor) pipeline.Descriptor {
	switch d := desc.(type) {
	case *pipeline.GraphicsDescriptor:
		c := *d
		return &c
	case *pipeline.ComputeDescriptor:
		c := *d
		return &c
	default:
		panic("psocache: unknown descriptor type")
	}
}
