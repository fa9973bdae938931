package psocache

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/psocache/pipeline"
)

// EntryStatus is the creation state of a cache entry.
type EntryStatus uint32

// Entry states. Initialized and CreationFailed are terminal.
const (
	StatusUninitialized EntryStatus = iota
	StatusInitialized
	StatusCreationFailed
)

// String returns the status name.
func (s EntryStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitialized:
		return "initialized"
	case StatusCreationFailed:
		return "creation-failed"
	default:
		return "unknown"
	}
}

// creationWorker carries the result of a background pipeline creation.
// pipeline and err are written before done is closed.
type creationWorker struct {
	done     chan struct{}
	pipeline Pipeline
	err      error
}

// Entry is a low-level cache slot holding one lazily created native
// pipeline. Every distinct descriptor maps to exactly one Entry for the
// lifetime of its Cache, and exactly one native pipeline is created per
// Entry no matter how many goroutines resolve it.
//
// The native pipeline is immutable once set and may be read concurrently.
type Entry struct {
	owner *Cache
	desc  pipeline.Descriptor
	key   string // identity projection, breaks hash ties
	hash  uint64
	kind  pipeline.Kind

	status atomic.Uint32
	done   chan struct{} // closed when status becomes terminal

	// mu guards the hand-off from worker to entry. It is never held while
	// waiting on inline creation by another goroutine.
	mu     sync.Mutex
	worker *creationWorker

	pipeline Pipeline
	err      error

	runtimeRefs atomic.Int32
	destroyed   atomic.Bool
	destroyOnce sync.Once
}

// newEntry builds an uninitialized entry for desc. In async mode the
// creation worker starts immediately.
func newEntry(owner *Cache, desc pipeline.Descriptor, key string) *Entry {
	e := &Entry{
		owner: owner,
		desc:  desc,
		key:   key,
		hash:  desc.CombinedHash(),
		kind:  desc.Kind(),
		done:  make(chan struct{}),
	}
	if owner.opts.async {
		w := &creationWorker{done: make(chan struct{})}
		e.worker = w
		go func() {
			w.pipeline, w.err = createNative(owner.device, desc)
			close(w.done)
		}()
	}
	return e
}

// Status returns the current creation state. In async mode an entry stays
// StatusUninitialized until it is first resolved, even if its worker has
// already finished.
func (e *Entry) Status() EntryStatus { return EntryStatus(e.status.Load()) }

// Hash returns the combined descriptor hash the entry is keyed by.
func (e *Entry) Hash() uint64 { return e.hash }

// Kind reports whether the entry holds a graphics or compute pipeline.
func (e *Entry) Kind() pipeline.Kind { return e.kind }

// Descriptor returns the cache's private copy of the descriptor.
// It must not be modified.
func (e *Entry) Descriptor() pipeline.Descriptor { return e.desc }

// IsAsync reports whether the entry was created by a background worker.
func (e *Entry) IsAsync() bool { return e.owner.opts.async }

// Err returns the creation error once the entry has failed, nil otherwise.
func (e *Entry) Err() error {
	if e.Status() != StatusCreationFailed {
		return nil
	}
	return e.err
}

// Resolve returns the native pipeline, waiting for creation to finish if
// needed. A failed entry returns a nil pipeline and an error matching
// ErrCreationFailed on every call; creation is never retried.
func (e *Entry) Resolve() (Pipeline, error) {
	if e.Status() == StatusUninitialized {
		e.mu.Lock()
		w := e.worker
		if w != nil {
			e.wait(w.done)
			e.worker = nil
			e.finish(w.pipeline, w.err)
		}
		e.mu.Unlock()

		if w == nil {
			e.wait(e.done)
		}
	}

	if e.destroyed.Load() {
		return nil, ErrCacheClosed
	}
	if e.Status() == StatusCreationFailed {
		return nil, e.err
	}
	return e.pipeline, nil
}

// createInline runs native creation on the calling goroutine.
// Only the goroutine that inserted a synchronous entry calls it.
func (e *Entry) createInline() {
	p, err := createNative(e.owner.device, e.desc)
	e.finish(p, err)
}

// finish records the creation result and publishes the terminal state.
func (e *Entry) finish(p Pipeline, err error) {
	if err == nil && p == nil {
		err = errNilPipeline
	}

	stats := &e.owner.stats
	stats.creations.Add(1)
	if err != nil {
		e.err = fmt.Errorf("%w: %s pipeline %016x: %w", ErrCreationFailed, e.kind, e.hash, err)
		stats.creationFailures.Add(1)
		e.owner.log().Warn("psocache: pipeline creation failed",
			"kind", e.kind.String(),
			"hash", fmt.Sprintf("%016x", e.hash),
			"error", err)
		e.status.Store(uint32(StatusCreationFailed))
	} else {
		e.pipeline = p
		e.owner.log().Debug("psocache: pipeline created",
			"kind", e.kind.String(),
			"hash", fmt.Sprintf("%016x", e.hash))
		e.status.Store(uint32(StatusInitialized))
	}
	close(e.done)
}

// wait blocks until ready is closed.
//
// Creation usually finishes in well under a millisecond, so wait first
// spins for the configured spin duration, yielding the processor between
// checks, and only then parks on the channel. Stall warnings fire once the
// wait exceeds the stall threshold, which doubles after every warning.
func (e *Entry) wait(ready <-chan struct{}) {
	select {
	case <-ready:
		return
	default:
	}

	opts := &e.owner.opts
	start := time.Now()
	for time.Since(start) < opts.spinDuration {
		select {
		case <-ready:
			return
		default:
		}
		runtime.Gosched()
	}

	threshold := opts.stallThreshold
	timer := time.NewTimer(threshold - time.Since(start))
	defer timer.Stop()
	for {
		select {
		case <-ready:
			return
		case <-timer.C:
			waited := time.Since(start)
			e.owner.stats.stalls.Add(1)
			e.owner.log().Warn("psocache: waiting for pipeline creation",
				"kind", e.kind.String(),
				"hash", fmt.Sprintf("%016x", e.hash),
				"waited", waited,
				"threshold", threshold)
			threshold *= 2
			timer.Reset(threshold - waited)
		}
	}
}

// destroy forces any outstanding creation to finish, then destroys the
// native pipeline. Later Resolve calls return ErrCacheClosed.
func (e *Entry) destroy() {
	e.destroyOnce.Do(func() {
		e.mu.Lock()
		if w := e.worker; w != nil {
			<-w.done
			e.worker = nil
			e.finish(w.pipeline, w.err)
		}
		e.mu.Unlock()

		// Inline creation by the inserting goroutine always completes.
		<-e.done

		e.destroyed.Store(true)
		if e.Status() == StatusInitialized {
			e.pipeline.Destroy()
		}
	})
}
