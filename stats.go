package psocache

import "sync/atomic"

// Stats is a snapshot of cache statistics.
// Counters are read atomically and may not be perfectly synchronized.
type Stats struct {
	// GraphicsEntries is the number of low-level graphics entries.
	GraphicsEntries int
	// ComputeEntries is the number of low-level compute entries.
	ComputeEntries int
	// RuntimeEntries is the number of handles held by the runtime cache.
	RuntimeEntries int

	// LowLevelHits counts descriptor lookups that found an entry.
	LowLevelHits uint64
	// LowLevelMisses counts descriptor lookups that inserted an entry.
	LowLevelMisses uint64
	// RuntimeHits counts graphics lookups answered by the runtime cache.
	RuntimeHits uint64
	// RuntimeMisses counts graphics lookups that fell through to the low-level cache.
	RuntimeMisses uint64

	// Creations counts native pipeline creations that reached a terminal state.
	Creations uint64
	// CreationFailures counts creations that ended in CreationFailed.
	CreationFailures uint64
	// Stalls counts stall warnings emitted by Resolve.
	Stalls uint64
	// LeakedHandles counts runtime handles still referenced at teardown.
	LeakedHandles uint64
}

// HitRate returns the low-level hit rate (0.0 to 1.0).
//
// Returns 0.0 if no requests have been made.
func (s Stats) HitRate() float64 {
	total := s.LowLevelHits + s.LowLevelMisses
	if total == 0 {
		return 0.0
	}
	return float64(s.LowLevelHits) / float64(total)
}

// counters holds the live atomic statistics of a Cache.
type counters struct {
	lowLevelHits     atomic.Uint64
	lowLevelMisses   atomic.Uint64
	runtimeHits      atomic.Uint64
	runtimeMisses    atomic.Uint64
	creations        atomic.Uint64
	creationFailures atomic.Uint64
	stalls           atomic.Uint64
	leakedHandles    atomic.Uint64
}
