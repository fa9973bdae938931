package psocache

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	// DefaultStallThreshold is how long Resolve waits before the first
	// stall warning. Each further warning doubles the threshold.
	DefaultStallThreshold = 100 * time.Millisecond

	// DefaultSpinDuration is how long Resolve spins before parking on the
	// entry's completion channel.
	DefaultSpinDuration = 200 * time.Microsecond
)

// Option configures a Cache during creation.
// Use functional options to customize Cache behavior.
//
// Example:
//
//	// Synchronous creation, default thresholds
//	c, err := psocache.New(device)
//
//	// Worker-backed creation with a tighter stall warning
//	c, err := psocache.New(device,
//	    psocache.WithAsyncCreation(true),
//	    psocache.WithStallThreshold(20*time.Millisecond),
//	)
type Option func(*options)

// options holds optional configuration for Cache creation.
type options struct {
	stallThreshold  time.Duration
	spinDuration    time.Duration
	async           bool
	runtimeCache    bool
	runtimeCapacity int
	logger          *slog.Logger
}

// defaultOptions returns the default cache options.
func defaultOptions() options {
	return options{
		stallThreshold: DefaultStallThreshold,
		spinDuration:   DefaultSpinDuration,
		runtimeCache:   runtimeCacheCompiled,
	}
}

// WithStallThreshold sets the wait after which Resolve logs a stall
// warning. Non-positive values keep the default.
func WithStallThreshold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stallThreshold = d
		}
	}
}

// WithSpinDuration sets how long Resolve busy-waits on an entry that
// another goroutine is creating before it parks on a channel. Zero parks
// immediately; negative values keep the default.
func WithSpinDuration(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.spinDuration = d
		}
	}
}

// WithAsyncCreation makes every new entry start a background worker that
// creates the native pipeline. Resolve then waits for that worker instead
// of the inserting goroutine creating the pipeline inline.
func WithAsyncCreation(enabled bool) Option {
	return func(o *options) {
		o.async = enabled
	}
}

// WithRuntimeCache enables or disables the identity-keyed runtime cache.
// Disabling it never changes results, only lookup cost. It has no effect
// when the package is built with the psocache_noruntimecache tag.
func WithRuntimeCache(enabled bool) Option {
	return func(o *options) {
		o.runtimeCache = enabled && runtimeCacheCompiled
	}
}

// WithRuntimeCacheCapacity bounds the runtime cache to n handles with LRU
// eviction. Evicted handles only lose the cache's reference; the
// low-level entries they wrap stay cached. Zero means unbounded.
func WithRuntimeCacheCapacity(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.runtimeCapacity = n
		}
	}
}

// WithLogger sets a logger for this cache only, overriding SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
