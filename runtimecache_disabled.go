//go:build psocache_noruntimecache

package psocache

// runtimeCacheCompiled reports whether the runtime cache is built in.
// Every graphics lookup falls through to the low-level cache.
const runtimeCacheCompiled = false
