//go:build !psocache_noruntimecache

package psocache

// runtimeCacheCompiled reports whether the runtime cache is built in.
const runtimeCacheCompiled = true
