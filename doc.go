// Package psocache caches GPU pipeline state objects.
//
// # Overview
//
// Creating a native pipeline compiles shaders and bakes fixed-function
// state, which is far too slow to repeat per draw. psocache creates each
// distinct pipeline once per device and hands out the shared result.
//
// # Quick Start
//
//	import "github.com/gogpu/psocache"
//
//	dev, err := psocache.NewHALDevice(halDevice)
//	cache, err := psocache.New(dev)
//	defer cache.Teardown()
//
//	state, err := cache.GetOrCreateGraphicsPipeline(&gi, rootSig)
//	p, err := state.Pipeline() // waits for creation if needed
//
// # Architecture
//
// The cache has two levels:
//   - Low-level cache: descriptor content to [Entry]. At most one entry and
//     one native pipeline exist per distinct descriptor. Entries are
//     inserted under a short lock; native creation runs after the lock is
//     released, so unrelated creations never serialize.
//   - Runtime cache: initializer content and root signature to
//     [GraphicsPipelineState]. An optional shortcut that skips building a
//     descriptor for repeated requests. It holds one handle per distinct
//     pipeline, however many initializer objects callers construct.
//     Disabling it changes cost, never results.
//
// Callers that already hold a finalized descriptor can use
// [Cache.FindInLowLevelCache] and [Cache.CreateAndAddToLowLevelCache]
// directly, for example to pre-populate the cache at load time.
//
// # Creation Modes
//
// By default the goroutine that inserts an entry creates the pipeline
// inline. With [WithAsyncCreation] each entry starts a worker goroutine
// and the first [Entry.Resolve] collects its result.
//
// Resolve spins briefly, then parks until creation finishes. Waits longer
// than the stall threshold are logged at Warn level, with the threshold
// doubling after each warning.
//
// # Failures
//
// A failed creation is cached. Every later Resolve of that entry returns
// an error matching [ErrCreationFailed] without calling the device again.
//
// # Lifecycle
//
// A Cache belongs to one device. [Cache.Teardown] releases runtime handles
// first, then destroys every entry and native pipeline.
package psocache
