package psocache

import "github.com/gogpu/psocache/pipeline"

// Device creates native pipeline objects from canonical descriptors.
//
// Implementations must be safe for concurrent use: the cache calls them
// from the goroutine that inserted an entry, or from a background worker
// when async creation is enabled, and never while holding a cache lock.
//
// A create call either returns a usable pipeline or an error. Returning
// (nil, nil) is treated as a failure.
type Device interface {
	CreateGraphicsPipeline(desc *pipeline.GraphicsDescriptor) (Pipeline, error)
	CreateComputePipeline(desc *pipeline.ComputeDescriptor) (Pipeline, error)
}

// Pipeline is a native pipeline state object owned by the cache.
// Destroy is called exactly once, during Cache.Teardown.
type Pipeline interface {
	Destroy()
}

// createNative dispatches desc to the matching Device method.
func createNative(device Device, desc pipeline.Descriptor) (Pipeline, error) {
	switch d := desc.(type) {
	case *pipeline.GraphicsDescriptor:
		return device.CreateGraphicsPipeline(d)
	case *pipeline.ComputeDescriptor:
		return device.CreateComputePipeline(d)
	default:
		panic("psocache: unknown descriptor type")
	}
}
