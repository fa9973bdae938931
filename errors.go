package psocache

import "errors"

// Cache errors.
var (
	// ErrNilDevice is returned when a cache or adapter is created without a device.
	ErrNilDevice = errors.New("psocache: device is nil")

	// ErrNilInitializer is returned when a graphics lookup gets a nil initializer.
	ErrNilInitializer = errors.New("psocache: graphics initializer is nil")

	// ErrNilShader is returned when a required shader stage is missing.
	ErrNilShader = errors.New("psocache: shader is nil")

	// ErrCacheClosed is returned by lookups after Teardown.
	ErrCacheClosed = errors.New("psocache: cache has been torn down")

	// ErrCreationFailed wraps every native pipeline creation failure.
	// Resolving a failed entry always returns an error matching it.
	ErrCreationFailed = errors.New("psocache: pipeline creation failed")

	// ErrUnsupportedStage is returned by the HAL device for stages or
	// topologies WebGPU cannot express (geometry, hull, domain, patches).
	ErrUnsupportedStage = errors.New("psocache: unsupported pipeline stage")

	// ErrNoHALDevice is returned when a device provider does not expose a
	// hal.Device.
	ErrNoHALDevice = errors.New("psocache: provider does not expose a hal.Device")

	// errNilPipeline records a device that returned neither a pipeline nor an error.
	errNilPipeline = errors.New("device returned a nil pipeline")
)
