// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader compiles WGSL into content-hashed pipeline shaders.
//
// A Library memoizes compilation by source, so the same WGSL always yields
// the same content hash and therefore the same cached pipeline.
package shader

import (
	"errors"
	"fmt"
	"sync"

	farm "github.com/dgryski/go-farm"
	arc "github.com/hashicorp/golang-lru/arc/v2"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psocache/pipeline"
)

// DefaultLibrarySize is the number of compiled shaders a Library keeps.
const DefaultLibrarySize = 256

// ErrLibraryClosed is returned by CompileWGSL after Destroy.
var ErrLibraryClosed = errors.New("shader: library has been destroyed")

// compiledShader is a memoized compilation result.
type compiledShader struct {
	stage      pipeline.Stage
	entryPoint string
	source     string
	shader     *pipeline.Shader
}

// Library compiles WGSL to SPIR-V with naga and, when it has a device,
// creates the native shader modules.
//
// Compiled shaders are kept in an ARC cache. A shader evicted from the
// cache stays valid; recompiling the same source produces the same content
// hash. Native modules live until Destroy.
type Library struct {
	device hal.Device

	mu       sync.Mutex
	compiled *arc.ARCCache[uint64, compiledShader]
	modules  []hal.ShaderModule
	closed   bool
}

// NewLibrary creates a library. device may be nil, in which case shaders
// carry bytecode and a content hash but no native module. A non-positive
// size selects DefaultLibrarySize.
func NewLibrary(device hal.Device, size int) (*Library, error) {
	if size <= 0 {
		size = DefaultLibrarySize
	}
	compiled, err := arc.NewARC[uint64, compiledShader](size)
	if err != nil {
		return nil, fmt.Errorf("shader: create library cache: %w", err)
	}
	return &Library{device: device, compiled: compiled}, nil
}

// sourceKey hashes the inputs that determine a compiled shader.
func sourceKey(stage pipeline.Stage, entryPoint, source string) uint64 {
	buf := make([]byte, 0, len(entryPoint)+len(source)+2)
	buf = append(buf, byte(stage))
	buf = append(buf, entryPoint...)
	buf = append(buf, 0)
	buf = append(buf, source...)
	return farm.Hash64(buf)
}

// lookup returns the cached shader for the given inputs, comparing the
// full source so hash collisions never alias. The caller holds l.mu.
func (l *Library) lookup(key uint64, stage pipeline.Stage, entryPoint, source string) *pipeline.Shader {
	c, ok := l.compiled.Get(key)
	if !ok || c.stage != stage || c.entryPoint != entryPoint || c.source != source {
		return nil
	}
	return c.shader
}

// CompileWGSL compiles source and returns a shader for the given stage and
// entry point. Identical inputs return the cached shader.
//
// Compilation runs without holding the library lock. When two goroutines
// compile the same source concurrently, the first result wins and the
// other's native module is destroyed.
func (l *Library) CompileWGSL(stage pipeline.Stage, label, source, entryPoint string) (*pipeline.Shader, error) {
	key := sourceKey(stage, entryPoint, source)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrLibraryClosed
	}
	if s := l.lookup(key, stage, entryPoint, source); s != nil {
		l.mu.Unlock()
		return s, nil
	}
	l.mu.Unlock()

	spirvBytes, spirvCode, err := CompileSPIRV(source)
	if err != nil {
		return nil, fmt.Errorf("shader: compile %q: %w", label, err)
	}

	var module hal.ShaderModule
	if l.device != nil {
		module, err = l.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label: label,
			Source: hal.ShaderSource{
				SPIRV: spirvCode,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("shader: create module %q: %w", label, err)
		}
	}
	s := pipeline.NewShader(stage, label, entryPoint, spirvBytes, module)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.lookup(key, stage, entryPoint, source) != nil {
		if module != nil {
			l.device.DestroyShaderModule(module)
		}
		if l.closed {
			return nil, ErrLibraryClosed
		}
		return l.lookup(key, stage, entryPoint, source), nil
	}

	l.compiled.Add(key, compiledShader{
		stage:      stage,
		entryPoint: entryPoint,
		source:     source,
		shader:     s,
	})
	if module != nil {
		l.modules = append(l.modules, module)
	}
	return s, nil
}

// Len returns the number of cached shaders.
func (l *Library) Len() int { return l.compiled.Len() }

// Destroy releases every native module the library created. Pipelines
// built from its shaders must be destroyed first. Destroy is idempotent.
func (l *Library) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for _, m := range l.modules {
		l.device.DestroyShaderModule(m)
	}
	l.modules = nil
	l.compiled.Purge()
}

// CompileSPIRV compiles WGSL source to SPIR-V, returning both the raw
// bytes and the little-endian 32-bit words the HAL expects.
func CompileSPIRV(source string) ([]byte, []uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, nil, err
	}

	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvBytes, spirvCode, nil
}
