// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/psocache/pipeline"
)

const triangleWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(idx) - 1);
    let y = f32(i32(idx & 1u) * 2 - 1);
    return vec4<f32>(x, y, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

const redWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(idx), 0.0, 0.0, 1.0);
}
`

// createNoopDevice creates a noop device for testing.
func createNoopDevice(t *testing.T) hal.Device {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device
}

func newTestLibrary(t *testing.T, device hal.Device, size int) *Library {
	t.Helper()
	lib, err := NewLibrary(device, size)
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}
	t.Cleanup(lib.Destroy)
	return lib
}

func TestCompileSPIRV(t *testing.T) {
	spirvBytes, spirvCode, err := CompileSPIRV(triangleWGSL)
	if err != nil {
		t.Fatalf("CompileSPIRV failed: %v", err)
	}
	if len(spirvBytes) == 0 || len(spirvBytes)%4 != 0 {
		t.Fatalf("unexpected SPIR-V length %d", len(spirvBytes))
	}
	if len(spirvCode) != len(spirvBytes)/4 {
		t.Errorf("words = %d, want %d", len(spirvCode), len(spirvBytes)/4)
	}
	// SPIR-V magic number.
	if spirvCode[0] != 0x07230203 {
		t.Errorf("magic = %#x, want 0x07230203", spirvCode[0])
	}
}

func TestLibrary_CompileWGSL_Memoizes(t *testing.T) {
	lib := newTestLibrary(t, nil, 0)

	a, err := lib.CompileWGSL(pipeline.StageVertex, "triangle_vs", triangleWGSL, "vs_main")
	if err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	b, err := lib.CompileWGSL(pipeline.StageVertex, "triangle_vs_again", triangleWGSL, "vs_main")
	if err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	if a != b {
		t.Error("identical source should return the cached shader")
	}
	if lib.Len() != 1 {
		t.Errorf("Len() = %d, want 1", lib.Len())
	}
	if a.Hash() == 0 {
		t.Error("shader hash should be non-zero")
	}
	if a.Module != nil {
		t.Error("library without device should not create modules")
	}
	if len(a.Code) == 0 {
		t.Error("shader should carry SPIR-V bytecode")
	}
}

func TestLibrary_CompileWGSL_DistinctInputs(t *testing.T) {
	lib := newTestLibrary(t, nil, 0)

	vs, err := lib.CompileWGSL(pipeline.StageVertex, "vs", triangleWGSL, "vs_main")
	if err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	fs, err := lib.CompileWGSL(pipeline.StagePixel, "fs", triangleWGSL, "fs_main")
	if err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	red, err := lib.CompileWGSL(pipeline.StageVertex, "red", redWGSL, "vs_main")
	if err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}

	if vs.Hash() == fs.Hash() {
		t.Error("different stage and entry point should hash differently")
	}
	if vs.Hash() == red.Hash() {
		t.Error("different source should hash differently")
	}
	if lib.Len() != 3 {
		t.Errorf("Len() = %d, want 3", lib.Len())
	}
}

func TestLibrary_RecompileAfterEvictionKeepsHash(t *testing.T) {
	lib := newTestLibrary(t, nil, 1)

	first, err := lib.CompileWGSL(pipeline.StageVertex, "vs", triangleWGSL, "vs_main")
	if err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	if _, err := lib.CompileWGSL(pipeline.StageVertex, "red", redWGSL, "vs_main"); err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	again, err := lib.CompileWGSL(pipeline.StageVertex, "vs", triangleWGSL, "vs_main")
	if err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	if first.Hash() != again.Hash() {
		t.Errorf("recompiled hash %#x != original %#x", again.Hash(), first.Hash())
	}
}

func TestLibrary_InvalidSource(t *testing.T) {
	lib := newTestLibrary(t, nil, 0)
	if _, err := lib.CompileWGSL(pipeline.StageVertex, "broken", "fn {", "vs_main"); err == nil {
		t.Fatal("expected compile error for invalid WGSL")
	}
	if lib.Len() != 0 {
		t.Errorf("failed compile should not be cached, Len() = %d", lib.Len())
	}
}

func TestLibrary_WithDevice(t *testing.T) {
	device := createNoopDevice(t)
	lib := newTestLibrary(t, device, 0)

	s, err := lib.CompileWGSL(pipeline.StageVertex, "vs", triangleWGSL, "vs_main")
	if err != nil {
		t.Fatalf("CompileWGSL failed: %v", err)
	}
	if s.Module == nil {
		t.Fatal("expected native module with a device")
	}

	lib.Destroy()
	lib.Destroy()

	if _, err := lib.CompileWGSL(pipeline.StageVertex, "vs", triangleWGSL, "vs_main"); !errors.Is(err, ErrLibraryClosed) {
		t.Errorf("CompileWGSL after Destroy = %v, want ErrLibraryClosed", err)
	}
}

func TestLibrary_ConcurrentCompile(t *testing.T) {
	device := createNoopDevice(t)
	lib := newTestLibrary(t, device, 0)

	const goroutines = 8
	var wg sync.WaitGroup
	shaders := make([]*pipeline.Shader, goroutines)
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := lib.CompileWGSL(pipeline.StageVertex, "vs", triangleWGSL, "vs_main")
			if err != nil {
				t.Errorf("CompileWGSL failed: %v", err)
				return
			}
			shaders[i] = s
		}()
	}
	wg.Wait()

	for i, s := range shaders {
		if s != shaders[0] {
			t.Errorf("goroutine %d got a different shader", i)
		}
	}
	if n := len(lib.modules); n != 1 {
		t.Errorf("library owns %d modules, want 1", n)
	}
}
