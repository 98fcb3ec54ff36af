// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"errors"
	"sync"
)

// Result is the outcome of one conversion: either a valid Raster or an
// error, never a partially written Raster.
type Result struct {
	Raster *Raster
	Err    error
}

// Accelerator is an optional parallel execution provider for kernels.
//
// Dispatch uploads src to a device surface, runs the kernel over it in
// WorkgroupSize x WorkgroupSize tiles and reads the destination back
// asynchronously. The returned channel delivers exactly one Result and may
// be written from a goroutine other than the caller's.
//
// An accelerator that cannot run a kernel reports ErrCapabilityUnavailable
// (or ErrFallbackToCPU) or ErrKernelInitializationFailed so the converter
// can fall back to the CPU path; ErrReadbackFailed is a runtime failure.
//
// Implementations are provided by packages such as gpu/, which register
// themselves via blank import:
//
//	import _ "github.com/gogpu/pbr/gpu" // enables GPU acceleration
type Accelerator interface {
	// Name returns the accelerator name (e.g., "wgpu", "tiles").
	Name() string

	// Init initializes device resources. Called once during registration.
	Init() error

	// Close releases device resources.
	Close()

	// CanAccelerate reports whether the kernel program is loaded and usable.
	CanAccelerate(k Kernel) bool

	// Dispatch runs kernel k over src. The channel is buffered and receives
	// exactly one Result.
	Dispatch(ctx context.Context, k Kernel, src *Raster, params KernelParams) <-chan Result
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers the process-wide accelerator.
//
// Only one accelerator can be registered. Subsequent calls replace the
// previous one. Init is called during registration; if it fails the
// accelerator is not registered and the error is returned.
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("pbr: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil && old != a {
		old.Close()
	}
	Logger().Info("pbr: accelerator registered", "name", a.Name())
	return nil
}

// RegisteredAccelerator returns the process-wide accelerator, or nil if none.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a host device provider to the
// registered accelerator, enabling device sharing. It is a no-op when no
// accelerator is registered or the accelerator does not share devices.
func SetAcceleratorDeviceProvider(provider any) error {
	a := RegisteredAccelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}

// DeviceProviderAware is implemented by accelerators that can reuse a GPU
// device owned by the host application instead of creating their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

// completed returns a channel already holding r.
func completed(r Result) <-chan Result {
	ch := make(chan Result, 1)
	ch <- r
	return ch
}

// await blocks until ch delivers or ctx is done.
func await(ctx context.Context, ch <-chan Result) Result {
	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}
