// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu registers the GPU accelerator for map generation.
//
// Import this package to run the map kernels as wgpu/hal compute shaders.
// If GPU initialization fails (no Vulkan adapter available), registration
// is skipped with a warning and every map is generated on the CPU.
//
// Usage:
//
//	import _ "github.com/gogpu/pbr/gpu" // enable GPU acceleration
package gpu

import (
	"github.com/gogpu/pbr"
	gpuimpl "github.com/gogpu/pbr/internal/gpu"
)

func init() {
	if err := pbr.RegisterAccelerator(&gpuimpl.KernelAccelerator{}); err != nil {
		pbr.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider configures the GPU accelerator to use a shared GPU device
// from an external provider (e.g., gogpu). This avoids creating a separate
// GPU instance.
//
// The provider should be a gpucontext.DeviceProvider that also exposes
// HalDevice() and HalQueue() for direct HAL access.
func SetDeviceProvider(provider any) error {
	return pbr.SetAcceleratorDeviceProvider(provider)
}

// SetBottomUp marks the registered GPU accelerator's surfaces as having a
// bottom-left origin. It is a no-op when the GPU accelerator is not
// registered.
func SetBottomUp(bottomUp bool) {
	if a, ok := pbr.RegisteredAccelerator().(*gpuimpl.KernelAccelerator); ok {
		a.SetBottomUp(bottomUp)
	}
}
