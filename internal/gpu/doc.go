// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu runs PBR map kernels on the GPU.
//
// This is an internal package used by the pbr library. It compiles the
// WGSL kernels under shaders/ with naga and executes them through
// gogpu/wgpu hal compute pipelines (Pure Go, zero CGO).
//
// # Dispatch
//
// One dispatch uploads the source raster into a read-only storage buffer of
// vec4<f32> pixels, runs one compute pass of ceil(w/8) x ceil(h/8)
// workgroups of 8x8 invocations, copies the destination into a staging
// buffer and reads it back after the fence signals. The caller receives the
// result on a channel.
//
// # Errors
//
//   - pbr.ErrCapabilityUnavailable: no device, or the accelerator is closed
//   - pbr.ErrKernelInitializationFailed: the kernel did not compile or load
//   - pbr.ErrReadbackFailed: submission or readback failed at runtime
//
// The first two make the converter run its CPU algorithm instead.
package gpu
