// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"embed"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/pbr"
)

// Embedded WGSL kernel sources. Every kernel is compiled together with
// shaders/common.wgsl, which declares the bindings and sampling helpers.
//
//go:embed shaders/*.wgsl
var shaderFS embed.FS

// commonShaderSource declares the bindings shared by all kernels.
//
//go:embed shaders/common.wgsl
var commonShaderSource string

// KernelSource returns the complete WGSL program for k.
func KernelSource(k pbr.Kernel) (string, error) {
	body, err := shaderFS.ReadFile("shaders/" + k.String() + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("%w: no shader for %s: %w", pbr.ErrKernelInitializationFailed, k, err)
	}
	return commonShaderSource + "\n" + string(body), nil
}

// CompileKernel translates the WGSL program for k to SPIR-V words.
func CompileKernel(k pbr.Kernel) ([]uint32, error) {
	src, err := KernelSource(k)
	if err != nil {
		return nil, err
	}
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s: %w", pbr.ErrKernelInitializationFailed, k, err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%w: compile %s: %d bytes is not whole words",
			pbr.ErrKernelInitializationFailed, k, len(spirvBytes))
	}
	return spirvWords(spirvBytes), nil
}

// spirvWords converts little-endian SPIR-V bytes to words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}
