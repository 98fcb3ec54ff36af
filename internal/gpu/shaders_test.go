// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/pbr"
)

func TestKernelSource(t *testing.T) {
	for _, k := range pbr.AllKernels() {
		t.Run(k.String(), func(t *testing.T) {
			src, err := KernelSource(k)
			if err != nil {
				t.Fatalf("KernelSource(%s) error = %v", k, err)
			}
			for _, want := range []string{"struct Params", "@workgroup_size(8, 8)", "fn main"} {
				if !strings.Contains(src, want) {
					t.Errorf("source for %s missing %q", k, want)
				}
			}
		})
	}
}

func TestKernelSource_Unknown(t *testing.T) {
	_, err := KernelSource(pbr.Kernel(200))
	if !errors.Is(err, pbr.ErrKernelInitializationFailed) {
		t.Errorf("KernelSource(unknown) error = %v, want ErrKernelInitializationFailed", err)
	}
}

func TestCompileKernel(t *testing.T) {
	for _, k := range pbr.AllKernels() {
		t.Run(k.String(), func(t *testing.T) {
			words, err := CompileKernel(k)
			if err != nil {
				if strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported") {
					t.Skipf("Skipping: naga feature not yet implemented: %v", err)
				}
				t.Fatalf("CompileKernel(%s) error = %v", k, err)
			}
			if len(words) == 0 {
				t.Fatal("empty SPIR-V")
			}
			if words[0] != 0x07230203 {
				t.Errorf("SPIR-V magic = %#x, want 0x07230203", words[0])
			}
		})
	}
}

func TestSpirvWords(t *testing.T) {
	got := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if len(got) != 2 || got[0] != 0x07230203 || got[1] != 1 {
		t.Errorf("spirvWords = %#x, want [0x7230203 0x1]", got)
	}
}
