// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"
)

// mockAccelerator implements Accelerator for testing. Successful
// dispatches compute the kernel sequentially; per-kernel errors and delays
// are programmable.
type mockAccelerator struct {
	name    string
	initErr error

	// unsupported kernels report CanAccelerate false.
	unsupported map[Kernel]bool
	// fail makes Dispatch of a kernel deliver the error.
	fail map[Kernel]error
	// delay postpones the completion of a kernel.
	delay map[Kernel]time.Duration
	// resize makes successful results one pixel wider than the input.
	resize bool

	mu         sync.Mutex
	closed     bool
	logger     *slog.Logger
	dispatched []Kernel
}

func (m *mockAccelerator) Name() string { return m.name }

func (m *mockAccelerator) Init() error { return m.initErr }

func (m *mockAccelerator) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mockAccelerator) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockAccelerator) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

func (m *mockAccelerator) currentLogger() *slog.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logger
}

func (m *mockAccelerator) CanAccelerate(k Kernel) bool {
	return k < kernelCount && !m.unsupported[k]
}

func (m *mockAccelerator) Dispatch(_ context.Context, k Kernel, src *Raster, params KernelParams) <-chan Result {
	m.mu.Lock()
	m.dispatched = append(m.dispatched, k)
	m.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		if d := m.delay[k]; d > 0 {
			time.Sleep(d)
		}
		if err := m.fail[k]; err != nil {
			out <- Result{Err: err}
			return
		}
		r := runKernel(k, src, params)
		if m.resize {
			r = NewRaster(src.Width()+1, src.Height())
		}
		out <- Result{Raster: r}
	}()
	return out
}

// dispatches returns how many times k was dispatched.
func (m *mockAccelerator) dispatches(k Kernel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.dispatched {
		if d == k {
			n++
		}
	}
	return n
}

func (m *mockAccelerator) totalDispatches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dispatched)
}

// runKernel evaluates k over src on the calling goroutine.
func runKernel(k Kernel, src *Raster, p KernelParams) *Raster {
	in := upload(src, false)
	dst := &surface{width: in.width, height: in.height, pix: make([]float32, len(in.pix))}
	for y := 0; y < in.height; y++ {
		for x := 0; x < in.width; x++ {
			dst.store(x, y, kernelFuncs[k](in, x, y, p))
		}
	}
	return dst.readback()
}

// resetAccelerator clears the global accelerator state between tests.
func resetAccelerator() {
	accelMu.Lock()
	accel = nil
	accelMu.Unlock()
}

// enabled returns a capability that always reports available.
func enabled() *Capability {
	return NewCapability(func() bool { return true })
}

// uniformRaster returns a raster filled with c.
func uniformRaster(w, h int, c RGBA) *Raster {
	r := NewRaster(w, h)
	r.Clear(c)
	return r
}

// gradientRaster returns an asymmetric, colorful test image: red grows
// left to right, green top to bottom, blue along a diagonal wave.
func gradientRaster(w, h int) *Raster {
	r := NewRaster(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := float64(x) / float64(max(w-1, 1))
			fy := float64(y) / float64(max(h-1, 1))
			r.Set(x, y, RGBA{
				R: fx,
				G: fy * fy,
				B: 0.5 + 0.5*math.Sin(float64(x+2*y)*0.7),
				A: 1,
			})
		}
	}
	return r
}

// assertRastersClose fails if any sample of got differs from want by more
// than tol.
func assertRastersClose(t *testing.T, name string, got, want *Raster, tol float64) {
	t.Helper()
	if got == nil || want == nil {
		t.Fatalf("%s: nil raster (got %v, want %v)", name, got, want)
	}
	if !got.SameSize(want) {
		t.Fatalf("%s: size %dx%d, want %dx%d", name, got.Width(), got.Height(), want.Width(), want.Height())
	}
	for i, w := range want.Pix() {
		if d := math.Abs(float64(got.Pix()[i] - w)); d > tol {
			px := i / Channels
			t.Fatalf("%s: pixel (%d, %d) channel %d = %v, want %v (diff %v)",
				name, px%want.Width(), px/want.Width(), i%Channels, got.Pix()[i], w, d)
		}
	}
}

// waitResult receives one Result or fails the test after a timeout.
func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for conversion result")
		return Result{}
	}
}

// waitRun waits for a run to publish.
func waitRun(t *testing.T, run *Run) MapSet {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	set, err := run.Wait(ctx)
	if err != nil {
		t.Fatalf("Run.Wait() error = %v", err)
	}
	return set
}
