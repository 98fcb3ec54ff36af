// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/pbr/internal/parallel"
)

// TileAccelerator runs kernels on a CPU worker pool using the same
// WorkgroupSize x WorkgroupSize tile grid as the GPU dispatch. Each tile is
// one work item; a kernel invocation computes one output pixel and reads
// the source surface only.
//
// It is useful on machines without a GPU and as a reference for GPU
// results. It is not registered automatically:
//
//	pbr.RegisterAccelerator(pbr.NewTileAccelerator(0))
type TileAccelerator struct {
	// BottomUp stores surfaces with the bottom image row first, as some
	// graphics stacks do. Results are flipped back on readback.
	BottomUp bool

	workers int

	mu   sync.Mutex
	pool *parallel.WorkerPool

	log atomic.Pointer[slog.Logger]
}

// NewTileAccelerator creates a tile accelerator with the given number of
// workers. If workers is 0 or negative, GOMAXPROCS is used.
func NewTileAccelerator(workers int) *TileAccelerator {
	return &TileAccelerator{workers: workers}
}

// Name returns "tiles".
func (a *TileAccelerator) Name() string { return "tiles" }

// Init starts the worker pool. Calling Init on a running accelerator is a no-op.
func (a *TileAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pool == nil {
		a.pool = parallel.NewWorkerPool(a.workers)
	}
	return nil
}

// Close stops the worker pool. A dispatch in flight still delivers exactly
// one Result: tiles already queued run, and a dispatch that could not queue
// every tile fails with ErrReadbackFailed.
func (a *TileAccelerator) Close() {
	a.mu.Lock()
	pool := a.pool
	a.pool = nil
	a.mu.Unlock()
	if pool != nil {
		pool.Close()
	}
}

// SetLogger sets the logger used for dispatch diagnostics.
func (a *TileAccelerator) SetLogger(l *slog.Logger) {
	a.log.Store(l)
}

func (a *TileAccelerator) logger() *slog.Logger {
	if l := a.log.Load(); l != nil {
		return l
	}
	return Logger()
}

func (a *TileAccelerator) workerPool() *parallel.WorkerPool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pool
}

// CanAccelerate reports whether the accelerator is initialized and k is a
// known kernel.
func (a *TileAccelerator) CanAccelerate(k Kernel) bool {
	return k < kernelCount && a.workerPool() != nil
}

// Dispatch runs kernel k over src. The source is uploaded synchronously;
// tiles execute and the destination is read back on another goroutine.
func (a *TileAccelerator) Dispatch(ctx context.Context, k Kernel, src *Raster, params KernelParams) <-chan Result {
	if err := src.Validate(); err != nil {
		return completed(Result{Err: err})
	}
	pool := a.workerPool()
	if pool == nil || k >= kernelCount {
		return completed(Result{Err: fmt.Errorf("%w: %s on %s", ErrFallbackToCPU, k, a.Name())})
	}

	in := upload(src, a.BottomUp)
	dst := &surface{
		width:    in.width,
		height:   in.height,
		bottomUp: in.bottomUp,
		pix:      make([]float32, len(in.pix)),
	}
	fn := kernelFuncs[k]
	tiles := parallel.Tiles(in.width, in.height, WorkgroupSize)

	a.logger().Debug("tiles: dispatch", "kernel", k, "tiles", len(tiles), "bottom_up", a.BottomUp)

	out := make(chan Result, 1)
	go func() {
		work := make([]func(), len(tiles))
		for i, t := range tiles {
			work[i] = func() {
				if ctx.Err() != nil {
					return
				}
				for y := t.Y; y < t.Y+t.Height; y++ {
					for x := t.X; x < t.X+t.Width; x++ {
						dst.store(x, y, fn(in, x, y, params))
					}
				}
			}
		}

		ran := pool.ExecuteAll(work)
		switch {
		case ctx.Err() != nil:
			out <- Result{Err: fmt.Errorf("%w: %w", ErrReadbackFailed, ctx.Err())}
		case ran != len(work):
			out <- Result{Err: fmt.Errorf("%w: %d of %d tiles ran", ErrReadbackFailed, ran, len(work))}
		default:
			out <- Result{Raster: dst.readback()}
		}
	}()
	return out
}
