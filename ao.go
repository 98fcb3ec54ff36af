// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "context"

// AOConverter writes one minus the grayscale of each pixel.
type AOConverter struct {
	Exec *Executor
}

// Kind returns AO.
func (c *AOConverter) Kind() MapKind { return AO }

// ConvertCPU derives an ambient occlusion map on the calling goroutine.
func (c *AOConverter) ConvertCPU(base *Raster) (*Raster, error) {
	return mapPixels(base, func(x, y int) RGBA {
		return Gray(clamp01(1 - base.At(x, y).Grayscale()))
	})
}

// ConvertAccelerated derives an ambient occlusion map with KernelAO.
func (c *AOConverter) ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result {
	return executorOf(c.Exec).run(ctx, AO, KernelAO, base, KernelParams{}, c.ConvertCPU)
}
