// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "context"

// HeightConverter writes the perceptual grayscale of each pixel into the
// color channels and keeps the source alpha.
type HeightConverter struct {
	Exec *Executor
}

// Kind returns Height.
func (c *HeightConverter) Kind() MapKind { return Height }

// ConvertCPU derives a height map on the calling goroutine.
func (c *HeightConverter) ConvertCPU(base *Raster) (*Raster, error) {
	return mapPixels(base, func(x, y int) RGBA {
		p := base.At(x, y)
		h := p.Grayscale()
		return RGBA{R: h, G: h, B: h, A: p.A}
	})
}

// ConvertAccelerated derives a height map with KernelHeight.
func (c *HeightConverter) ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result {
	return executorOf(c.Exec).run(ctx, Height, KernelHeight, base, KernelParams{}, c.ConvertCPU)
}
