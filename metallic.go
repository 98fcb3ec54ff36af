// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "context"

// MetallicConverter approximates metalness as brightness scaled by
// (1 - HSV saturation): metals are bright and desaturated.
type MetallicConverter struct {
	Exec *Executor
}

// Kind returns Metallic.
func (c *MetallicConverter) Kind() MapKind { return Metallic }

// ConvertCPU derives a metallic map on the calling goroutine.
func (c *MetallicConverter) ConvertCPU(base *Raster) (*Raster, error) {
	return mapPixels(base, func(x, y int) RGBA {
		p := base.At(x, y)
		return Gray(clamp01(p.Grayscale() * (1 - p.Saturation())))
	})
}

// ConvertAccelerated derives a metallic map with KernelMetallic.
func (c *MetallicConverter) ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result {
	return executorOf(c.Exec).run(ctx, Metallic, KernelMetallic, base, KernelParams{}, c.ConvertCPU)
}
