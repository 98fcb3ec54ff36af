// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"math"
)

// RoughnessConverter measures local contrast: the mean absolute grayscale
// difference between a pixel and its 8 neighbors, edge-clamped.
type RoughnessConverter struct {
	Exec *Executor
}

// Kind returns Roughness.
func (c *RoughnessConverter) Kind() MapKind { return Roughness }

// ConvertCPU derives a roughness map on the calling goroutine.
func (c *RoughnessConverter) ConvertCPU(base *Raster) (*Raster, error) {
	return mapPixels(base, func(x, y int) RGBA {
		center := base.GrayAt(x, y)
		var sum float64
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				sum += math.Abs(base.GrayAt(x+dx, y+dy) - center)
			}
		}
		return Gray(clamp01(sum / 8))
	})
}

// ConvertAccelerated derives a roughness map with KernelRoughness.
func (c *RoughnessConverter) ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result {
	return executorOf(c.Exec).run(ctx, Roughness, KernelRoughness, base, KernelParams{}, c.ConvertCPU)
}
