// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "context"

// DiffuseConverter writes the BT.709 luminance of each pixel. It is only
// meaningful when the input is itself a specular-workflow base.
type DiffuseConverter struct {
	Exec *Executor
}

// Kind returns Diffuse.
func (c *DiffuseConverter) Kind() MapKind { return Diffuse }

// ConvertCPU derives a diffuse map on the calling goroutine.
func (c *DiffuseConverter) ConvertCPU(base *Raster) (*Raster, error) {
	return mapPixels(base, func(x, y int) RGBA {
		return Gray(base.At(x, y).Luminance())
	})
}

// ConvertAccelerated derives a diffuse map with KernelDiffuse.
func (c *DiffuseConverter) ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result {
	return executorOf(c.Exec).run(ctx, Diffuse, KernelDiffuse, base, KernelParams{}, c.ConvertCPU)
}
