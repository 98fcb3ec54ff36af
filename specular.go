// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "context"

// SpecularBias is added to the grayscale to obtain reflectivity.
const SpecularBias = 0.5

// SpecularConverter scales the base color by its reflectivity,
// clamp(grayscale + SpecularBias). Unlike the other maps it keeps hue.
type SpecularConverter struct {
	Exec *Executor
}

// Kind returns Specular.
func (c *SpecularConverter) Kind() MapKind { return Specular }

// ConvertCPU derives a specular map on the calling goroutine.
func (c *SpecularConverter) ConvertCPU(base *Raster) (*Raster, error) {
	return mapPixels(base, func(x, y int) RGBA {
		p := base.At(x, y)
		refl := clamp01(p.Grayscale() + SpecularBias)
		return RGB(p.R*refl, p.G*refl, p.B*refl)
	})
}

// ConvertAccelerated derives a specular map with KernelSpecular.
func (c *SpecularConverter) ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result {
	return executorOf(c.Exec).run(ctx, Specular, KernelSpecular, base, KernelParams{}, c.ConvertCPU)
}
