// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"fmt"
	"math"
)

// GlossinessMode selects how glossiness is derived.
type GlossinessMode uint8

const (
	// GlossinessInverseRoughness writes 1 - roughness. This is the default.
	GlossinessInverseRoughness GlossinessMode = iota

	// GlossinessContrast writes 1 - |gray(x+1, y) - gray(x, y)| computed
	// directly from the base, comparing only the right neighbor.
	GlossinessContrast
)

// String returns "inverse-roughness" or "contrast".
func (m GlossinessMode) String() string {
	switch m {
	case GlossinessInverseRoughness:
		return "inverse-roughness"
	case GlossinessContrast:
		return "contrast"
	default:
		return fmt.Sprintf("GlossinessMode(%d)", uint8(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *GlossinessMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "inverse-roughness", "roughness":
		*m = GlossinessInverseRoughness
	case "contrast":
		*m = GlossinessContrast
	default:
		return fmt.Errorf("pbr: unknown glossiness mode %q", text)
	}
	return nil
}

// GlossinessConverter derives glossiness. In the default mode it first
// derives the Roughness map of the base and inverts its grayscale.
type GlossinessConverter struct {
	Exec      *Executor
	Roughness *RoughnessConverter
	Mode      GlossinessMode
}

// Kind returns Glossiness.
func (c *GlossinessConverter) Kind() MapKind { return Glossiness }

func (c *GlossinessConverter) roughness() *RoughnessConverter {
	if c.Roughness != nil {
		return c.Roughness
	}
	return &RoughnessConverter{Exec: c.Exec}
}

// ConvertCPU derives a glossiness map on the calling goroutine.
func (c *GlossinessConverter) ConvertCPU(base *Raster) (*Raster, error) {
	if c.Mode == GlossinessContrast {
		return contrastGlossiness(base)
	}
	r, err := c.roughness().ConvertCPU(base)
	if err != nil {
		return nil, dependencyFailed(Glossiness, err).Err
	}
	return invertRoughness(r)
}

// ConvertAccelerated derives a glossiness map. In the default mode the
// accelerated roughness map is awaited before KernelGlossiness runs; a
// failed roughness map fails glossiness with ErrDependencyFailed.
func (c *GlossinessConverter) ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result {
	e := executorOf(c.Exec)
	if c.Mode == GlossinessContrast {
		return e.run(ctx, Glossiness, KernelGlossinessContrast, base, KernelParams{}, contrastGlossiness)
	}

	out := make(chan Result, 1)
	roughDone := c.roughness().ConvertAccelerated(ctx, base)
	go func() {
		r := await(ctx, roughDone)
		if r.Err != nil {
			out <- dependencyFailed(Glossiness, r.Err)
			return
		}
		out <- await(ctx, e.run(ctx, Glossiness, KernelGlossiness, r.Raster, KernelParams{}, invertRoughness))
	}()
	return out
}

// invertRoughness writes 1 - grayscale for every pixel of a roughness map.
func invertRoughness(r *Raster) (*Raster, error) {
	return mapPixels(r, func(x, y int) RGBA {
		return Gray(clamp01(1 - r.At(x, y).Grayscale()))
	})
}

func contrastGlossiness(base *Raster) (*Raster, error) {
	return mapPixels(base, func(x, y int) RGBA {
		contrast := math.Abs(base.GrayAt(x+1, y) - base.GrayAt(x, y))
		return Gray(clamp01(1 - contrast))
	})
}
