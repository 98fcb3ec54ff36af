// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"math"
)

// Normal map constants. Historical revisions disagree on the scale, so
// both are kept: the canonical output uses DefaultNormalStrength, and
// LegacyNormalStrength reproduces the exaggerated variant.
const (
	// DefaultNormalDepth is the z component of (left-right, up-down, depth)
	// before normalization. Smaller values give steeper normals.
	DefaultNormalDepth = 2.0

	// DefaultNormalStrength leaves the unit normal unscaled.
	DefaultNormalStrength = 1.0

	// LegacyNormalStrength scales the unit normal by 5 before remapping;
	// most components then saturate at the final clamp.
	LegacyNormalStrength = 5.0
)

// NormalConverter derives a tangent-space normal map from the Height map
// of the base. Heights of the four axis neighbors are sampled with edge
// clamping; the vector (left-right, up-down, Depth) is normalized, scaled
// by Strength and remapped from [-1, 1] to [0, 1]. Alpha is opaque.
type NormalConverter struct {
	Exec     *Executor
	Height   *HeightConverter
	Depth    float64
	Strength float64
}

// Kind returns Normal.
func (c *NormalConverter) Kind() MapKind { return Normal }

func (c *NormalConverter) height() *HeightConverter {
	if c.Height != nil {
		return c.Height
	}
	return &HeightConverter{Exec: c.Exec}
}

func (c *NormalConverter) params() (depth, strength float64) {
	depth, strength = c.Depth, c.Strength
	if depth == 0 {
		depth = DefaultNormalDepth
	}
	if strength == 0 {
		strength = DefaultNormalStrength
	}
	return depth, strength
}

// ConvertCPU derives the height map and then the normal map on the
// calling goroutine.
func (c *NormalConverter) ConvertCPU(base *Raster) (*Raster, error) {
	h, err := c.height().ConvertCPU(base)
	if err != nil {
		return nil, dependencyFailed(Normal, err).Err
	}
	return c.fromHeight(h)
}

// ConvertAccelerated awaits the accelerated height map and only then runs
// KernelNormal over it. A failed height map fails the normal map with
// ErrDependencyFailed.
func (c *NormalConverter) ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result {
	out := make(chan Result, 1)
	heightDone := c.height().ConvertAccelerated(ctx, base)
	depth, strength := c.params()
	go func() {
		h := await(ctx, heightDone)
		if h.Err != nil {
			out <- dependencyFailed(Normal, h.Err)
			return
		}
		params := KernelParams{Depth: float32(depth), Strength: float32(strength)}
		out <- await(ctx, executorOf(c.Exec).run(ctx, Normal, KernelNormal, h.Raster, params, c.fromHeight))
	}()
	return out
}

// fromHeight is the neighbor-sampling step applied to a height raster.
func (c *NormalConverter) fromHeight(h *Raster) (*Raster, error) {
	depth, strength := c.params()
	return mapPixels(h, func(x, y int) RGBA {
		left := h.GrayAt(x-1, y)
		right := h.GrayAt(x+1, y)
		up := h.GrayAt(x, y-1)
		down := h.GrayAt(x, y+1)

		nx, ny, nz := left-right, up-down, depth
		l := math.Sqrt(nx*nx + ny*ny + nz*nz)
		nx, ny, nz = nx/l*strength, ny/l*strength, nz/l*strength

		return RGB((nx+1)*0.5, (ny+1)*0.5, (nz+1)*0.5)
	})
}
