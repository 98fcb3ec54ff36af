// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "github.com/chewxy/math32"

// surface is a device-side copy of a raster in storage order. On a
// bottom-up surface storage row 0 holds the bottom image row, so the image
// row above (x, y) is y+1 instead of y-1.
type surface struct {
	width, height int
	bottomUp      bool
	pix           []float32
}

// upload copies r into a new surface, flipping rows when bottomUp is set.
func upload(r *Raster, bottomUp bool) *surface {
	s := &surface{width: r.Width(), height: r.Height(), bottomUp: bottomUp}
	s.pix = flipRows(r.Pix(), r.Width(), r.Height(), bottomUp)
	return s
}

// readback copies the surface into a new raster in image order.
func (s *surface) readback() *Raster {
	return &Raster{width: s.width, height: s.height, pix: flipRows(s.pix, s.width, s.height, s.bottomUp)}
}

// flipRows returns a copy of pix, vertically mirrored when flip is set.
func flipRows(pix []float32, width, height int, flip bool) []float32 {
	out := make([]float32, len(pix))
	if !flip {
		copy(out, pix)
		return out
	}
	stride := width * Channels
	for y := 0; y < height; y++ {
		copy(out[y*stride:(y+1)*stride], pix[(height-1-y)*stride:(height-y)*stride])
	}
	return out
}

// up returns the storage row step towards the top of the image.
func (s *surface) up() int {
	if s.bottomUp {
		return 1
	}
	return -1
}

// load returns the sample at storage coordinates, edge-clamped.
func (s *surface) load(x, y int) [4]float32 {
	x = clampInt(x, 0, s.width-1)
	y = clampInt(y, 0, s.height-1)
	i := (y*s.width + x) * Channels
	return [4]float32{s.pix[i], s.pix[i+1], s.pix[i+2], s.pix[i+3]}
}

func (s *surface) store(x, y int, c [4]float32) {
	i := (y*s.width + x) * Channels
	s.pix[i+0] = sat32(c[0])
	s.pix[i+1] = sat32(c[1])
	s.pix[i+2] = sat32(c[2])
	s.pix[i+3] = sat32(c[3])
}

func (s *surface) gray(x, y int) float32 {
	return gray32(s.load(x, y))
}

func gray32(c [4]float32) float32 {
	return grayR*c[0] + grayG*c[1] + grayB*c[2]
}

func sat32(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}

func splat(v float32) [4]float32 {
	return [4]float32{v, v, v, 1}
}

// kernelFunc computes one output sample at storage coordinates (x, y).
// The bodies mirror the WGSL programs in internal/gpu/shaders.
type kernelFunc func(s *surface, x, y int, p KernelParams) [4]float32

var kernelFuncs = [kernelCount]kernelFunc{
	KernelHeight: func(s *surface, x, y int, _ KernelParams) [4]float32 {
		c := s.load(x, y)
		h := gray32(c)
		return [4]float32{h, h, h, c[3]}
	},
	KernelAO: func(s *surface, x, y int, _ KernelParams) [4]float32 {
		return splat(1 - s.gray(x, y))
	},
	KernelNormal: func(s *surface, x, y int, p KernelParams) [4]float32 {
		left := s.gray(x-1, y)
		right := s.gray(x+1, y)
		up := s.gray(x, y+s.up())
		down := s.gray(x, y-s.up())

		nx, ny, nz := left-right, up-down, p.Depth
		l := math32.Sqrt(nx*nx + ny*ny + nz*nz)
		nx, ny, nz = nx/l*p.Strength, ny/l*p.Strength, nz/l*p.Strength
		return [4]float32{(nx + 1) * 0.5, (ny + 1) * 0.5, (nz + 1) * 0.5, 1}
	},
	KernelRoughness: func(s *surface, x, y int, _ KernelParams) [4]float32 {
		center := s.gray(x, y)
		var sum float32
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				sum += math32.Abs(s.gray(x+dx, y+dy) - center)
			}
		}
		return splat(sum / 8)
	},
	KernelGlossiness: func(s *surface, x, y int, _ KernelParams) [4]float32 {
		return splat(1 - s.gray(x, y))
	},
	KernelGlossinessContrast: func(s *surface, x, y int, _ KernelParams) [4]float32 {
		return splat(1 - math32.Abs(s.gray(x+1, y)-s.gray(x, y)))
	},
	KernelMetallic: func(s *surface, x, y int, _ KernelParams) [4]float32 {
		c := s.load(x, y)
		hi := math32.Max(c[0], math32.Max(c[1], c[2]))
		lo := math32.Min(c[0], math32.Min(c[1], c[2]))
		var saturation float32
		if hi > 0 {
			saturation = (hi - lo) / hi
		}
		return splat(gray32(c) * (1 - saturation))
	},
	KernelSpecular: func(s *surface, x, y int, _ KernelParams) [4]float32 {
		c := s.load(x, y)
		refl := sat32(gray32(c) + SpecularBias)
		return [4]float32{c[0] * refl, c[1] * refl, c[2] * refl, 1}
	},
	KernelDiffuse: func(s *surface, x, y int, _ KernelParams) [4]float32 {
		c := s.load(x, y)
		return splat(lumR*c[0] + lumG*c[1] + lumB*c[2])
	},
}
