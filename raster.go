// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// Channels is the number of samples stored per pixel.
const Channels = 4

// Raster is a width x height grid of straight RGBA samples in [0, 1],
// stored row-major from the top-left pixel.
//
// Every converter returns a newly allocated Raster with the dimensions
// of its input; callers own the result.
type Raster struct {
	width  int
	height int
	pix    []float32 // RGBA, 4 samples per pixel
}

// NewRaster creates a transparent black raster with the given dimensions.
func NewRaster(width, height int) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Raster{
		width:  width,
		height: height,
		pix:    make([]float32, width*height*Channels),
	}
}

// NewRasterFrom wraps an existing sample buffer. The buffer must hold
// exactly width*height*4 samples.
func NewRasterFrom(width, height int, pix []float32) (*Raster, error) {
	r := &Raster{width: width, height: height, pix: pix}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Width returns the width of the raster.
func (r *Raster) Width() int {
	return r.width
}

// Height returns the height of the raster.
func (r *Raster) Height() int {
	return r.height
}

// Pix returns the raw sample buffer (RGBA, row-major).
func (r *Raster) Pix() []float32 {
	return r.pix
}

// Validate reports ErrInvalidRaster for nil, empty, or inconsistent rasters.
func (r *Raster) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil raster", ErrInvalidRaster)
	}
	if r.width <= 0 || r.height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidRaster, r.width, r.height)
	}
	if len(r.pix) != r.width*r.height*Channels {
		return fmt.Errorf("%w: %d samples for %dx%d", ErrInvalidRaster, len(r.pix), r.width, r.height)
	}
	return nil
}

// SameSize reports whether two rasters have equal dimensions.
func (r *Raster) SameSize(o *Raster) bool {
	return r.width == o.width && r.height == o.height
}

// Set sets the color of a single pixel.
// Channels are clamped to [0, 1]; out-of-bounds coordinates are ignored.
func (r *Raster) Set(x, y int, c RGBA) {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return
	}
	i := (y*r.width + x) * Channels
	r.pix[i+0] = float32(clamp01(c.R))
	r.pix[i+1] = float32(clamp01(c.G))
	r.pix[i+2] = float32(clamp01(c.B))
	r.pix[i+3] = float32(clamp01(c.A))
}

// At returns the color of a single pixel.
// Out-of-bounds coordinates return transparent black.
func (r *Raster) At(x, y int) RGBA {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return RGBA{}
	}
	i := (y*r.width + x) * Channels
	return RGBA{
		R: float64(r.pix[i+0]),
		G: float64(r.pix[i+1]),
		B: float64(r.pix[i+2]),
		A: float64(r.pix[i+3]),
	}
}

// GrayAt returns the perceptual grayscale of a pixel, pinning
// out-of-range coordinates to the nearest edge pixel.
func (r *Raster) GrayAt(x, y int) float64 {
	return r.At(clampInt(x, 0, r.width-1), clampInt(y, 0, r.height-1)).Grayscale()
}

// Clear fills the entire raster with a color.
func (r *Raster) Clear(c RGBA) {
	rr, gg, bb, aa := float32(clamp01(c.R)), float32(clamp01(c.G)), float32(clamp01(c.B)), float32(clamp01(c.A))
	for i := 0; i < len(r.pix); i += Channels {
		r.pix[i+0] = rr
		r.pix[i+1] = gg
		r.pix[i+2] = bb
		r.pix[i+3] = aa
	}
}

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	c := NewRaster(r.width, r.height)
	copy(c.pix, r.pix)
	return c
}

// FromImage converts any decoded image into a Raster. Premultiplied and
// paletted sources are normalized to straight RGBA first.
func FromImage(img image.Image) *Raster {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	src, ok := img.(*image.NRGBA64)
	if !ok {
		src = image.NewNRGBA64(image.Rect(0, 0, width, height))
		draw.Draw(src, src.Bounds(), img, bounds.Min, draw.Src)
	}

	r := NewRaster(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := src.NRGBA64At(src.Rect.Min.X+x, src.Rect.Min.Y+y)
			i := (y*width + x) * Channels
			r.pix[i+0] = float32(c.R) / 65535
			r.pix[i+1] = float32(c.G) / 65535
			r.pix[i+2] = float32(c.B) / 65535
			r.pix[i+3] = float32(c.A) / 65535
		}
	}
	return r
}

// ToImage converts the raster to an 8-bit image.NRGBA.
func (r *Raster) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.width, r.height))
	for i := 0; i < len(r.pix); i++ {
		img.Pix[i] = to8(float64(r.pix[i]))
	}
	return img
}

// SavePNG saves the raster to a PNG file.
func (r *Raster) SavePNG(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	if err := png.Encode(f, r.ToImage()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Bounds returns the raster rectangle anchored at the origin.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Image returns an image.Image view of the raster.
func (r *Raster) Image() image.Image {
	return rasterImage{r}
}

// rasterImage adapts Raster to image.Image without clashing with Raster.At.
type rasterImage struct{ r *Raster }

func (i rasterImage) ColorModel() color.Model { return color.NRGBAModel }
func (i rasterImage) Bounds() image.Rectangle { return i.r.Bounds() }
func (i rasterImage) At(x, y int) color.Color { return i.r.At(x, y).Color() }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
