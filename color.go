// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Luminance weights used by the converters.
const (
	// Perceptual grayscale (ITU-R BT.601). Height, AO, Normal, Roughness,
	// Glossiness, Metallic and Specular all measure brightness with these.
	grayR = 0.299
	grayG = 0.587
	grayB = 0.114

	// Linear luminance (ITU-R BT.709), used only by the Diffuse map.
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// RGBA represents a color with red, green, blue, and alpha components.
// Each component is in the range [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// Gray returns an opaque color with v in every color channel.
func Gray(v float64) RGBA {
	return RGBA{R: v, G: v, B: v, A: 1}
}

// RGB creates an opaque color from RGB components.
func RGB(r, g, b float64) RGBA {
	return RGBA{R: r, G: g, B: b, A: 1}
}

// Grayscale returns the perceptual brightness of the color, ignoring alpha.
func (c RGBA) Grayscale() float64 {
	return grayR*c.R + grayG*c.G + grayB*c.B
}

// Luminance returns the BT.709 luminance of the color, ignoring alpha.
func (c RGBA) Luminance() float64 {
	return lumR*c.R + lumG*c.G + lumB*c.B
}

// Saturation returns the HSV saturation of the color.
func (c RGBA) Saturation() float64 {
	_, s, _ := colorful.Color{R: c.R, G: c.G, B: c.B}.Hsv()
	return s
}

// Color converts RGBA to the standard color.Color interface.
func (c RGBA) Color() color.Color {
	return color.NRGBA{
		R: to8(c.R),
		G: to8(c.G),
		B: to8(c.B),
		A: to8(c.A),
	}
}

// FromColor converts a standard color.Color to straight (non-premultiplied) RGBA.
func FromColor(c color.Color) RGBA {
	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return RGBA{
		R: float64(n.R) / 65535,
		G: float64(n.G) / 65535,
		B: float64(n.B) / 65535,
		A: float64(n.A) / 65535,
	}
}

// Common colors
var (
	Black = RGB(0, 0, 0)
	White = RGB(1, 1, 1)
)

// clamp01 restricts a value to [0, 1] range.
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// to8 quantizes a [0, 1] channel to 8 bits with rounding.
func to8(x float64) uint8 {
	return uint8(math.Round(clamp01(x) * 255))
}
