// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "fmt"

// WorkgroupSize is the edge length of the square pixel tile covered by one
// accelerated workgroup. Dispatch grids are ceil(width/8) x ceil(height/8).
const WorkgroupSize = 8

// Kernel names an accelerated per-pixel program.
type Kernel uint8

const (
	// KernelHeight writes the grayscale of each pixel.
	KernelHeight Kernel = iota

	// KernelAO writes one minus the grayscale of each pixel.
	KernelAO

	// KernelNormal derives normals from a height raster.
	KernelNormal

	// KernelRoughness writes the mean absolute grayscale difference
	// against the 8 neighbors.
	KernelRoughness

	// KernelGlossiness inverts a roughness raster.
	KernelGlossiness

	// KernelGlossinessContrast writes one minus the contrast against the
	// right neighbor of a base raster.
	KernelGlossinessContrast

	// KernelMetallic writes grayscale scaled by (1 - saturation).
	KernelMetallic

	// KernelSpecular scales the base color by its reflectivity.
	KernelSpecular

	// KernelDiffuse writes the BT.709 luminance of each pixel.
	KernelDiffuse

	kernelCount
)

var kernelNames = [kernelCount]string{
	KernelHeight:             "height",
	KernelAO:                 "ao",
	KernelNormal:             "normal",
	KernelRoughness:          "roughness",
	KernelGlossiness:         "glossiness",
	KernelGlossinessContrast: "glossiness_contrast",
	KernelMetallic:           "metallic",
	KernelSpecular:           "specular",
	KernelDiffuse:            "diffuse",
}

// AllKernels returns every kernel in declaration order.
func AllKernels() []Kernel {
	ks := make([]Kernel, 0, kernelCount)
	for k := Kernel(0); k < kernelCount; k++ {
		ks = append(ks, k)
	}
	return ks
}

// String returns the kernel name, which is also its shader file name.
func (k Kernel) String() string {
	if k >= kernelCount {
		return fmt.Sprintf("Kernel(%d)", uint8(k))
	}
	return kernelNames[k]
}

// KernelParams are the tunables uploaded with every dispatch.
// Only the Normal kernel reads them today.
type KernelParams struct {
	// Depth is the z component of the unnormalized normal.
	Depth float32

	// Strength scales the normalized normal before remapping to [0, 1].
	Strength float32
}

// TileCount returns the dispatch grid for an image, ceil-dividing edges.
func TileCount(width, height int) (x, y int) {
	return (width + WorkgroupSize - 1) / WorkgroupSize, (height + WorkgroupSize - 1) / WorkgroupSize
}
