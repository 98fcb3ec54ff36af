// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/pbr"
)

// bytesPerPixel is the size of one vec4<f32> surface element.
const bytesPerPixel = pbr.Channels * 4

// paramsSize is the size of the Params uniform block in common.wgsl.
const paramsSize = 32

// packSurface serializes straight RGBA samples into a storage buffer image,
// reversing row order for bottom-up surfaces.
func packSurface(pix []float32, width, height int, bottomUp bool) []byte {
	stride := width * pbr.Channels
	out := make([]byte, len(pix)*4)
	for y := 0; y < height; y++ {
		row := surfaceRow(y, height, bottomUp)
		for i := 0; i < stride; i++ {
			v := math.Float32bits(pix[y*stride+i])
			binary.LittleEndian.PutUint32(out[(row*stride+i)*4:], v)
		}
	}
	return out
}

// unpackSurface is the inverse of packSurface.
func unpackSurface(b []byte, width, height int, bottomUp bool) []float32 {
	stride := width * pbr.Channels
	out := make([]float32, width*height*pbr.Channels)
	for y := 0; y < height; y++ {
		row := surfaceRow(y, height, bottomUp)
		for i := 0; i < stride; i++ {
			out[y*stride+i] = math.Float32frombits(binary.LittleEndian.Uint32(b[(row*stride+i)*4:]))
		}
	}
	return out
}

// surfaceRow maps an image row to its storage row.
func surfaceRow(y, height int, bottomUp bool) int {
	if bottomUp {
		return height - 1 - y
	}
	return y
}

// encodeParams lays out the Params uniform block.
func encodeParams(width, height uint32, bottomUp bool, p pbr.KernelParams) []byte {
	b := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(b[0:], width)
	binary.LittleEndian.PutUint32(b[4:], height)
	if bottomUp {
		binary.LittleEndian.PutUint32(b[8:], 1)
	}
	binary.LittleEndian.PutUint32(b[16:], math.Float32bits(p.Depth))
	binary.LittleEndian.PutUint32(b[20:], math.Float32bits(p.Strength))
	return b
}

// workgroups returns the dispatch grid for an image.
func workgroups(width, height uint32) (x, y uint32) {
	return (width + pbr.WorkgroupSize - 1) / pbr.WorkgroupSize, (height + pbr.WorkgroupSize - 1) / pbr.WorkgroupSize
}
