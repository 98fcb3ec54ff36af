// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package parallel provides the worker pool and tile partitioning used to
// run per-pixel kernels on the CPU.
//
// An image is split into square tiles, ceil-divided at the right and bottom
// edges, mirroring the workgroup grid of the GPU dispatch so that the
// software and hardware paths partition work identically.
package parallel

// Tile is a rectangular region of pixels processed as one work item.
// Edge tiles may be narrower or shorter than the nominal tile size.
type Tile struct {
	// X and Y are the pixel coordinates of the top-left corner.
	X, Y int

	// Width and Height are the actual tile dimensions in pixels.
	Width, Height int
}

// Tiles partitions a width x height image into size x size tiles in
// row-major order. It returns nil for empty images or a non-positive size.
func Tiles(width, height, size int) []Tile {
	if width <= 0 || height <= 0 || size <= 0 {
		return nil
	}
	cols := (width + size - 1) / size
	rows := (height + size - 1) / size

	tiles := make([]Tile, 0, cols*rows)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			x, y := tx*size, ty*size
			tiles = append(tiles, Tile{
				X:      x,
				Y:      y,
				Width:  min(size, width-x),
				Height: min(size, height-y),
			})
		}
	}
	return tiles
}

// Pixels returns the number of pixels covered by the tile.
func (t Tile) Pixels() int {
	return t.Width * t.Height
}
