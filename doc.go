// Package pbr derives physically based rendering (PBR) texture maps from a
// single base color image.
//
// # Overview
//
// pbr turns one albedo image into the maps a material needs: height,
// normal, ambient occlusion, and either metallic/roughness or
// specular/glossiness. Every map has a CPU implementation and an
// accelerated one that runs on a GPU or on a tile worker pool, with the
// same output within 1/255 per channel.
//
// # Quick Start
//
//	import "github.com/gogpu/pbr"
//
//	base := pbr.FromImage(img)
//
//	g := pbr.NewGenerator()
//	defer g.Close()
//
//	run, err := g.GenerateAll(ctx, base, pbr.WorkflowBase)
//	if err != nil {
//	    return err
//	}
//	set, err := run.Wait(ctx)
//	if err != nil {
//	    return err
//	}
//	normal, _ := set.Get(pbr.Normal)
//	normal.SavePNG("normal.png")
//
// # Workflows
//
// Height, Normal and AO are part of every workflow. WorkflowBase adds
// Metallic and Roughness; WorkflowDiffuse adds Specular and Glossiness.
// Generator.SwitchWorkflow presents another workflow and generates only
// the maps that are not cached yet.
//
// # Acceleration
//
// Converters route per-pixel kernels through an Accelerator when the
// Capability detector reports one and acceleration is enabled. An
// accelerator that cannot run a kernel reports ErrCapabilityUnavailable or
// ErrKernelInitializationFailed and the converter silently uses the CPU
// path instead; ErrReadbackFailed fails the map.
//
// GPU acceleration is opt-in via blank import:
//
//	import _ "github.com/gogpu/pbr/gpu"
//
// # Architecture
//
// The library is organized into:
//   - Public API: Generator, Converter, Raster, MapSet, MapSetCache
//   - Acceleration: Accelerator, Capability, Executor, TileAccelerator
//   - Internal: parallel (worker pool, tiles), cache (LRU store), gpu (wgpu kernels)
//
// # Coordinate System
//
// Rasters are stored row-major from the top-left pixel. "Up" is the row
// above, y-1. Accelerators backed by bottom-up surfaces flip rows on
// upload and readback so both paths agree on orientation.
package pbr
