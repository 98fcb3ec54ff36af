// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"fmt"
)

// Converter derives one map kind from a base color raster.
//
// ConvertCPU is synchronous and single-threaded. ConvertAccelerated runs
// the accelerated kernel when the executor's capability allows it and
// falls back to the CPU algorithm otherwise; its channel receives exactly
// one Result. Both paths produce the same output within 1/255 per channel.
type Converter interface {
	Kind() MapKind
	ConvertCPU(base *Raster) (*Raster, error)
	ConvertAccelerated(ctx context.Context, base *Raster) <-chan Result
}

// Executor routes kernels to an accelerator when its capability allows.
// A nil *Executor behaves like DefaultExecutor().
type Executor struct {
	capability *Capability
	accel      Accelerator
}

// NewExecutor creates an executor. A nil accelerator means the
// process-wide registered one; a nil capability means the default detector.
func NewExecutor(c *Capability, a Accelerator) *Executor {
	if c == nil {
		c = defaultCapability
	}
	return &Executor{capability: c, accel: a}
}

var defaultExecutor = &Executor{capability: defaultCapability}

// DefaultExecutor returns the executor bound to the process-wide
// capability detector and accelerator registry.
func DefaultExecutor() *Executor { return defaultExecutor }

func executorOf(e *Executor) *Executor {
	if e == nil {
		return defaultExecutor
	}
	return e
}

// Capability returns the detector guarding the accelerated path.
func (e *Executor) Capability() *Capability {
	return executorOf(e).capability
}

// Accelerator returns the accelerator kernels are sent to, or nil.
func (e *Executor) Accelerator() Accelerator {
	e = executorOf(e)
	if e.accel != nil {
		return e.accel
	}
	return RegisteredAccelerator()
}

// accelerator returns a usable accelerator for k or a fallback error.
func (e *Executor) accelerator(k Kernel) (Accelerator, error) {
	if !e.Capability().Enabled() {
		return nil, ErrCapabilityUnavailable
	}
	a := e.Accelerator()
	if a == nil {
		return nil, ErrCapabilityUnavailable
	}
	if !a.CanAccelerate(k) {
		return nil, fmt.Errorf("%w: %s on %s", ErrFallbackToCPU, k, a.Name())
	}
	return a, nil
}

// run dispatches kernel k over src and substitutes the CPU algorithm when
// the accelerator signals unavailability, before or after dispatch.
func (e *Executor) run(ctx context.Context, kind MapKind, k Kernel, src *Raster, params KernelParams,
	cpu func(*Raster) (*Raster, error),
) <-chan Result {
	if err := src.Validate(); err != nil {
		return completed(Result{Err: wrapKind(kind, err)})
	}

	a, err := e.accelerator(k)
	if err != nil {
		return completed(cpuResult(kind, src, cpu))
	}

	Logger().Debug("pbr: dispatch", "kernel", k, "accelerator", a.Name(),
		"width", src.Width(), "height", src.Height())

	out := make(chan Result, 1)
	pending := a.Dispatch(ctx, k, src, params)
	go func() {
		r := await(ctx, pending)
		switch {
		case r.Err == nil && r.Raster != nil && !r.Raster.SameSize(src):
			r = Result{Err: wrapKind(kind, fmt.Errorf("%w: %dx%d result for %dx%d input",
				ErrReadbackFailed, r.Raster.Width(), r.Raster.Height(), src.Width(), src.Height()))}
		case r.Err == nil && r.Raster == nil:
			r = Result{Err: wrapKind(kind, fmt.Errorf("%w: empty result", ErrReadbackFailed))}
		case IsFallback(r.Err):
			Logger().Warn("pbr: falling back to CPU", "kernel", k, "err", r.Err)
			r = cpuResult(kind, src, cpu)
		case r.Err != nil:
			r = Result{Err: wrapKind(kind, r.Err)}
		}
		out <- r
	}()
	return out
}

func cpuResult(kind MapKind, src *Raster, cpu func(*Raster) (*Raster, error)) Result {
	dst, err := cpu(src)
	if err != nil {
		return Result{Err: wrapKind(kind, err)}
	}
	return Result{Raster: dst}
}

// dependencyFailed wraps the failure of a composite conversion's input.
func dependencyFailed(kind MapKind, cause error) Result {
	return Result{Err: &ConversionError{Kind: kind, Err: fmt.Errorf("%w: %w", ErrDependencyFailed, cause)}}
}

// mapPixels allocates a raster like src and fills it pixel by pixel.
func mapPixels(src *Raster, fn func(x, y int) RGBA) (*Raster, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	dst := NewRaster(src.Width(), src.Height())
	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			dst.Set(x, y, fn(x, y))
		}
	}
	return dst, nil
}

// Settings holds converter tunables shared by a converter set.
type Settings struct {
	// NormalDepth is the z component of the unnormalized normal.
	NormalDepth float64

	// NormalStrength scales the normalized normal before remapping.
	NormalStrength float64

	// Glossiness selects the glossiness algorithm.
	Glossiness GlossinessMode
}

// DefaultSettings returns the canonical tunables.
func DefaultSettings() Settings {
	return Settings{
		NormalDepth:    DefaultNormalDepth,
		NormalStrength: DefaultNormalStrength,
		Glossiness:     GlossinessInverseRoughness,
	}
}

// ConverterSet holds one converter per map kind, wired so that Normal
// composes Height and Glossiness composes Roughness.
type ConverterSet struct {
	converters [mapKindCount]Converter
}

// NewConverterSet builds all converters on one executor.
func NewConverterSet(e *Executor, s Settings) *ConverterSet {
	height := &HeightConverter{Exec: e}
	roughness := &RoughnessConverter{Exec: e}

	cs := &ConverterSet{}
	cs.converters[Height] = height
	cs.converters[AO] = &AOConverter{Exec: e}
	cs.converters[Normal] = &NormalConverter{Exec: e, Height: height, Depth: s.NormalDepth, Strength: s.NormalStrength}
	cs.converters[Roughness] = roughness
	cs.converters[Glossiness] = &GlossinessConverter{Exec: e, Roughness: roughness, Mode: s.Glossiness}
	cs.converters[Metallic] = &MetallicConverter{Exec: e}
	cs.converters[Specular] = &SpecularConverter{Exec: e}
	cs.converters[Diffuse] = &DiffuseConverter{Exec: e}
	return cs
}

// Get returns the converter for kind, or nil for an unknown kind.
func (cs *ConverterSet) Get(kind MapKind) Converter {
	if !kind.Valid() {
		return nil
	}
	return cs.converters[kind]
}
