// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "log/slog"

// Option configures a Generator during creation.
//
// Example:
//
//	// Process-wide capability and accelerator
//	g := pbr.NewGenerator()
//
//	// Deterministic software tiles, legacy normal scale
//	g := pbr.NewGenerator(
//	    pbr.WithAccelerator(pbr.NewTileAccelerator(0)),
//	    pbr.WithNormalParams(pbr.DefaultNormalDepth, pbr.LegacyNormalStrength),
//	)
type Option func(*generatorOptions)

// generatorOptions holds optional configuration for Generator creation.
type generatorOptions struct {
	capability *Capability
	accel      Accelerator
	workers    int
	settings   Settings
	logger     *slog.Logger
}

// defaultOptions returns the default generator options.
func defaultOptions() generatorOptions {
	return generatorOptions{
		capability: nil, // process-wide detector
		accel:      nil, // process-wide registered accelerator
		workers:    0,   // GOMAXPROCS
		settings:   DefaultSettings(),
	}
}

// WithCapability sets the detector that gates the accelerated path.
// Tests use this to force or deny acceleration independently of the
// process-wide detector.
func WithCapability(c *Capability) Option {
	return func(o *generatorOptions) {
		o.capability = c
	}
}

// WithAccelerator sets the accelerator kernels are dispatched to instead
// of the registered one. The Generator calls Init on it and Close when the
// Generator is closed. Unless WithCapability is also given, the capability
// reports available.
//
// Example:
//
//	g := pbr.NewGenerator(pbr.WithAccelerator(pbr.NewTileAccelerator(4)))
func WithAccelerator(a Accelerator) Option {
	return func(o *generatorOptions) {
		o.accel = a
	}
}

// WithWorkers sets the number of conversion units run concurrently.
// 0 or negative means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *generatorOptions) {
		o.workers = n
	}
}

// WithNormalParams sets the normal map depth and strength. Zero values
// keep DefaultNormalDepth and DefaultNormalStrength.
func WithNormalParams(depth, strength float64) Option {
	return func(o *generatorOptions) {
		o.settings.NormalDepth = depth
		o.settings.NormalStrength = strength
	}
}

// WithGlossinessMode selects the glossiness algorithm.
func WithGlossinessMode(m GlossinessMode) Option {
	return func(o *generatorOptions) {
		o.settings.Glossiness = m
	}
}

// WithLogger sets the logger used by this Generator. By default it uses
// the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *generatorOptions) {
		o.logger = l
	}
}
