// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"errors"
	"fmt"
)

// Conversion errors.
var (
	// ErrInvalidRaster is returned for nil, empty, or malformed input rasters.
	ErrInvalidRaster = errors.New("pbr: invalid raster")

	// ErrCapabilityUnavailable indicates that no accelerator is registered,
	// acceleration is switched off, or the accelerator does not support the
	// requested kernel. Converters fall back to the CPU path.
	ErrCapabilityUnavailable = errors.New("pbr: acceleration unavailable")

	// ErrKernelInitializationFailed indicates that an accelerated program
	// failed to compile or load. Converters fall back to the CPU path.
	ErrKernelInitializationFailed = errors.New("pbr: kernel initialization failed")

	// ErrReadbackFailed indicates that an accelerated result could not be
	// retrieved from the device. The unit fails; there is no fallback.
	ErrReadbackFailed = errors.New("pbr: readback failed")

	// ErrDependencyFailed is returned by composite conversions (Normal,
	// Glossiness) when their input conversion failed.
	ErrDependencyFailed = errors.New("pbr: dependency failed")

	// ErrGeneratorClosed is returned by a Generator after Close.
	ErrGeneratorClosed = errors.New("pbr: generator closed")
)

// ErrFallbackToCPU indicates the accelerator cannot handle this operation.
// The caller should transparently fall back to the CPU path.
var ErrFallbackToCPU = fmt.Errorf("%w: falling back to CPU", ErrCapabilityUnavailable)

// ConversionError records which map kind a failure belongs to.
type ConversionError struct {
	Kind MapKind
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("pbr: %s map: %v", e.Kind, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// IsFallback reports whether err means "run the CPU path instead" rather
// than a runtime failure of the accelerated path.
func IsFallback(err error) bool {
	return errors.Is(err, ErrCapabilityUnavailable) || errors.Is(err, ErrKernelInitializationFailed)
}

// wrapKind attaches a map kind to err unless it already carries one.
func wrapKind(kind MapKind, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConversionError
	if errors.As(err, &ce) && ce.Kind == kind {
		return err
	}
	return &ConversionError{Kind: kind, Err: err}
}
