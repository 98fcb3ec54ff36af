// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"sync"
	"sync/atomic"
)

// Capability answers whether accelerated execution is available and enabled.
//
// Availability is probed once, on first query, and cached for the lifetime
// of the Capability; a changed environment is not observed afterwards.
// The enable switch is independent and may be flipped at any time.
//
// Capability is safe for concurrent use.
type Capability struct {
	probe     func() bool
	parent    *Capability
	once      sync.Once
	available bool
	disabled  atomic.Bool
}

// NewCapability creates a detector using probe. A nil probe reports no
// capability.
func NewCapability(probe func() bool) *Capability {
	return &Capability{probe: probe}
}

// Derive returns a detector that shares c's availability and honours c's
// enable switch, but has an enable switch of its own. Turning the derived
// detector off does not affect c.
func (c *Capability) Derive() *Capability {
	return &Capability{parent: c}
}

// Available reports whether the environment exposes an accelerator.
func (c *Capability) Available() bool {
	if c.parent != nil {
		return c.parent.Available()
	}
	c.once.Do(func() {
		if c.probe != nil {
			c.available = c.probe()
		}
	})
	return c.available
}

// SetAcceleration forces the CPU-only path when enable is false.
func (c *Capability) SetAcceleration(enable bool) {
	c.disabled.Store(!enable)
}

// Enabled returns Available() && not forced off. A derived detector is
// also off when its parent is forced off.
func (c *Capability) Enabled() bool {
	if c.disabled.Load() {
		return false
	}
	if c.parent != nil {
		return c.parent.Enabled()
	}
	return c.Available()
}

// defaultCapability probes the accelerator registry.
var defaultCapability = NewCapability(func() bool {
	return RegisteredAccelerator() != nil
})

// DefaultCapability returns the process-wide detector.
func DefaultCapability() *Capability { return defaultCapability }

// CapabilityAvailable reports whether the process has a registered accelerator.
func CapabilityAvailable() bool { return defaultCapability.Available() }

// SetAcceleration enables or disables the process-wide accelerated path.
func SetAcceleration(enable bool) { defaultCapability.SetAcceleration(enable) }

// AccelerationEnabled returns CapabilityAvailable() && not forced off.
func AccelerationEnabled() bool { return defaultCapability.Enabled() }
