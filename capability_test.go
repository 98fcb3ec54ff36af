// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestCapabilityProbesOnce(t *testing.T) {
	var probes atomic.Int32
	c := NewCapability(func() bool {
		probes.Add(1)
		return true
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.Available() {
				t.Error("Available() = false")
			}
		}()
	}
	wg.Wait()

	if n := probes.Load(); n != 1 {
		t.Errorf("probe ran %d times, want 1", n)
	}
}

func TestCapabilityNilProbe(t *testing.T) {
	c := NewCapability(nil)
	if c.Available() || c.Enabled() {
		t.Error("nil probe should report no capability")
	}
	c.SetAcceleration(true)
	if c.Enabled() {
		t.Error("SetAcceleration(true) must not create capability")
	}
}

func TestCapabilitySetAcceleration(t *testing.T) {
	c := enabled()
	if !c.Enabled() {
		t.Fatal("Enabled() = false on an available capability")
	}
	c.SetAcceleration(false)
	if c.Enabled() {
		t.Error("Enabled() = true after SetAcceleration(false)")
	}
	if !c.Available() {
		t.Error("SetAcceleration must not change Available()")
	}
	c.SetAcceleration(true)
	if !c.Enabled() {
		t.Error("Enabled() = false after SetAcceleration(true)")
	}
}

func TestDefaultCapabilitySwitch(t *testing.T) {
	t.Cleanup(func() { SetAcceleration(true) })

	SetAcceleration(false)
	if AccelerationEnabled() {
		t.Error("AccelerationEnabled() = true after SetAcceleration(false)")
	}
	if DefaultExecutor().Capability() != DefaultCapability() {
		t.Error("default executor should share the default capability")
	}
}

func TestCapabilityDerive(t *testing.T) {
	parent := enabled()
	a, b := parent.Derive(), parent.Derive()
	if !a.Available() || !a.Enabled() {
		t.Fatal("derived capability should follow an enabled parent")
	}

	a.SetAcceleration(false)
	if a.Enabled() {
		t.Error("Enabled() = true after SetAcceleration(false)")
	}
	if !b.Enabled() || !parent.Enabled() {
		t.Error("switching one derived capability affected its siblings or parent")
	}

	parent.SetAcceleration(false)
	if b.Enabled() {
		t.Error("derived capability stayed on with its parent forced off")
	}
	parent.SetAcceleration(true)
	if !b.Enabled() {
		t.Error("derived capability stayed off after its parent was re-enabled")
	}

	none := NewCapability(nil).Derive()
	if none.Available() || none.Enabled() {
		t.Error("derived capability reports availability its parent lacks")
	}
}
