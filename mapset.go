// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "github.com/gogpu/pbr/internal/cache"

// MapSet is the output of one generation run as presented downstream.
// Kinds that failed are absent from Maps and recorded in Failures.
type MapSet struct {
	Workflow Workflow
	Maps     map[MapKind]*Raster
	Failures map[MapKind]error
}

// Get returns the map of the given kind.
func (s MapSet) Get(kind MapKind) (*Raster, bool) {
	r, ok := s.Maps[kind]
	return r, ok
}

// Kinds returns the kinds present in the set in declaration order.
func (s MapSet) Kinds() []MapKind {
	kinds := make([]MapKind, 0, len(s.Maps))
	for _, k := range AllMapKinds() {
		if _, ok := s.Maps[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Complete reports whether every kind the workflow requires is present.
func (s MapSet) Complete() bool {
	for _, k := range s.Workflow.Required() {
		if _, ok := s.Maps[k]; !ok {
			return false
		}
	}
	return true
}

// MapSetCache holds the most recent map of every kind for one session.
//
// Publish stores a batch of maps under one lock, so a reader sees all maps
// of a run or none of them. Maps of kinds neither in the batch nor listed
// as stale are kept.
type MapSetCache struct {
	store *cache.Cache[MapKind, *Raster]
}

// NewMapSetCache creates an empty cache.
func NewMapSetCache() *MapSetCache {
	return &MapSetCache{store: cache.New[MapKind, *Raster](0)}
}

// Publish makes every map in batch visible at once, replacing older maps
// of the same kinds. Kinds listed in stale are dropped in the same step,
// so no reader sees them next to the new batch.
func (c *MapSetCache) Publish(batch map[MapKind]*Raster, stale ...MapKind) {
	c.store.SetMany(batch, stale...)
}

// Get returns the cached map of the given kind.
func (c *MapSetCache) Get(kind MapKind) (*Raster, bool) {
	return c.store.Get(kind)
}

// Select returns the cached maps among kinds, taken from one consistent
// snapshot, and the kinds that are not cached.
func (c *MapSetCache) Select(kinds []MapKind) (present map[MapKind]*Raster, missing []MapKind) {
	snap := c.store.Snapshot()
	present = make(map[MapKind]*Raster, len(kinds))
	for _, k := range kinds {
		if r, ok := snap[k]; ok {
			present[k] = r
		} else {
			missing = append(missing, k)
		}
	}
	return present, missing
}

// Snapshot returns a copy of every cached map.
func (c *MapSetCache) Snapshot() map[MapKind]*Raster {
	return c.store.Snapshot()
}

// Len returns the number of cached kinds.
func (c *MapSetCache) Len() int {
	return c.store.Len()
}

// Clear drops every cached map.
func (c *MapSetCache) Clear() {
	c.store.Clear()
}
