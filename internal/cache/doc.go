// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package cache provides a generic, thread-safe LRU cache whose batch
// writes become visible all at once.
//
//	c := cache.New[string, int](100)
//	c.SetMany(map[string]int{"a": 1, "b": 2})
//	value, ok := c.Get("a")
//
// A reader never observes part of a SetMany batch: Get, Snapshot and Len
// see either none of the batch or all of it.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation
// (it contains a mutex).
package cache
