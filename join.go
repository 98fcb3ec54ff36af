// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import "sync/atomic"

// JoinState counts completed units of one generation run. Complete is the
// only mutating entry point; it reports true to exactly one caller, the
// one whose completion brings the count to the total.
type JoinState struct {
	completed atomic.Int64
	total     int64
}

// NewJoinState creates a join for total units.
func NewJoinState(total int) *JoinState {
	return &JoinState{total: int64(total)}
}

// Complete records one finished unit, successful or failed. It returns
// true exactly once per JoinState. Completions past the total are counted
// but never return true.
func (j *JoinState) Complete() bool {
	return j.completed.Add(1) == j.total
}

// Completed returns the number of units recorded so far.
func (j *JoinState) Completed() int {
	return int(j.completed.Load())
}

// Total returns the number of units the join waits for.
func (j *JoinState) Total() int {
	return int(j.total)
}

// Done reports whether every unit has completed.
func (j *JoinState) Done() bool {
	return j.completed.Load() >= j.total
}
