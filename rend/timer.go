// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import (
	"fmt"
	"time"
)

// Timer accumulates wall-clock time across repeated start / stop
// intervals, for coarse per-stage frame timing in examples and
// benchmarks.
type Timer struct {
	Name string

	total   time.Duration
	count   int
	started time.Time
}

// NewTimer returns a named, stopped timer.
func NewTimer(name string) *Timer {
	return &Timer{Name: name}
}

// Start begins an interval.
func (tm *Timer) Start() {
	tm.started = time.Now()
}

// Stop ends the current interval and adds it to the total.
func (tm *Timer) Stop() {
	tm.total += time.Since(tm.started)
	tm.count++
}

// Avg returns the mean interval duration.
func (tm *Timer) Avg() time.Duration {
	if tm.count == 0 {
		return 0
	}
	return tm.total / time.Duration(tm.count)
}

func (tm *Timer) String() string {
	return fmt.Sprintf("%s: %v total, %v avg over %d runs", tm.Name, tm.total, tm.Avg(), tm.count)
}

// Print prints the timer's summary line.
func (tm *Timer) Print() {
	fmt.Println(tm.String())
}
