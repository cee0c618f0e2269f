// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import (
	"fmt"
	"time"
)

// CacheStats tracks hit / miss counts and per-miss build durations for
// the pipeline and collection caches. Misses are where the frame time
// goes, so the build durations are kept as individual samples.
type CacheStats struct {
	Hits   int
	Misses int

	// BuildTimes has one sample per miss.
	BuildTimes []time.Duration
}

func (cs *CacheStats) hit()  { cs.Hits++ }
func (cs *CacheStats) miss() { cs.Misses++ }

func (cs *CacheStats) addBuildTime(since time.Time) {
	cs.BuildTimes = append(cs.BuildTimes, time.Since(since))
}

// AvgBuildTime returns the mean build duration across all misses,
// 0 if there were none.
func (cs *CacheStats) AvgBuildTime() time.Duration {
	if len(cs.BuildTimes) == 0 {
		return 0
	}
	var sum time.Duration
	for _, bt := range cs.BuildTimes {
		sum += bt
	}
	return sum / time.Duration(len(cs.BuildTimes))
}

// HitRate returns hits / (hits + misses) as a percentage,
// 0 if the cache was never used.
func (cs *CacheStats) HitRate() float64 {
	total := cs.Hits + cs.Misses
	if total == 0 {
		return 0
	}
	return float64(cs.Hits) / float64(total) * 100
}

func (cs *CacheStats) String() string {
	return fmt.Sprintf("hits: %d, misses: %d, %.1f%%, avg. build time: %v",
		cs.Hits, cs.Misses, cs.HitRate(), cs.AvgBuildTime())
}
