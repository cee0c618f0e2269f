// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend_test

import (
	"testing"
	"time"

	"github.com/cynic64/render-engine-sub000/rend"
	"github.com/cynic64/render-engine-sub000/rend/rendtest"
	"github.com/stretchr/testify/assert"
)

func triangleSpec() *rend.PipelineSpec {
	return &rend.PipelineSpec{
		VertexPath:   "shaders/triangle/vert.spv",
		FragmentPath: "shaders/triangle/frag.spv",
		Topology:     rend.TriangleList,
		VertexLayout: rend.LayoutPosColor2D,
	}
}

func TestPipelineSpecEquality(t *testing.T) {
	s1 := triangleSpec()
	s2 := triangleSpec()
	assert.True(t, s1.Equals(s2))
	assert.Equal(t, s1.Key(), s2.Key())

	s2.FragmentPath = "shaders/triangle/other.spv"
	assert.False(t, s1.Equals(s2))

	s3 := triangleSpec()
	s3.ReadDepth = true
	assert.False(t, s1.Equals(s3))

	s4 := triangleSpec()
	s4.VertexLayout = rend.LayoutPosUVNormal
	assert.False(t, s1.Equals(s4))

	// the binding-layout descriptor is not part of identity
	s5 := triangleSpec()
	s5.Sets = []rend.SetLayout{{rend.UniformBinding}}
	assert.True(t, s1.Equals(s5))
}

func TestPipelineCacheHitMiss(t *testing.T) {
	bk := rendtest.New()
	bk.BuildDelay = 2 * time.Millisecond
	pc := rend.NewPipelineCache(bk, "geometry", rendtest.BasicPass())

	p1 := pc.Get(triangleSpec())
	assert.NotNil(t, p1)
	assert.Equal(t, 0, pc.Stats().Hits)
	assert.Equal(t, 1, pc.Stats().Misses)
	assert.Len(t, pc.Stats().BuildTimes, 1)
	assert.GreaterOrEqual(t, pc.Stats().BuildTimes[0], bk.BuildDelay)

	// structurally equal spec must return the same pipeline identity
	p2 := pc.Get(triangleSpec())
	assert.Same(t, p1, p2)
	assert.Equal(t, 1, pc.Stats().Hits)
	assert.Equal(t, 1, pc.Stats().Misses)
	assert.Len(t, pc.Stats().BuildTimes, 1)

	// a different spec is a fresh build
	other := triangleSpec()
	other.Topology = rend.LineList
	p3 := pc.Get(other)
	assert.NotSame(t, p1, p3)
	assert.Equal(t, 2, pc.Stats().Misses)
	assert.Len(t, bk.Pipelines, 2)
}

func TestPipelineCacheBuildFailureIsFatal(t *testing.T) {
	bk := rendtest.New()
	bk.FailPipelines = true
	pc := rend.NewPipelineCache(bk, "geometry", rendtest.BasicPass())
	assert.Panics(t, func() {
		pc.Get(triangleSpec())
	})
}

func TestCacheStats(t *testing.T) {
	var cs rend.CacheStats
	assert.Equal(t, 0.0, cs.HitRate())
	assert.Equal(t, time.Duration(0), cs.AvgBuildTime())

	cs.Hits = 3
	cs.Misses = 1
	cs.BuildTimes = []time.Duration{2 * time.Millisecond, 4 * time.Millisecond}
	assert.InDelta(t, 75.0, cs.HitRate(), 0.001)
	assert.Equal(t, 3*time.Millisecond, cs.AvgBuildTime())
	assert.Contains(t, cs.String(), "hits: 3")
}
