// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import (
	"fmt"
	"log/slog"
	"time"
)

// PipelineSpec describes everything needed to build a graphics
// pipeline: the shader pair, primitive topology, depth modes, and the
// vertex layout. It is the cache key for pipeline construction, so it
// must be treated as immutable once in use; to switch shaders on an
// object between frames, give the object a new spec.
type PipelineSpec struct {
	// VertexPath and FragmentPath locate the compiled shader pair.
	VertexPath   string
	FragmentPath string

	Topology Topologies

	// ReadDepth enables the depth test, WriteDepth depth writes.
	ReadDepth  bool
	WriteDepth bool

	VertexLayout *VertexLayout

	// Sets describes the descriptor interface of the shader pair, one
	// SetLayout per set in binding order. It stands in for shader
	// reflection, which is outside this core, and does not participate
	// in spec equality: the same shaders always have the same sets.
	Sets []SetLayout
}

// PipelineKey is the comparable key derived from a spec's identity
// fields. Two specs with equal keys build identical pipelines within
// one render pass.
type PipelineKey struct {
	VertexPath   string
	FragmentPath string
	Topology     Topologies
	ReadDepth    bool
	WriteDepth   bool
	Layout       string
}

// Key returns the cache key for this spec.
func (sp *PipelineSpec) Key() PipelineKey {
	key := PipelineKey{
		VertexPath:   sp.VertexPath,
		FragmentPath: sp.FragmentPath,
		Topology:     sp.Topology,
		ReadDepth:    sp.ReadDepth,
		WriteDepth:   sp.WriteDepth,
	}
	if sp.VertexLayout != nil {
		key.Layout = sp.VertexLayout.Key()
	}
	return key
}

// Equals reports structural equality of two specs.
func (sp *PipelineSpec) Equals(other *PipelineSpec) bool {
	return sp.Key() == other.Key()
}

// PipelineCache memoizes compiled pipelines keyed by PipelineSpec.
// Pipelines are only valid within the render pass they were built
// against, so each Pass in a System owns one cache. Entries are never
// evicted: the key space is the set of authored shader / material
// combinations, which is small and fixed.
type PipelineCache struct {
	backend    Backend
	passName   string
	renderPass RenderPass

	pipelines map[PipelineKey]Pipeline
	stats     CacheStats
}

// NewPipelineCache returns a cache building pipelines against given
// render pass. passName is used in diagnostics only.
func NewPipelineCache(b Backend, passName string, rp RenderPass) *PipelineCache {
	return &PipelineCache{
		backend:    b,
		passName:   passName,
		renderPass: rp,
		pipelines:  make(map[PipelineKey]Pipeline),
	}
}

// Get returns the pipeline for given spec, building and caching it on
// first use. A build failure is a content error (bad or missing shader
// file) from which rendering cannot proceed, so it panics.
func (pc *PipelineCache) Get(sp *PipelineSpec) Pipeline {
	key := sp.Key()
	if pl, ok := pc.pipelines[key]; ok {
		pc.stats.hit()
		return pl
	}
	pc.stats.miss()
	start := time.Now()
	pl, err := pc.backend.CreatePipeline(sp, pc.renderPass)
	if err != nil {
		panic(fmt.Sprintf("rend.PipelineCache: building pipeline %q + %q for pass %q: %v",
			sp.VertexPath, sp.FragmentPath, pc.passName, err))
	}
	pc.pipelines[key] = pl
	pc.stats.addBuildTime(start)
	slog.Debug("rend: built pipeline", "pass", pc.passName, "vertex", sp.VertexPath,
		"fragment", sp.FragmentPath, "time", time.Since(start))
	return pl
}

// Stats returns the cache's hit / miss statistics.
func (pc *PipelineCache) Stats() *CacheStats {
	return &pc.stats
}
