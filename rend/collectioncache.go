// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import (
	"fmt"
	"time"
)

// MaxSampledImages is the most images one pass-level binding set can
// sample. Passes needing more indicate a design that should split into
// multiple sets, which this core does not support.
const MaxSampledImages = 4

// CollectionCache memoizes the pass-level binding sets that sample a
// pass's needed images (shadow maps, G-buffer contents and so on).
// These are shared across every object drawn in the pass, unlike the
// per-object Collections, which the application owns and re-uploads
// itself.
//
// Entries are keyed by pipeline spec, pass name, and the image
// registry generation, so a registry rebuild (resize) makes every
// cached set a natural miss instead of a stale-image bug. Clear
// remains available for explicit invalidation.
type CollectionCache struct {
	backend Backend

	collections map[collectionKey][]BindingSet
	stats       CacheStats
}

type collectionKey struct {
	pipeline   PipelineKey
	pass       string
	generation int
}

// NewCollectionCache returns an empty cache using given backend.
func NewCollectionCache(b Backend) *CollectionCache {
	return &CollectionCache{
		backend:     b,
		collections: make(map[collectionKey][]BindingSet),
	}
}

// Get returns the binding sets for the pass-level images of given pass
// under given pipeline, building and caching them on first use. A tag
// with no registry entry means the pass declaration needs an input no
// earlier pass produces, which is a configuration error.
func (cc *CollectionCache) Get(sp *PipelineSpec, pl Pipeline, pass *Pass, reg *ImageRegistry) []BindingSet {
	if len(pass.ImagesNeeded) == 0 {
		return nil
	}
	key := collectionKey{
		pipeline:   sp.Key(),
		pass:       pass.Name,
		generation: reg.Generation(),
	}
	if sets, ok := cc.collections[key]; ok {
		cc.stats.hit()
		return sets
	}
	cc.stats.miss()
	cc.evictStale(key.generation)
	start := time.Now()

	n := len(pass.ImagesNeeded)
	if n > MaxSampledImages {
		panic(fmt.Sprintf("rend.CollectionCache: pass %q needs %d images, more than the supported %d",
			pass.Name, n, MaxSampledImages))
	}
	bindings := make([]Binding, n)
	for i, tag := range pass.ImagesNeeded {
		img, ok := reg.Image(tag)
		if !ok {
			panic(fmt.Sprintf("rend.CollectionCache: pass %q needs image %q, which no earlier pass creates and no custom image supplies",
				pass.Name, tag))
		}
		bindings[i] = ImageOf(img)
	}
	set, err := cc.backend.CreateBindingSet(pl, 0, bindings)
	if err != nil {
		panic(fmt.Sprintf("rend.CollectionCache: building image bindings for pass %q: %v", pass.Name, err))
	}
	sets := []BindingSet{set}

	cc.collections[key] = sets
	cc.stats.addBuildTime(start)
	return sets
}

// evictStale releases entries from registry generations other than gen:
// their keys can never be looked up again.
func (cc *CollectionCache) evictStale(gen int) {
	for key, sets := range cc.collections {
		if key.generation == gen {
			continue
		}
		for _, bs := range sets {
			cc.backend.ReleaseBindingSet(bs)
		}
		delete(cc.collections, key)
	}
}

// Clear releases and drops every cached entry. The generation-keyed
// lookups already handle resize; Clear is for owners that replace
// images out of band.
func (cc *CollectionCache) Clear() {
	for _, sets := range cc.collections {
		for _, bs := range sets {
			cc.backend.ReleaseBindingSet(bs)
		}
	}
	cc.collections = make(map[collectionKey][]BindingSet)
}

// Stats returns the cache's hit / miss statistics.
func (cc *CollectionCache) Stats() *CacheStats {
	return &cc.stats
}
