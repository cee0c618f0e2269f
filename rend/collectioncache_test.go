// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend_test

import (
	"image"
	"testing"

	"github.com/cynic64/render-engine-sub000/rend"
	"github.com/cynic64/render-engine-sub000/rend/rendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postprocessPass(needed ...string) *rend.Pass {
	return &rend.Pass{
		Name:          "postprocess",
		ImagesCreated: []string{"final"},
		ImagesNeeded:  needed,
		RenderPass:    rendtest.BasicPass(),
	}
}

func registryWith(bk *rendtest.Backend, tags ...string) *rend.ImageRegistry {
	reg := &rend.ImageRegistry{}
	for _, tag := range tags {
		img, _ := bk.CreateImage(image.Pt(640, 480), rend.BGRA8, 1)
		reg.SetImage(tag, img)
	}
	return reg
}

func TestCollectionCacheBindsNeededImages(t *testing.T) {
	bk := rendtest.New()
	cc := rend.NewCollectionCache(bk)
	pass := postprocessPass("geo", "shadow")
	reg := registryWith(bk, "geo", "shadow")
	sp := triangleSpec()
	pl, err := bk.CreatePipeline(sp, pass.RenderPass)
	require.NoError(t, err)

	sets := cc.Get(sp, pl, pass, reg)
	require.Len(t, sets, 1)
	bs := sets[0].(*rendtest.BindingSet)
	assert.Equal(t, 0, bs.SetIndex())
	require.Len(t, bs.Bindings, 2)
	geo, _ := reg.Image("geo")
	shadow, _ := reg.Image("shadow")
	assert.Same(t, geo, bs.Bindings[0].Image)
	assert.Same(t, shadow, bs.Bindings[1].Image)
	assert.Equal(t, 1, cc.Stats().Misses)

	// equal spec, same pass and registry: cache hit, same sets
	again := cc.Get(triangleSpec(), pl, pass, reg)
	require.Len(t, again, 1)
	assert.Same(t, sets[0], again[0])
	assert.Equal(t, 1, cc.Stats().Hits)
}

func TestCollectionCacheNoImagesNeeded(t *testing.T) {
	bk := rendtest.New()
	cc := rend.NewCollectionCache(bk)
	pass := postprocessPass()
	sp := triangleSpec()
	pl, _ := bk.CreatePipeline(sp, pass.RenderPass)

	sets := cc.Get(sp, pl, pass, &rend.ImageRegistry{})
	assert.Empty(t, sets)
	assert.Empty(t, bk.BindingSets)
}

func TestCollectionCacheMissingTagIsFatal(t *testing.T) {
	bk := rendtest.New()
	cc := rend.NewCollectionCache(bk)
	pass := postprocessPass("nonexistent")
	sp := triangleSpec()
	pl, _ := bk.CreatePipeline(sp, pass.RenderPass)

	assert.Panics(t, func() {
		cc.Get(sp, pl, pass, registryWith(bk, "geo"))
	})
}

func TestCollectionCacheTooManyImagesIsFatal(t *testing.T) {
	bk := rendtest.New()
	cc := rend.NewCollectionCache(bk)
	pass := postprocessPass("a", "b", "c", "d", "e")
	reg := registryWith(bk, "a", "b", "c", "d", "e")
	sp := triangleSpec()
	pl, _ := bk.CreatePipeline(sp, pass.RenderPass)

	assert.Panics(t, func() {
		cc.Get(sp, pl, pass, reg)
	})
}

func TestCollectionCacheClear(t *testing.T) {
	bk := rendtest.New()
	cc := rend.NewCollectionCache(bk)
	pass := postprocessPass("geo")
	reg := registryWith(bk, "geo")
	sp := triangleSpec()
	pl, _ := bk.CreatePipeline(sp, pass.RenderPass)

	first := cc.Get(sp, pl, pass, reg)
	cc.Clear()
	require.Len(t, bk.ReleasedBindingSets, 1)
	assert.Same(t, first[0], bk.ReleasedBindingSets[0])

	second := cc.Get(sp, pl, pass, reg)
	assert.NotSame(t, first[0], second[0])
	assert.Equal(t, 2, cc.Stats().Misses)
	assert.Equal(t, 0, cc.Stats().Hits)
}
