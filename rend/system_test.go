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

var imagePt64 = image.Pt(64, 64)

func geometryPass() *rend.Pass {
	return &rend.Pass{
		Name:          "geometry",
		ImagesCreated: []string{"color"},
		RenderPass:    rendtest.BasicPass(),
	}
}

// oneTriangle builds the simplest drawable object.
func oneTriangle(bk *rendtest.Backend, rp rend.RenderPass) *rend.Object {
	pr := &rend.ObjectPrototype{
		VertexPath:   "shaders/triangle/vert.spv",
		FragmentPath: "shaders/triangle/frag.spv",
		Topology:     rend.TriangleList,
		VertexLayout: rend.LayoutPosColor2D,
		Mesh: rend.Mesh{
			Vertices: []rend.VertexPosColor2D{
				{Position: [2]float32{0, -1}, Color: [3]float32{1, 0, 0}},
				{Position: [2]float32{-1, 1}, Color: [3]float32{0, 1, 0}},
				{Position: [2]float32{1, 1}, Color: [3]float32{0, 0, 1}},
			},
			Indices: []uint32{0, 1, 2},
		},
	}
	return pr.Build(bk, rp)
}

func dest(dims image.Point) *rendtest.Image {
	return &rendtest.Image{Dims: dims, Format: rend.BGRA8, Samples: 1}
}

// TestSingleDrawCycle is the end-to-end triangle scenario: one pass,
// one object, one submitted sequence with one opened / closed render
// pass and one 3-index draw.
func TestSingleDrawCycle(t *testing.T) {
	bk := rendtest.New()
	sy := rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	tri := oneTriangle(bk, sy.Passes[0].RenderPass)

	dep := &rendtest.Signal{Label: "acquire"}
	sy.Start(dest(imagePt64))
	sy.AddObject(tri)
	sig := sy.Finish(dep)

	require.NotNil(t, sig)
	require.Len(t, bk.Submits, 1)
	sub := bk.Submits[0]
	assert.Same(t, dep, sub.After)
	assert.Same(t, sig, rend.CompletionSignal(sub.Signal))

	ops := sub.Seq.Ops
	require.Len(t, ops, 3)
	assert.Equal(t, rendtest.BeginPassOp, ops[0].Kind)
	assert.Equal(t, rendtest.DrawOp, ops[1].Kind)
	assert.Equal(t, rendtest.EndPassOp, ops[2].Kind)
	assert.Equal(t, 3, ops[1].IndexCount)
	assert.Equal(t, rend.ViewportFor(imagePt64), ops[1].Viewport)
}

func TestOutputTagGetsDestinationImage(t *testing.T) {
	bk := rendtest.New()
	sy := rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	dst := dest(imagePt64)
	sy.Start(dst)

	img, ok := sy.Registry().Image("color")
	require.True(t, ok)
	assert.Same(t, rend.Image(dst), img)

	// the framebuffer for the pass must target the destination
	require.Len(t, bk.Framebuffers, 1)
	assert.Same(t, rend.Image(dst), bk.Framebuffers[0].Images[0])

	sy.Finish(nil)
}

func TestMultiPassOrdering(t *testing.T) {
	bk := rendtest.New()
	passes := []*rend.Pass{
		{
			Name:          "geometry",
			ImagesCreated: []string{"geo"},
			RenderPass:    rendtest.BasicPass(),
		},
		{
			Name:          "postprocess",
			ImagesCreated: []string{"final"},
			ImagesNeeded:  []string{"geo"},
			RenderPass:    rendtest.BasicPass(),
		},
	}
	sy := rend.NewSystem(bk, passes, nil, "final")
	tri := oneTriangle(bk, passes[0].RenderPass)
	quad := oneTriangle(bk, passes[1].RenderPass)
	quad.Spec.VertexPath = "shaders/post/vert.spv"
	quad.Spec.FragmentPath = "shaders/post/frag.spv"

	sy.Start(dest(imagePt64))
	sy.AddObject(tri)
	sy.NextPass()
	sy.AddObject(quad)
	sig := sy.Finish(nil)
	require.NotNil(t, sig)
	require.Len(t, bk.Submits, 1)

	ops := bk.Submits[0].Seq.Ops
	require.Len(t, ops, 6)
	kinds := []rendtest.OpKinds{
		rendtest.BeginPassOp, rendtest.DrawOp, rendtest.EndPassOp,
		rendtest.BeginPassOp, rendtest.DrawOp, rendtest.EndPassOp,
	}
	for i, kd := range kinds {
		assert.Equal(t, kd, ops[i].Kind, "op %d", i)
	}
	assert.Same(t, passes[0].RenderPass, ops[0].Pass)
	assert.Same(t, passes[1].RenderPass, ops[3].Pass)

	// the postprocess draw binds the geo image produced by pass 0 at
	// set 0
	postDraw := ops[4]
	require.NotEmpty(t, postDraw.Sets)
	bs := postDraw.Sets[0].(*rendtest.BindingSet)
	assert.Equal(t, 0, bs.SetIndex())
	geo, ok := sy.Registry().Image("geo")
	require.True(t, ok)
	assert.Same(t, geo, bs.Bindings[0].Image)
}

func TestSequencingErrors(t *testing.T) {
	bk := rendtest.New()
	newSys := func() *rend.System {
		return rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	}
	tri := oneTriangle(bk, rendtest.BasicPass())

	assert.Panics(t, func() { newSys().AddObject(tri) }, "AddObject before Start")
	assert.Panics(t, func() { newSys().NextPass() }, "NextPass before Start")
	assert.Panics(t, func() { newSys().Finish(nil) }, "Finish before Start")

	sy := newSys()
	sy.Start(dest(imagePt64))
	assert.Panics(t, func() { sy.Start(dest(imagePt64)) }, "Start while drawing")
	assert.Panics(t, func() { sy.NextPass() }, "NextPass past the last pass")

	sy.Finish(nil)
	assert.Panics(t, func() { sy.AddObject(tri) }, "AddObject after Finish")

	assert.Panics(t, func() {
		rend.NewSystem(bk, []*rend.Pass{geometryPass(), geometryPass()}, nil, "color")
	}, "duplicate pass names")

	assert.Panics(t, func() {
		rend.NewSystem(bk, nil, nil, "color")
	}, "empty pass list")
}

// TestFramebufferReusePerDestination drives three frames over two
// destination images, the swapchain rotation pattern: each destination
// builds its framebuffer once and later frames reuse it.
func TestFramebufferReusePerDestination(t *testing.T) {
	bk := rendtest.New()
	sy := rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	tri := oneTriangle(bk, sy.Passes[0].RenderPass)

	frame := func(d *rendtest.Image) {
		sy.Start(d)
		sy.AddObject(tri)
		sy.Finish(nil)
	}
	destA := dest(imagePt64)
	destB := dest(imagePt64)
	frame(destA)
	frame(destB)
	frame(destA)

	assert.Len(t, bk.Framebuffers, 2)
	assert.Empty(t, bk.ReleasedFramebuffers)
	// the third frame rendered into the first frame's framebuffer
	first := bk.Submits[0].Seq.Ops[0].Framebuffer
	third := bk.Submits[2].Seq.Ops[0].Framebuffer
	assert.Same(t, first, third)
}

// TestResizeReleasesReplacedObjects checks that a dimension change
// frees the previous generation's intermediates, framebuffers, and
// pass-level binding sets instead of abandoning them.
func TestResizeReleasesReplacedObjects(t *testing.T) {
	bk := rendtest.New()
	passes := []*rend.Pass{
		{
			Name:          "geometry",
			ImagesCreated: []string{"geo"},
			RenderPass:    rendtest.BasicPass(),
		},
		{
			Name:          "postprocess",
			ImagesCreated: []string{"final"},
			ImagesNeeded:  []string{"geo"},
			RenderPass:    rendtest.BasicPass(),
		},
	}
	sy := rend.NewSystem(bk, passes, nil, "final")
	tri := oneTriangle(bk, passes[0].RenderPass)

	frame := func(dims image.Point) {
		sy.Start(dest(dims))
		sy.AddObject(tri)
		sy.NextPass()
		sy.AddObject(tri)
		sy.Finish(nil)
	}
	frame(image.Pt(800, 600))
	geo1, _ := sy.Registry().Image("geo")
	require.Len(t, bk.BindingSets, 1)
	sharedSet := bk.BindingSets[0]
	require.Empty(t, bk.ReleasedImages)
	require.Empty(t, bk.ReleasedFramebuffers)

	frame(image.Pt(1024, 768))
	require.Len(t, bk.ReleasedImages, 1)
	assert.Same(t, geo1, bk.ReleasedImages[0])
	assert.Len(t, bk.ReleasedFramebuffers, 2)
	require.Len(t, bk.ReleasedBindingSets, 1)
	assert.Same(t, rend.BindingSet(sharedSet), bk.ReleasedBindingSets[0])
}

func TestResizeInvalidation(t *testing.T) {
	bk := rendtest.New()
	passes := []*rend.Pass{
		{
			Name:          "geometry",
			ImagesCreated: []string{"geo"},
			RenderPass:    rendtest.BasicPass(),
		},
		{
			Name:          "postprocess",
			ImagesCreated: []string{"final"},
			ImagesNeeded:  []string{"geo"},
			RenderPass:    rendtest.BasicPass(),
		},
	}
	sy := rend.NewSystem(bk, passes, nil, "final")
	tri := oneTriangle(bk, passes[0].RenderPass)

	frame := func(dims image.Point) {
		sy.Start(dest(dims))
		sy.AddObject(tri)
		sy.NextPass()
		sy.AddObject(tri)
		sy.Finish(nil)
	}

	d1 := image.Pt(800, 600)
	frame(d1)
	geo1, _ := sy.Registry().Image("geo")
	gen1 := sy.Registry().Generation()

	// same dimensions: the cached image set is reused wholesale
	frame(d1)
	geo2, _ := sy.Registry().Image("geo")
	assert.Same(t, geo1, geo2)
	assert.Equal(t, gen1, sy.Registry().Generation())
	assert.Equal(t, 1, sy.CollectionCache().Stats().Misses)
	assert.Equal(t, 1, sy.CollectionCache().Stats().Hits)

	// new dimensions: distinct image handles and a fresh generation,
	// which makes the cached pass-level collection a miss
	d2 := image.Pt(1024, 768)
	frame(d2)
	geo3, _ := sy.Registry().Image("geo")
	assert.NotSame(t, geo1, geo3)
	assert.Equal(t, d2, geo3.Size())
	assert.Greater(t, sy.Registry().Generation(), gen1)
	assert.Equal(t, 2, sy.CollectionCache().Stats().Misses)

	// pipelines are resolution independent: still a single build per
	// distinct spec
	assert.Equal(t, 1, sy.PipelineCache(0).Stats().Misses)
}

func TestCustomImageOverride(t *testing.T) {
	bk := rendtest.New()
	shadow := &rendtest.Image{Dims: image.Pt(2048, 2048), Format: rend.Depth32, Samples: 1}
	passes := []*rend.Pass{
		{
			Name:          "shadow",
			ImagesCreated: []string{"shadow_map"},
			RenderPass: &rendtest.RenderPass{
				Name: "shadowrp",
				Atts: []rend.Attachment{{Format: rend.Depth32, Samples: 1}},
			},
		},
		{
			Name:          "geometry",
			ImagesCreated: []string{"color"},
			ImagesNeeded:  []string{"shadow_map"},
			RenderPass:    rendtest.BasicPass(),
		},
	}
	sy := rend.NewSystem(bk, passes, map[string]rend.Image{"shadow_map": shadow}, "color")

	nimages := len(bk.Images)
	sy.Start(dest(imagePt64))
	// the custom image must be used as-is, never allocated internally
	got, ok := sy.Registry().Image("shadow_map")
	require.True(t, ok)
	assert.Same(t, rend.Image(shadow), got)
	assert.Len(t, bk.Images, nimages)
	sy.Finish(nil)
}

func TestCustomViewportOverride(t *testing.T) {
	bk := rendtest.New()
	sy := rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	tri := oneTriangle(bk, sy.Passes[0].RenderPass)
	vp := rend.Viewport{X: 8, Y: 8, Width: 32, Height: 32}
	tri.CustomViewport = &vp

	sy.Start(dest(imagePt64))
	sy.AddObject(tri)
	sy.Finish(nil)

	draws := bk.Submits[0].Seq.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, vp, draws[0].Viewport)
}

func TestStartWindowFinishToWindow(t *testing.T) {
	bk := rendtest.New()
	wn := rendtest.NewWindow(bk, imagePt64)
	sy := rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	tri := oneTriangle(bk, sy.Passes[0].RenderPass)

	sy.StartWindow(wn)
	sy.AddObject(tri)
	sy.FinishToWindow(wn)

	require.Len(t, wn.Acquired, 1)
	require.Len(t, bk.Submits, 1)
	require.Len(t, wn.Futures, 1)
	assert.Same(t, rend.CompletionSignal(wn.Futures[0]), bk.Submits[0].After)
	require.Len(t, wn.Presented, 1)
	assert.Same(t, rend.CompletionSignal(bk.Submits[0].Signal), wn.Presented[0])

	// the acquired image became the output attachment
	assert.Same(t, rend.Image(wn.Acquired[0]), bk.Framebuffers[0].Images[0])
}

func TestShaderSwapForcesRebuild(t *testing.T) {
	bk := rendtest.New()
	sy := rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	tri := oneTriangle(bk, sy.Passes[0].RenderPass)

	frame := func() {
		sy.Start(dest(imagePt64))
		sy.AddObject(tri)
		sy.Finish(nil)
	}
	frame()
	assert.Equal(t, 1, sy.PipelineCache(0).Stats().Misses)

	// swapping the object's spec forces a miss on next use
	swapped := *tri.Spec
	swapped.FragmentPath = "shaders/triangle/frag_alt.spv"
	tri.Spec = &swapped
	frame()
	assert.Equal(t, 2, sy.PipelineCache(0).Stats().Misses)

	// and swapping back hits the original entry
	orig := swapped
	orig.FragmentPath = "shaders/triangle/frag.spv"
	tri.Spec = &orig
	frame()
	assert.Equal(t, 1, sy.PipelineCache(0).Stats().Hits)
	assert.Equal(t, 2, sy.PipelineCache(0).Stats().Misses)
}

func TestStatsString(t *testing.T) {
	bk := rendtest.New()
	sy := rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	tri := oneTriangle(bk, sy.Passes[0].RenderPass)
	sy.Start(dest(imagePt64))
	sy.AddObject(tri)
	sy.Finish(nil)

	str := sy.StatsString()
	assert.Contains(t, str, "pipelines [geometry]")
	assert.Contains(t, str, "collections")
}
