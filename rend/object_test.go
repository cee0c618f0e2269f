// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend_test

import (
	"testing"

	"github.com/cynic64/render-engine-sub000/rend"
	"github.com/cynic64/render-engine-sub000/rend/rendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexLayouts(t *testing.T) {
	assert.Equal(t, 20, rend.LayoutPosColor2D.Stride())
	assert.Equal(t, 32, rend.LayoutPosUVNormal.Stride())
	assert.NotEqual(t, rend.LayoutPosColor2D.Key(), rend.LayoutPosUVNormal.Key())
}

func TestObjectPrototypeBuild(t *testing.T) {
	bk := rendtest.New()
	tex, _ := bk.CreateImage(imagePt64, rend.RGBA8, 1)
	pr := &rend.ObjectPrototype{
		VertexPath:   "shaders/triangle/vert.spv",
		FragmentPath: "shaders/triangle/frag.spv",
		Topology:     rend.TriangleList,
		VertexLayout: rend.LayoutPosColor2D,
		Sets: []rend.SetLayout{
			{rend.UniformBinding},
			{rend.ImageBinding},
		},
		Mesh: rend.Mesh{
			Vertices: []rend.VertexPosColor2D{
				{Position: [2]float32{0, -1}, Color: [3]float32{1, 0, 0}},
				{Position: [2]float32{-1, 1}, Color: [3]float32{0, 1, 0}},
				{Position: [2]float32{1, 1}, Color: [3]float32{0, 0, 1}},
			},
			Indices: []uint32{0, 1, 2},
		},
		Uniforms: [][]any{{[16]float32{}}},
		Textures: []rend.Image{tex},
	}
	ob := pr.Build(bk, rendtest.BasicPass())

	// mesh uploaded at the layout's stride
	assert.Equal(t, 3*rend.LayoutPosColor2D.Stride(), ob.Vbuf.Bytes())
	assert.Equal(t, 3, ob.Ibuf.IndexCount())

	assert.Equal(t, "shaders/triangle/vert.spv", ob.Spec.VertexPath)
	assert.Equal(t, rend.TriangleList, ob.Spec.Topology)
	assert.Same(t, rend.LayoutPosColor2D, ob.Spec.VertexLayout)

	// one Set per uniform group, then the texture binding
	require.Len(t, ob.Collection, 2)
	st, ok := ob.Collection[0].(*rend.Set)
	require.True(t, ok)
	assert.Equal(t, 0, st.Handle().SetIndex())
	tb, ok := ob.Collection[1].(*rend.TextureBinding)
	require.True(t, ok)
	assert.Same(t, tex, tb.Image)
}

func TestObjectDrawsWithOwnBindings(t *testing.T) {
	bk := rendtest.New()
	sy := rend.NewSystem(bk, []*rend.Pass{geometryPass()}, nil, "color")
	pr := &rend.ObjectPrototype{
		VertexPath:   "shaders/cube/vert.spv",
		FragmentPath: "shaders/cube/frag.spv",
		Topology:     rend.TriangleList,
		VertexLayout: rend.LayoutPosColor2D,
		Mesh: rend.Mesh{
			Vertices: []rend.VertexPosColor2D{{}, {}, {}},
			Indices:  []uint32{0, 1, 2},
		},
		Uniforms: [][]any{{[16]float32{}}},
	}
	ob := pr.Build(bk, sy.Passes[0].RenderPass)

	sy.Start(dest(imagePt64))
	sy.AddObject(ob)
	sy.Finish(nil)

	draws := bk.Submits[0].Seq.Draws()
	require.Len(t, draws, 1)
	// no pass-level images needed, so the object's set keeps slot 0
	require.Len(t, draws[0].Sets, 1)
	assert.Equal(t, 0, draws[0].Sets[0].SetIndex())
	assert.Same(t, ob.Collection[0].(*rend.Set).Handle(), draws[0].Sets[0])
}

func TestObjectBindingsShiftAfterPassSets(t *testing.T) {
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
	pr := &rend.ObjectPrototype{
		VertexPath:   "shaders/post/vert.spv",
		FragmentPath: "shaders/post/frag.spv",
		Topology:     rend.TriangleList,
		VertexLayout: rend.LayoutPosColor2D,
		Mesh: rend.Mesh{
			Vertices: []rend.VertexPosColor2D{{}, {}, {}},
			Indices:  []uint32{0, 1, 2},
		},
		Uniforms: [][]any{{[4]float32{}}},
	}
	ob := pr.Build(bk, passes[1].RenderPass)

	sy.Start(dest(imagePt64))
	sy.NextPass()
	sy.AddObject(ob)
	sy.Finish(nil)

	draws := bk.Submits[0].Seq.Draws()
	require.Len(t, draws, 1)
	// the pass-level image set takes slot 0, pushing the object's
	// uniform set to slot 1
	require.Len(t, draws[0].Sets, 2)
	assert.Equal(t, 0, draws[0].Sets[0].SetIndex())
	assert.Equal(t, 1, draws[0].Sets[1].SetIndex())
}
