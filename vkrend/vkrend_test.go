// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cynic64/render-engine-sub000/rend"
)

func TestBackendTriangle(t *testing.T) {
	t.Skip("Need software GPU on CI")

	require.NoError(t, Init())
	defer Terminate()
	gp, err := NewGPU("vkrend-test", nil)
	require.NoError(t, err)
	defer gp.Destroy()
	bk, err := NewBackend(gp)
	require.NoError(t, err)
	defer bk.Destroy()

	rp := Basic(gp, false)
	defer rp.Destroy()
	sy := rend.NewSystem(bk, []*rend.Pass{{
		Name:          "geometry",
		ImagesCreated: []string{"color"},
		RenderPass:    rp,
	}}, nil, "color")

	dst, err := bk.CreateImage(image.Pt(256, 256), rend.BGRA8, 1)
	require.NoError(t, err)

	pr := &rend.ObjectPrototype{
		VertexPath:   "testdata/triangle_vert.spv",
		FragmentPath: "testdata/triangle_frag.spv",
		Topology:     rend.TriangleList,
		VertexLayout: rend.LayoutPosColor2D,
		Mesh: rend.Mesh{
			Vertices: []rend.VertexPosColor2D{
				{Position: [2]float32{0, -0.5}, Color: [3]float32{1, 0, 0}},
				{Position: [2]float32{-0.5, 0.5}, Color: [3]float32{0, 1, 0}},
				{Position: [2]float32{0.5, 0.5}, Color: [3]float32{0, 0, 1}},
			},
			Indices: []uint32{0, 1, 2},
		},
	}
	tri := pr.Build(bk, rp)

	sy.Start(dst)
	sy.AddObject(tri)
	sig := sy.Finish(nil)
	assert.NoError(t, sig.Wait())
}

func TestFormatMapping(t *testing.T) {
	assert.NotPanics(t, func() {
		for _, ft := range []rend.TextureFormats{rend.RGBA8, rend.BGRA8, rend.Depth16, rend.Depth32} {
			vkFormat(ft)
		}
		for _, n := range []int{1, 2, 4, 8} {
			vkSamples(n)
		}
	})
	assert.Panics(t, func() { vkSamples(3) })
}
