// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import "fmt"

// Drawcall is the minimal capability set System needs to record one
// draw: geometry, a pipeline spec, per-object bindings, and an
// optional viewport override. Object implements it; applications with
// their own drawable types implement it directly and System draws them
// the same way.
type Drawcall interface {
	// PipelineSpec returns the spec resolved through the pass's
	// pipeline cache.
	PipelineSpec() *PipelineSpec

	// VertexBuffer returns the vertex data.
	VertexBuffer() Buffer

	// IndexBuffer returns the index data; its count is the draw size.
	IndexBuffer() IndexBuffer

	// Bindings returns the object's own binding sets, assigned set
	// indices starting at first (after any pass-level sets).
	Bindings(b Backend, pl Pipeline, first int) []BindingSet

	// Viewport returns a custom viewport / scissor override,
	// or nil to use the full destination.
	Viewport() *Viewport
}

// Object is the standard drawable: immutable geometry buffers plus a
// mutable pipeline spec and collection. Swapping Spec between frames
// switches shaders (a cache miss on next use); mutating collection
// data requires an explicit Set.Upload.
type Object struct {
	Spec       *PipelineSpec
	Vbuf       Buffer
	Ibuf       IndexBuffer
	Collection Collection

	// CustomViewport, if non-nil, replaces the full-target viewport
	// for this object's draws.
	CustomViewport *Viewport
}

func (ob *Object) PipelineSpec() *PipelineSpec { return ob.Spec }
func (ob *Object) VertexBuffer() Buffer        { return ob.Vbuf }
func (ob *Object) IndexBuffer() IndexBuffer    { return ob.Ibuf }
func (ob *Object) Viewport() *Viewport         { return ob.CustomViewport }

func (ob *Object) Bindings(b Backend, pl Pipeline, first int) []BindingSet {
	return ob.Collection.Get(b, pl, first)
}

// ObjectPrototype assembles an Object: it uploads the mesh once into
// immutable buffers, builds the pipeline spec, and creates the uniform
// sets. The prototype itself is discarded after Build.
type ObjectPrototype struct {
	VertexPath   string
	FragmentPath string
	Topology     Topologies
	ReadDepth    bool
	WriteDepth   bool
	VertexLayout *VertexLayout
	Sets         []SetLayout

	Mesh Mesh

	// Uniforms holds the initial contents of each uniform Set, one
	// inner slice per set in binding order.
	Uniforms [][]any

	// Textures are appended to the collection after the uniform sets.
	Textures []Image

	CustomViewport *Viewport
}

// Build uploads the prototype's resources and returns the Object.
// rp is the render pass of the pass the object will first draw in;
// the one pipeline built here is rebuilt (from cache) if the object is
// later drawn elsewhere.
func (pr *ObjectPrototype) Build(b Backend, rp RenderPass) *Object {
	vbuf, err := pr.Mesh.VertexBuffer(b)
	if err != nil {
		panic(fmt.Sprintf("rend.ObjectPrototype: uploading vertices: %v", err))
	}
	ibuf, err := pr.Mesh.IndexBuffer(b)
	if err != nil {
		panic(fmt.Sprintf("rend.ObjectPrototype: uploading indices: %v", err))
	}
	sp := &PipelineSpec{
		VertexPath:   pr.VertexPath,
		FragmentPath: pr.FragmentPath,
		Topology:     pr.Topology,
		ReadDepth:    pr.ReadDepth,
		WriteDepth:   pr.WriteDepth,
		VertexLayout: pr.VertexLayout,
		Sets:         pr.Sets,
	}
	pl, err := b.CreatePipeline(sp, rp)
	if err != nil {
		panic(fmt.Sprintf("rend.ObjectPrototype: building pipeline %q + %q: %v",
			pr.VertexPath, pr.FragmentPath, err))
	}
	coll := make(Collection, 0, len(pr.Uniforms)+len(pr.Textures))
	for i, items := range pr.Uniforms {
		coll = append(coll, NewSet(b, pl, i, items...))
	}
	for _, img := range pr.Textures {
		coll = append(coll, NewTextureBinding(img))
	}
	return &Object{
		Spec:           sp,
		Vbuf:           vbuf,
		Ibuf:           ibuf,
		Collection:     coll,
		CustomViewport: pr.CustomViewport,
	}
}
