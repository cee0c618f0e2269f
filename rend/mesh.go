// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import "fmt"

// VertexAttribute is one attribute in a vertex layout, in shader
// location order.
type VertexAttribute struct {
	Name   string
	Format VertexFormats
}

// VertexLayout describes the per-vertex data layout a pipeline
// consumes: an ordered list of attributes, tightly packed in one
// interleaved buffer. Layouts with equal keys are interchangeable for
// pipeline caching.
type VertexLayout struct {
	Name       string
	Attributes []VertexAttribute
}

// Stride returns the byte stride of one interleaved vertex.
func (vl *VertexLayout) Stride() int {
	st := 0
	for _, at := range vl.Attributes {
		st += at.Format.Bytes()
	}
	return st
}

// Key returns a string key identifying this layout structurally,
// for use in pipeline cache keys.
func (vl *VertexLayout) Key() string {
	key := vl.Name
	for _, at := range vl.Attributes {
		key += fmt.Sprintf("|%s:%s", at.Name, at.Format)
	}
	return key
}

// Standard layouts used by the bundled vertex types.
var (
	// LayoutPosColor2D is a 2D position + RGB color vertex.
	LayoutPosColor2D = &VertexLayout{
		Name: "PosColor2D",
		Attributes: []VertexAttribute{
			{"Position", Float32Vector2},
			{"Color", Float32Vector3},
		},
	}

	// LayoutPosUVNormal is the standard 3D mesh vertex.
	LayoutPosUVNormal = &VertexLayout{
		Name: "PosUVNormal",
		Attributes: []VertexAttribute{
			{"Position", Float32Vector3},
			{"UV", Float32Vector2},
			{"Normal", Float32Vector3},
		},
	}
)

// VertexPosColor2D matches LayoutPosColor2D.
type VertexPosColor2D struct {
	Position [2]float32
	Color    [3]float32
}

// VertexPosUVNormal matches LayoutPosUVNormal.
type VertexPosUVNormal struct {
	Position [3]float32
	UV       [2]float32
	Normal   [3]float32
}

// Mesh is CPU-side indexed geometry: a slice of vertex structs
// matching some VertexLayout, plus the index list. Meshes are uploaded
// once into immutable buffers when an object is built.
type Mesh struct {
	// Vertices must be a slice of fixed-size vertex structs
	// (e.g. []VertexPosColor2D).
	Vertices any

	Indices []uint32
}

// VertexBuffer uploads the vertex data.
func (ms *Mesh) VertexBuffer(b Backend) (Buffer, error) {
	return b.CreateVertexBuffer(ms.Vertices)
}

// IndexBuffer uploads the index data.
func (ms *Mesh) IndexBuffer(b Backend) (IndexBuffer, error) {
	return b.CreateIndexBuffer(ms.Indices)
}
