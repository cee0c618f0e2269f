// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import (
	"fmt"
	"image"
)

// Topologies are the different ways vertex data is assembled
// into primitives.
type Topologies int32

const (
	TriangleList Topologies = iota
	TriangleStrip
	LineList
	LineStrip
	PointList
)

func (tp Topologies) String() string {
	switch tp {
	case TriangleList:
		return "TriangleList"
	case TriangleStrip:
		return "TriangleStrip"
	case LineList:
		return "LineList"
	case LineStrip:
		return "LineStrip"
	case PointList:
		return "PointList"
	}
	return fmt.Sprintf("Topologies(%d)", int32(tp))
}

// TextureFormats are the image formats the system knows how to
// allocate for pass-intermediate images.
type TextureFormats int32

const (
	// RGBA8 is 8-bit-per-channel unsigned normalized color.
	RGBA8 TextureFormats = iota

	// BGRA8 is the default swapchain color format.
	BGRA8

	// Depth16 is 16-bit unsigned normalized depth.
	Depth16

	// Depth32 is 32-bit float depth.
	Depth32
)

func (tf TextureFormats) String() string {
	switch tf {
	case RGBA8:
		return "RGBA8"
	case BGRA8:
		return "BGRA8"
	case Depth16:
		return "Depth16"
	case Depth32:
		return "Depth32"
	}
	return fmt.Sprintf("TextureFormats(%d)", int32(tf))
}

// IsDepth returns true for depth formats.
func (tf TextureFormats) IsDepth() bool {
	return tf == Depth16 || tf == Depth32
}

// VertexFormats are the per-attribute data formats for vertex layouts.
type VertexFormats int32

const (
	Float32 VertexFormats = iota
	Float32Vector2
	Float32Vector3
	Float32Vector4
)

func (vf VertexFormats) String() string {
	switch vf {
	case Float32:
		return "Float32"
	case Float32Vector2:
		return "Float32Vector2"
	case Float32Vector3:
		return "Float32Vector3"
	case Float32Vector4:
		return "Float32Vector4"
	}
	return fmt.Sprintf("VertexFormats(%d)", int32(vf))
}

// Bytes returns the byte size of one element of this format.
func (vf VertexFormats) Bytes() int {
	switch vf {
	case Float32:
		return 4
	case Float32Vector2:
		return 8
	case Float32Vector3:
		return 12
	case Float32Vector4:
		return 16
	}
	return 0
}

// Attachment describes one image a render pass writes, in declaration
// order. The system uses it to allocate matching intermediate images.
type Attachment struct {
	Format  TextureFormats
	Samples int
}

// Viewport is the dynamic viewport / scissor state for one draw.
// The scissor rectangle always matches the viewport rectangle.
type Viewport struct {
	X, Y          float32
	Width, Height float32
}

// ViewportFor returns the full-target viewport for given dimensions.
func ViewportFor(size image.Point) Viewport {
	return Viewport{Width: float32(size.X), Height: float32(size.Y)}
}

// BindingKinds are the kinds of resource one binding slot can hold.
type BindingKinds int32

const (
	// UniformBinding is a uniform buffer binding.
	UniformBinding BindingKinds = iota

	// ImageBinding is a combined image / sampler binding.
	ImageBinding
)

func (bk BindingKinds) String() string {
	if bk == UniformBinding {
		return "UniformBinding"
	}
	return "ImageBinding"
}

// Binding is one entry in a binding set: either a buffer or an image,
// never both. Bindings are consumed in declared order, which must match
// the shader's binding indices.
type Binding struct {
	Buffer Buffer
	Image  Image
}

// Kind returns the kind of resource this binding holds.
func (bd *Binding) Kind() BindingKinds {
	if bd.Image != nil {
		return ImageBinding
	}
	return UniformBinding
}

// BufferBinding returns a Binding holding given buffer.
func BufferBinding(buf Buffer) Binding { return Binding{Buffer: buf} }

// ImageOf returns a Binding sampling given image.
func ImageOf(img Image) Binding { return Binding{Image: img} }

// SetLayout lists the binding kinds of one descriptor set, in binding
// order.
type SetLayout []BindingKinds
