// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import (
	"errors"
	"image"
)

// ErrOutdated is returned by window / swapchain operations when the
// presentable image chain no longer matches the surface (e.g. after a
// resize). It is the only recoverable backend condition: the caller
// rebuilds the chain and retries the frame. Everything else is fatal.
var ErrOutdated = errors.New("rend: presentable image chain is out of date")

// Backend is the narrow capability interface the render system needs
// from a graphics API. Implementations live outside the core: vkrend
// provides a Vulkan backend, rendtest a recording one for tests.
//
// All methods are called from the single thread driving the System.
type Backend interface {
	// CreatePipeline compiles the full graphics pipeline described by
	// spec, targeting the first subpass of rp.
	CreatePipeline(sp *PipelineSpec, rp RenderPass) (Pipeline, error)

	// CreateBindingSet builds a descriptor set for given pipeline and
	// set index, binding the given resources in declared order.
	CreateBindingSet(pl Pipeline, set int, bindings []Binding) (BindingSet, error)

	// CreateImage allocates a sampleable attachment image.
	CreateImage(size image.Point, format TextureFormats, samples int) (Image, error)

	// CreateFramebuffer builds a framebuffer binding the given images,
	// in order, to the attachments of rp.
	CreateFramebuffer(rp RenderPass, images []Image) (Framebuffer, error)

	// CreateVertexBuffer uploads a slice of vertex structs into an
	// immutable device buffer.
	CreateVertexBuffer(data any) (Buffer, error)

	// CreateIndexBuffer uploads indices into an immutable device buffer.
	CreateIndexBuffer(indices []uint32) (IndexBuffer, error)

	// CreateUniformBuffer serializes data into a buffer suitable for
	// uniform bindings. Each call produces a fresh buffer: re-uploading
	// a Set replaces its buffers and its binding set.
	CreateUniformBuffer(data any) (Buffer, error)

	// ReleaseBuffer frees a buffer the system has replaced. The caller
	// guarantees no pending GPU work still references it.
	ReleaseBuffer(buf Buffer)

	// ReleaseBindingSet frees a replaced binding set.
	ReleaseBindingSet(bs BindingSet)

	// ReleaseImage frees a replaced intermediate image.
	ReleaseImage(img Image)

	// ReleaseFramebuffer frees a replaced framebuffer.
	ReleaseFramebuffer(fb Framebuffer)

	// NewCommandSequence opens a fresh command sequence for one frame.
	NewCommandSequence() CommandSequence

	// Submit finalizes the sequence and submits it for execution once
	// after has completed (pass nil for no dependency). The returned
	// signal completes when the submitted work does.
	Submit(cs CommandSequence, after CompletionSignal) (CompletionSignal, error)
}

// RenderPass is an opaque backend render-pass handle. The core only
// needs its attachment list, to allocate matching intermediate images
// for the tags a Pass declares.
type RenderPass interface {
	Attachments() []Attachment
}

// Pipeline is an opaque compiled-pipeline handle.
type Pipeline interface {
	Label() string
}

// BindingSet is an opaque descriptor-set handle, valid for the set
// index it was created with.
type BindingSet interface {
	SetIndex() int
}

// Image is an opaque GPU image handle.
type Image interface {
	Size() image.Point
}

// Framebuffer is an opaque framebuffer handle.
type Framebuffer interface {
	Size() image.Point
}

// Buffer is an opaque GPU buffer handle.
type Buffer interface {
	Bytes() int
}

// IndexBuffer is a Buffer holding uint32 indices.
type IndexBuffer interface {
	Buffer
	IndexCount() int
}

// CommandSequence records one frame's worth of rendering commands:
// a strictly ordered series of render passes, each containing indexed
// draws. It is single use: once submitted it must not be touched.
type CommandSequence interface {
	// BeginPass opens a render pass on the given framebuffer, clearing
	// its attachments.
	BeginPass(rp RenderPass, fb Framebuffer)

	// EndPass closes the currently open render pass.
	EndPass()

	// DrawIndexed records one indexed draw with the given pipeline,
	// dynamic viewport / scissor state, geometry, and binding sets
	// (bound in order starting at set 0).
	DrawIndexed(pl Pipeline, vp Viewport, vbuf Buffer, ibuf IndexBuffer, sets []BindingSet)
}

// CompletionSignal is an opaque handle for pending GPU work, used to
// chain submission and presentation without blocking the recording
// thread.
type CompletionSignal interface {
	// Wait blocks until the work this signal represents has completed.
	Wait() error
}

// Window is the swapchain-owning collaborator the System presents
// through. NextImage blocks until a destination image is available,
// rebuilding the image chain itself if it has gone stale; it returns
// an error only for unrecoverable conditions.
type Window interface {
	NextImage() (Image, error)
	GetFuture() CompletionSignal
	PresentFuture(sig CompletionSignal) error
}
