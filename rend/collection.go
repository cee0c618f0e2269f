// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import "fmt"

// MaxSetItems is the most bindings one Set carries.
const MaxSetItems = 3

// Binder is one element of a Collection: something that can produce a
// binding set for a pipeline at a given set index.
type Binder interface {
	// Resolve returns the binding set, building it if the cached one
	// was made for a different pipeline or set index.
	Resolve(b Backend, pl Pipeline, set int) BindingSet
}

// Collection is the ordered group of per-object bindings a drawable
// carries: uniform Sets and raw texture bindings, flattened in
// declared order at draw time. Arity is small and fixed by the shader
// interface, in practice at most 4 entries.
type Collection []Binder

// Get flattens the collection into binding-set handles, assigning set
// indices sequentially starting at first (the slot after any
// pass-level sets).
func (cl Collection) Get(b Backend, pl Pipeline, first int) []BindingSet {
	sets := make([]BindingSet, len(cl))
	for i, bd := range cl {
		sets[i] = bd.Resolve(b, pl, first+i)
	}
	return sets
}

// Set is a group of typed uniform data bound together in one
// descriptor set. The GPU-side handle is built eagerly and cached;
// mutating Data does nothing until Upload is called, so a caller that
// mutates and forgets to upload renders with stale data. That is a
// known sharp edge of this design, kept because it makes the upload
// cost explicit.
type Set struct {
	// Data holds the CPU-side contents, one entry per binding.
	// Entries must be fixed-size values (structs, arrays) or slices
	// of such.
	Data []any

	backend  Backend
	pipeline Pipeline
	set      int
	handle   BindingSet
	buffers  []Buffer
}

// NewSet builds a Set from given data items and uploads immediately,
// binding at given set index of given pipeline.
func NewSet(b Backend, pl Pipeline, set int, data ...any) *Set {
	if len(data) > MaxSetItems {
		panic(fmt.Sprintf("rend.NewSet: %d items in one set, more than the supported %d",
			len(data), MaxSetItems))
	}
	st := &Set{Data: data, backend: b, pipeline: pl, set: set}
	st.Upload(b)
	return st
}

// Upload re-serializes the current Data and replaces the cached
// binding set, releasing the buffers and set it replaces. Must be
// called after any mutation of Data for the change to be visible to
// the GPU, and only between frames: the replaced objects must not be
// referenced by an unsubmitted draw.
func (st *Set) Upload(b Backend) {
	st.backend = b
	bindings := make([]Binding, len(st.Data))
	buffers := make([]Buffer, len(st.Data))
	for i, item := range st.Data {
		buf, err := b.CreateUniformBuffer(item)
		if err != nil {
			panic(fmt.Sprintf("rend.Set: uploading uniform %d of set %d: %v", i, st.set, err))
		}
		bindings[i] = BufferBinding(buf)
		buffers[i] = buf
	}
	handle, err := b.CreateBindingSet(st.pipeline, st.set, bindings)
	if err != nil {
		panic(fmt.Sprintf("rend.Set: building binding set %d: %v", st.set, err))
	}
	if st.handle != nil {
		b.ReleaseBindingSet(st.handle)
	}
	for _, old := range st.buffers {
		b.ReleaseBuffer(old)
	}
	st.handle = handle
	st.buffers = buffers
}

// Handle returns the cached binding set, which reflects the Data as of
// the last Upload.
func (st *Set) Handle() BindingSet {
	return st.handle
}

// Resolve implements Binder. If the assigned set index or pipeline
// differs from what the cached handle was built for, the set is
// re-uploaded at the new position.
func (st *Set) Resolve(b Backend, pl Pipeline, set int) BindingSet {
	if st.handle == nil || st.set != set || st.pipeline != pl {
		st.set = set
		st.pipeline = pl
		st.Upload(b)
	}
	return st.handle
}

// TextureBinding binds one externally owned image (e.g. a loaded
// texture) as a single-binding set.
type TextureBinding struct {
	Image Image

	pipeline Pipeline
	set      int
	handle   BindingSet
}

// NewTextureBinding returns a TextureBinding for given image; the
// binding set is built lazily on first Resolve.
func NewTextureBinding(img Image) *TextureBinding {
	return &TextureBinding{Image: img}
}

// Resolve implements Binder.
func (tb *TextureBinding) Resolve(b Backend, pl Pipeline, set int) BindingSet {
	if tb.handle != nil && tb.set == set && tb.pipeline == pl {
		return tb.handle
	}
	handle, err := b.CreateBindingSet(pl, set, []Binding{ImageOf(tb.Image)})
	if err != nil {
		panic(fmt.Sprintf("rend.TextureBinding: building binding set %d: %v", set, err))
	}
	if tb.handle != nil {
		b.ReleaseBindingSet(tb.handle)
	}
	tb.pipeline = pl
	tb.set = set
	tb.handle = handle
	return tb.handle
}
