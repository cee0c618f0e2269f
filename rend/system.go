// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import (
	"fmt"
	"image"
	"log/slog"

	"cogentcore.org/core/base/errors"
)

// System orchestrates an ordered list of Passes into one draw cycle
// per frame. It owns the image registry wiring pass outputs to later
// pass inputs, a pipeline cache per pass, and the shared collection
// cache, and drives a single command sequence through
// Start → AddObject* → NextPass → … → Finish.
//
// A System is driven from one thread; exactly one draw sequence can be
// open at a time.
type System struct {
	// Backend provides all GPU object construction and submission.
	Backend Backend

	// Passes execute in declaration order, once per frame.
	Passes []*Pass

	// CustomImages override registry entries by tag. They are owned by
	// the caller (e.g. fixed-size shadow maps) and are never allocated
	// or replaced by the System.
	CustomImages map[string]Image

	// OutputTag names the registry entry that receives the real
	// destination image each frame instead of an allocated one.
	OutputTag string

	pipelines   []*PipelineCache
	collections *CollectionCache
	registry    ImageRegistry

	// framebuffers per destination image. The presentable image set is
	// small and stable, so each destination builds its framebuffers
	// once per registry generation instead of once per frame.
	framebuffers map[framebufferKey][]Framebuffer

	// ownedImages are the allocated intermediates of the current
	// registry generation, released on the next rebuild. Custom images
	// are never in this list.
	ownedImages []Image

	// state is non-nil while a draw sequence is open.
	state *drawState
}

type framebufferKey struct {
	dest       Image
	generation int
}

// drawState is the in-progress command sequence for one frame.
type drawState struct {
	seq          CommandSequence
	framebuffers []Framebuffer
	passIndex    int
	viewport     Viewport
}

// NewSystem returns a System drawing through the given passes into the
// image tagged outputTag. custom maps tags to caller-owned images; it
// may be nil.
func NewSystem(b Backend, passes []*Pass, custom map[string]Image, outputTag string) *System {
	if len(passes) == 0 {
		panic("rend.NewSystem: a System needs at least one pass")
	}
	names := make(map[string]bool, len(passes))
	for _, ps := range passes {
		if names[ps.Name] {
			panic(fmt.Sprintf("rend.NewSystem: duplicate pass name %q", ps.Name))
		}
		names[ps.Name] = true
	}
	sy := &System{
		Backend:      b,
		Passes:       passes,
		CustomImages: custom,
		OutputTag:    outputTag,
		collections:  NewCollectionCache(b),
		framebuffers: make(map[framebufferKey][]Framebuffer),
	}
	sy.pipelines = make([]*PipelineCache, len(passes))
	for i, ps := range passes {
		sy.pipelines[i] = NewPipelineCache(b, ps.Name, ps.RenderPass)
	}
	return sy
}

// Registry returns the system's image registry for the current frame.
func (sy *System) Registry() *ImageRegistry {
	return &sy.registry
}

// CollectionCache returns the pass-level collection cache, e.g. for an
// explicit Clear.
func (sy *System) CollectionCache() *CollectionCache {
	return sy.collections
}

// PipelineCache returns the pipeline cache for the pass at given
// index.
func (sy *System) PipelineCache(pass int) *PipelineCache {
	return sy.pipelines[pass]
}

// Start opens a new draw sequence targeting dest: it resolves the
// image registry at dest's dimensions (reusing the cached image set
// when the dimensions are unchanged), looks up or builds one
// framebuffer per pass, and opens the render pass of the first Pass.
func (sy *System) Start(dest Image) {
	if sy.state != nil {
		panic("rend.System.Start: a draw sequence is already open (missing Finish?)")
	}
	dims := dest.Size()
	if sy.registry.Dimensions() != dims || sy.registry.Generation() == 0 {
		sy.rebuildImages(dims)
	}
	// the destination rotates every frame (swapchain), so the output
	// entry is refreshed per Start.
	sy.registry.SetImage(sy.OutputTag, dest)
	fbs := sy.framebuffersFor(dest)

	seq := sy.Backend.NewCommandSequence()
	seq.BeginPass(sy.Passes[0].RenderPass, fbs[0])
	sy.state = &drawState{
		seq:          seq,
		framebuffers: fbs,
		viewport:     ViewportFor(dims),
	}
}

// StartWindow acquires the window's next presentable image and Starts
// a draw sequence targeting it.
func (sy *System) StartWindow(w Window) {
	img, err := w.NextImage()
	if err != nil {
		panic(fmt.Sprintf("rend.System.StartWindow: acquiring destination image: %v", err))
	}
	sy.Start(img)
}

// rebuildImages allocates the intermediate image for every created tag
// across all passes at the given dimensions, then applies custom
// overrides. Allocation is the dominant per-frame cost this cache
// avoids: it reruns only when the dimensions change. The previous
// generation's intermediates and framebuffers are released; completed
// frames no longer reference them (presentation waits on submission).
func (sy *System) rebuildImages(dims image.Point) {
	for key, fbs := range sy.framebuffers {
		for _, fb := range fbs {
			sy.Backend.ReleaseFramebuffer(fb)
		}
		delete(sy.framebuffers, key)
	}
	for _, img := range sy.ownedImages {
		sy.Backend.ReleaseImage(img)
	}
	sy.ownedImages = sy.ownedImages[:0]
	sy.registry.reset(dims)
	for _, ps := range sy.Passes {
		for i, tag := range ps.ImagesCreated {
			if tag == sy.OutputTag {
				continue
			}
			if _, ok := sy.CustomImages[tag]; ok {
				continue
			}
			att := ps.attachment(i)
			img, err := sy.Backend.CreateImage(dims, att.Format, att.Samples)
			if err != nil {
				panic(fmt.Sprintf("rend.System: allocating image %q for pass %q: %v", tag, ps.Name, err))
			}
			sy.registry.SetImage(tag, img)
			sy.ownedImages = append(sy.ownedImages, img)
		}
	}
	for tag, img := range sy.CustomImages {
		sy.registry.SetImage(tag, img)
	}
	slog.Debug("rend: rebuilt image registry", "dims", dims, "generation", sy.registry.Generation())
}

// framebuffersFor returns one framebuffer per pass targeting dest,
// built from each pass's created images in attachment order. Results
// are cached per destination and registry generation; a rebuild
// releases every cached entry, so resizing does not accumulate stale
// framebuffers.
func (sy *System) framebuffersFor(dest Image) []Framebuffer {
	key := framebufferKey{dest: dest, generation: sy.registry.Generation()}
	if fbs, ok := sy.framebuffers[key]; ok {
		return fbs
	}
	fbs := make([]Framebuffer, len(sy.Passes))
	for i, ps := range sy.Passes {
		images := make([]Image, len(ps.ImagesCreated))
		for j, tag := range ps.ImagesCreated {
			img, ok := sy.registry.Image(tag)
			if !ok {
				panic(fmt.Sprintf("rend.System: pass %q creates image %q but the registry has no entry for it", ps.Name, tag))
			}
			images[j] = img
		}
		fb, err := sy.Backend.CreateFramebuffer(ps.RenderPass, images)
		if err != nil {
			panic(fmt.Sprintf("rend.System: building framebuffer for pass %q: %v", ps.Name, err))
		}
		fbs[i] = fb
	}
	sy.framebuffers[key] = fbs
	return fbs
}

// AddObject records one indexed draw of dc into the currently open
// pass: the pipeline comes from the pass's pipeline cache, pass-level
// image bindings from the collection cache, and the object's own
// collection binds at the set indices after them.
func (sy *System) AddObject(dc Drawcall) {
	st := sy.state
	if st == nil {
		panic("rend.System.AddObject: no draw sequence is open (call Start first)")
	}
	ps := sy.Passes[st.passIndex]
	sp := dc.PipelineSpec()
	pl := sy.pipelines[st.passIndex].Get(sp)
	shared := sy.collections.Get(sp, pl, ps, &sy.registry)
	own := dc.Bindings(sy.Backend, pl, len(shared))

	sets := make([]BindingSet, 0, len(shared)+len(own))
	sets = append(sets, shared...)
	sets = append(sets, own...)

	vp := st.viewport
	if cv := dc.Viewport(); cv != nil {
		vp = *cv
	}
	st.seq.DrawIndexed(pl, vp, dc.VertexBuffer(), dc.IndexBuffer(), sets)
}

// NextPass closes the render pass of the current Pass and opens the
// next declared one on its framebuffer.
func (sy *System) NextPass() {
	st := sy.state
	if st == nil {
		panic("rend.System.NextPass: no draw sequence is open (call Start first)")
	}
	if st.passIndex+1 >= len(sy.Passes) {
		panic(fmt.Sprintf("rend.System.NextPass: already in the last pass %q", sy.Passes[st.passIndex].Name))
	}
	st.seq.EndPass()
	st.passIndex++
	st.seq.BeginPass(sy.Passes[st.passIndex].RenderPass, st.framebuffers[st.passIndex])
}

// Finish closes the final render pass and submits the frame's command
// sequence, contingent on after (e.g. the swapchain acquisition
// future; nil for none). It returns the completion signal for this
// submission and leaves the System ready for the next Start.
func (sy *System) Finish(after CompletionSignal) CompletionSignal {
	st := sy.state
	if st == nil {
		panic("rend.System.Finish: no draw sequence is open (call Start first)")
	}
	st.seq.EndPass()
	sig, err := sy.Backend.Submit(st.seq, after)
	if err != nil {
		panic(fmt.Sprintf("rend.System.Finish: submitting command sequence in pass %q: %v",
			sy.Passes[st.passIndex].Name, err))
	}
	sy.state = nil
	return sig
}

// FinishToWindow Finishes against the window's acquisition future and
// hands the completion signal to the window for presentation.
func (sy *System) FinishToWindow(w Window) {
	sig := sy.Finish(w.GetFuture())
	errors.Log(w.PresentFuture(sig))
}

// StatsString returns the hit / miss statistics of every cache in the
// system.
func (sy *System) StatsString() string {
	str := ""
	for i, ps := range sy.Passes {
		str += fmt.Sprintf("pipelines [%s]: %s\n", ps.Name, sy.pipelines[i].Stats())
	}
	str += fmt.Sprintf("collections: %s\n", sy.collections.Stats())
	return str
}

// PrintStats prints StatsString to standard output.
func (sy *System) PrintStats() {
	fmt.Print(sy.StatsString())
}
