// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rendtest is an in-memory rend.Backend that records every
// construction and every command it is given, so the core's caching,
// sequencing, and binding behavior can be tested without a GPU.
package rendtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"time"

	"github.com/cynic64/render-engine-sub000/rend"
)

// Backend implements rend.Backend, recording all created objects and
// submissions in order.
type Backend struct {
	// BuildDelay is slept on every CreatePipeline, to make cache-miss
	// build times observable in tests.
	BuildDelay time.Duration

	// FailPipelines makes CreatePipeline return an error, for testing
	// the fatal build path.
	FailPipelines bool

	Pipelines    []*Pipeline
	Images       []*Image
	Framebuffers []*Framebuffer
	BindingSets  []*BindingSet
	Submits      []*Submit

	// Released objects, in release order, so tests can assert that
	// replaced GPU objects are freed.
	ReleasedBuffers      []rend.Buffer
	ReleasedBindingSets  []rend.BindingSet
	ReleasedImages       []rend.Image
	ReleasedFramebuffers []rend.Framebuffer

	nextID int
}

// New returns an empty recording backend.
func New() *Backend {
	return &Backend{}
}

func (bk *Backend) id() int {
	bk.nextID++
	return bk.nextID
}

// RenderPass is a named attachment list.
type RenderPass struct {
	Name string
	Atts []rend.Attachment
}

func (rp *RenderPass) Attachments() []rend.Attachment { return rp.Atts }

// BasicPass returns a single color-attachment render pass, the
// equivalent of the simplest real pass configuration.
func BasicPass() *RenderPass {
	return &RenderPass{Name: "basic", Atts: []rend.Attachment{{Format: rend.BGRA8, Samples: 1}}}
}

// DepthPass returns a color + depth render pass.
func DepthPass() *RenderPass {
	return &RenderPass{Name: "depth", Atts: []rend.Attachment{
		{Format: rend.BGRA8, Samples: 1},
		{Format: rend.Depth16, Samples: 1},
	}}
}

// Image records an allocation.
type Image struct {
	ID      int
	Dims    image.Point
	Format  rend.TextureFormats
	Samples int
}

func (im *Image) Size() image.Point { return im.Dims }

// Buffer holds the serialized contents it was created with.
type Buffer struct {
	Data []byte
}

func (bf *Buffer) Bytes() int { return len(bf.Data) }

// IndexBuffer additionally keeps the index list.
type IndexBuffer struct {
	Buffer
	Indices []uint32
}

func (ib *IndexBuffer) IndexCount() int { return len(ib.Indices) }

// Pipeline records the spec and render pass it was built against.
type Pipeline struct {
	ID   int
	Spec rend.PipelineSpec
	Pass rend.RenderPass
}

func (pl *Pipeline) Label() string {
	return fmt.Sprintf("%s+%s#%d", pl.Spec.VertexPath, pl.Spec.FragmentPath, pl.ID)
}

// BindingSet records the pipeline, set index, and bindings it was
// created with. The buffer bindings point at the buffers as serialized
// at creation time, so stale-data behavior is observable.
type BindingSet struct {
	ID       int
	Pipeline rend.Pipeline
	Set      int
	Bindings []rend.Binding
}

func (bs *BindingSet) SetIndex() int { return bs.Set }

// Framebuffer records the pass and image list.
type Framebuffer struct {
	Pass   rend.RenderPass
	Images []rend.Image
}

func (fb *Framebuffer) Size() image.Point {
	if len(fb.Images) == 0 {
		return image.Point{}
	}
	return fb.Images[0].Size()
}

// Signal is a completion signal that is already complete.
type Signal struct {
	Label  string
	Waited bool
}

func (sg *Signal) Wait() error {
	sg.Waited = true
	return nil
}

// OpKinds are the recorded command kinds.
type OpKinds int32

const (
	BeginPassOp OpKinds = iota
	EndPassOp
	DrawOp
)

// Op is one recorded command.
type Op struct {
	Kind        OpKinds
	Pass        rend.RenderPass
	Framebuffer rend.Framebuffer
	Pipeline    rend.Pipeline
	Viewport    rend.Viewport
	Vbuf        rend.Buffer
	Ibuf        rend.IndexBuffer
	Sets        []rend.BindingSet
	IndexCount  int
}

// CommandSequence records ops in order.
type CommandSequence struct {
	Ops       []Op
	Submitted bool
}

func (cs *CommandSequence) BeginPass(rp rend.RenderPass, fb rend.Framebuffer) {
	cs.Ops = append(cs.Ops, Op{Kind: BeginPassOp, Pass: rp, Framebuffer: fb})
}

func (cs *CommandSequence) EndPass() {
	cs.Ops = append(cs.Ops, Op{Kind: EndPassOp})
}

func (cs *CommandSequence) DrawIndexed(pl rend.Pipeline, vp rend.Viewport, vbuf rend.Buffer, ibuf rend.IndexBuffer, sets []rend.BindingSet) {
	cs.Ops = append(cs.Ops, Op{
		Kind:       DrawOp,
		Pipeline:   pl,
		Viewport:   vp,
		Vbuf:       vbuf,
		Ibuf:       ibuf,
		Sets:       sets,
		IndexCount: ibuf.IndexCount(),
	})
}

// Draws returns just the draw ops.
func (cs *CommandSequence) Draws() []Op {
	var draws []Op
	for _, op := range cs.Ops {
		if op.Kind == DrawOp {
			draws = append(draws, op)
		}
	}
	return draws
}

// Submit records a submission.
type Submit struct {
	Seq    *CommandSequence
	After  rend.CompletionSignal
	Signal *Signal
}

//////// rend.Backend implementation

func (bk *Backend) CreatePipeline(sp *rend.PipelineSpec, rp rend.RenderPass) (rend.Pipeline, error) {
	if bk.FailPipelines {
		return nil, fmt.Errorf("rendtest: pipeline build failed for %q", sp.VertexPath)
	}
	if bk.BuildDelay > 0 {
		time.Sleep(bk.BuildDelay)
	}
	pl := &Pipeline{ID: bk.id(), Spec: *sp, Pass: rp}
	bk.Pipelines = append(bk.Pipelines, pl)
	return pl, nil
}

func (bk *Backend) CreateBindingSet(pl rend.Pipeline, set int, bindings []rend.Binding) (rend.BindingSet, error) {
	bs := &BindingSet{
		ID:       bk.id(),
		Pipeline: pl,
		Set:      set,
		Bindings: append([]rend.Binding{}, bindings...),
	}
	bk.BindingSets = append(bk.BindingSets, bs)
	return bs, nil
}

func (bk *Backend) CreateImage(size image.Point, format rend.TextureFormats, samples int) (rend.Image, error) {
	im := &Image{ID: bk.id(), Dims: size, Format: format, Samples: samples}
	bk.Images = append(bk.Images, im)
	return im, nil
}

func (bk *Backend) CreateFramebuffer(rp rend.RenderPass, images []rend.Image) (rend.Framebuffer, error) {
	fb := &Framebuffer{Pass: rp, Images: append([]rend.Image{}, images...)}
	bk.Framebuffers = append(bk.Framebuffers, fb)
	return fb, nil
}

func serialize(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (bk *Backend) CreateVertexBuffer(data any) (rend.Buffer, error) {
	raw, err := serialize(data)
	if err != nil {
		return nil, err
	}
	return &Buffer{Data: raw}, nil
}

func (bk *Backend) CreateIndexBuffer(indices []uint32) (rend.IndexBuffer, error) {
	raw, err := serialize(indices)
	if err != nil {
		return nil, err
	}
	return &IndexBuffer{Buffer: Buffer{Data: raw}, Indices: append([]uint32{}, indices...)}, nil
}

func (bk *Backend) CreateUniformBuffer(data any) (rend.Buffer, error) {
	raw, err := serialize(data)
	if err != nil {
		return nil, err
	}
	return &Buffer{Data: raw}, nil
}

func (bk *Backend) ReleaseBuffer(buf rend.Buffer) {
	bk.ReleasedBuffers = append(bk.ReleasedBuffers, buf)
}

func (bk *Backend) ReleaseBindingSet(bs rend.BindingSet) {
	bk.ReleasedBindingSets = append(bk.ReleasedBindingSets, bs)
}

func (bk *Backend) ReleaseImage(img rend.Image) {
	bk.ReleasedImages = append(bk.ReleasedImages, img)
}

func (bk *Backend) ReleaseFramebuffer(fb rend.Framebuffer) {
	bk.ReleasedFramebuffers = append(bk.ReleasedFramebuffers, fb)
}

func (bk *Backend) NewCommandSequence() rend.CommandSequence {
	return &CommandSequence{}
}

func (bk *Backend) Submit(cs rend.CommandSequence, after rend.CompletionSignal) (rend.CompletionSignal, error) {
	seq := cs.(*CommandSequence)
	seq.Submitted = true
	sub := &Submit{Seq: seq, After: after, Signal: &Signal{Label: "submit"}}
	bk.Submits = append(bk.Submits, sub)
	return sub.Signal, nil
}

// Window is a fake presentable-image chain at fixed dimensions.
type Window struct {
	Backend *Backend
	Dims    image.Point

	Acquired  []*Image
	Futures   []*Signal
	Presented []rend.CompletionSignal
}

// NewWindow returns a fake window of given dimensions.
func NewWindow(bk *Backend, dims image.Point) *Window {
	return &Window{Backend: bk, Dims: dims}
}

func (wn *Window) NextImage() (rend.Image, error) {
	im := &Image{ID: wn.Backend.id(), Dims: wn.Dims, Format: rend.BGRA8, Samples: 1}
	wn.Acquired = append(wn.Acquired, im)
	return im, nil
}

func (wn *Window) GetFuture() rend.CompletionSignal {
	sg := &Signal{Label: "acquire"}
	wn.Futures = append(wn.Futures, sg)
	return sg
}

func (wn *Window) PresentFuture(sig rend.CompletionSignal) error {
	wn.Presented = append(wn.Presented, sig)
	return nil
}
