// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rend

import (
	"fmt"
	"image"
)

// Pass declares one stage of the rendering pipeline: the image tags it
// writes, the tags it samples from earlier passes, and the backend
// render pass it records into.
//
// Passes execute in strict declaration order within a System; there is
// no dependency reordering. Every tag in ImagesNeeded must be produced
// by the ImagesCreated of an earlier pass, or supplied as a custom
// image at System construction.
type Pass struct {
	// Name must be unique within a System; it appears in diagnostics.
	Name string

	// ImagesCreated are the tags this pass renders into, in the
	// attachment order of RenderPass.
	ImagesCreated []string

	// ImagesNeeded are the tags this pass samples, in shader binding
	// order.
	ImagesNeeded []string

	RenderPass RenderPass
}

// attachment returns the attachment description for the i'th created
// image. Declaring more created tags than the render pass has
// attachments is a configuration error.
func (ps *Pass) attachment(i int) Attachment {
	atts := ps.RenderPass.Attachments()
	if i >= len(atts) {
		panic(fmt.Sprintf("rend: pass %q creates %d images but its render pass has only %d attachments",
			ps.Name, len(ps.ImagesCreated), len(atts)))
	}
	return atts[i]
}

// ImageRegistry maps image tags to concrete GPU images for one draw
// cycle. It is owned by a System and rebuilt whenever the destination
// dimensions change; the generation counter increments on each rebuild
// so that anything keyed on resolved images (the collection cache) is
// invalidated automatically.
type ImageRegistry struct {
	images     map[string]Image
	dims       image.Point
	generation int
}

// Image returns the image for given tag.
func (rg *ImageRegistry) Image(tag string) (Image, bool) {
	img, ok := rg.images[tag]
	return img, ok
}

// SetImage sets the image for given tag.
func (rg *ImageRegistry) SetImage(tag string, img Image) {
	if rg.images == nil {
		rg.images = make(map[string]Image)
	}
	rg.images[tag] = img
}

// Dimensions returns the dimensions the registry was built for.
func (rg *ImageRegistry) Dimensions() image.Point {
	return rg.dims
}

// Generation returns the registry's rebuild counter.
func (rg *ImageRegistry) Generation() int {
	return rg.generation
}

// reset drops all entries and starts a new generation at given
// dimensions.
func (rg *ImageRegistry) reset(dims image.Point) {
	rg.images = make(map[string]Image)
	rg.dims = dims
	rg.generation++
}
