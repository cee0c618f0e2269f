// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rend is a multi-pass rendering system over a narrow graphics
// backend interface.
//
// A System is a declarative list of Passes wired together by named
// image tags: each pass declares the images it creates and the images
// it needs from earlier passes, and the System allocates the
// intermediates, builds the framebuffers, and drives one command
// sequence per frame:
//
//	system.StartWindow(window)
//	system.AddObject(triangle)
//	system.NextPass()
//	system.AddObject(quad)
//	system.FinishToWindow(window)
//
// Expensive GPU construction is memoized: each pass owns a
// PipelineCache keyed by PipelineSpec, and a shared CollectionCache
// memoizes the descriptor sets binding pass-level images. Intermediate
// images are cached across frames and rebuilt only when the
// destination dimensions change.
//
// Configuration errors (an image tag nothing produces, sequencing
// calls out of order, a shader that fails to build) panic with a
// diagnostic naming the stage and pass: they are authoring errors, not
// runtime conditions. The only recoverable condition is ErrOutdated
// from a stale swapchain.
package rend
