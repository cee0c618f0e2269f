// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"errors"
	"image"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/cynic64/render-engine-sub000/rend"
)

// Window wraps a glfw window with a vulkan surface and swapchain,
// implementing rend.Window. On rend.ErrOutdated from NextImage or
// PresentFuture, call Recreate and retry the frame.
type Window struct {
	GP   *GPU
	Glfw *glfw.Window

	Surface   vk.Surface
	Swapchain vk.Swapchain
	Dims      image.Point

	// Images are the wrapped swapchain images, rotated through by
	// NextImage.
	Images []*Image

	acquireSems []vk.Semaphore
	frameIndex  int
	imageIndex  int
}

// NewWindow creates the surface and swapchain for an existing glfw
// window. The GPU must have been created with the window's required
// instance extensions.
func NewWindow(gp *GPU, glw *glfw.Window) (*Window, error) {
	surfPtr, err := glw.CreateWindowSurface(gp.Instance, nil)
	if err != nil {
		return nil, err
	}
	wn := &Window{
		GP:      gp,
		Glfw:    glw,
		Surface: vk.SurfaceFromPointer(surfPtr),
	}
	if err := wn.initSwapchain(); err != nil {
		return nil, err
	}
	return wn, nil
}

func (wn *Window) initSwapchain() error {
	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(wn.GP.GPU, wn.Surface, &caps)
	if err := NewError(ret); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(wn.GP.GPU, wn.Surface, &formatCount, nil)
	if formatCount == 0 {
		return errors.New("vkrend: surface has no pixel formats")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(wn.GP.GPU, wn.Surface, &formatCount, formats)
	format := formats[0]
	format.Deref()
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vkFormat(rend.BGRA8) {
			format = formats[i]
			break
		}
	}

	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		w, h := wn.Glfw.GetFramebufferSize()
		extent = vk.Extent2D{Width: uint32(w), Height: uint32(h)}
	}
	wn.Dims = image.Pt(int(extent.Width), int(extent.Height))

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	oldSwapchain := wn.Swapchain
	var swapchain vk.Swapchain
	ret = vk.CreateSwapchain(wn.GP.Device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          wn.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}, nil, &swapchain)
	if err := NewError(ret); err != nil {
		return err
	}
	if oldSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(wn.GP.Device, oldSwapchain, nil)
	}
	wn.Swapchain = swapchain

	var count uint32
	ret = vk.GetSwapchainImages(wn.GP.Device, wn.Swapchain, &count, nil)
	if err := NewError(ret); err != nil {
		return err
	}
	vkImages := make([]vk.Image, count)
	ret = vk.GetSwapchainImages(wn.GP.Device, wn.Swapchain, &count, vkImages)
	if err := NewError(ret); err != nil {
		return err
	}
	wn.Images = make([]*Image, count)
	for i, vkImg := range vkImages {
		im, err := wn.GP.wrapSwapchainImage(vkImg, wn.Dims, rend.BGRA8)
		if err != nil {
			return err
		}
		wn.Images[i] = im
	}

	wn.acquireSems = make([]vk.Semaphore, count)
	for i := range wn.acquireSems {
		ret = vk.CreateSemaphore(wn.GP.Device, &vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}, nil, &wn.acquireSems[i])
		if err := NewError(ret); err != nil {
			return err
		}
	}
	wn.frameIndex = 0
	return nil
}

// NextImage acquires the next presentable image, recreating the
// swapchain and retrying when it has gone stale (window resize).
func (wn *Window) NextImage() (rend.Image, error) {
	for {
		var idx uint32
		ret := vk.AcquireNextImage(wn.GP.Device, wn.Swapchain, vk.MaxUint64,
			wn.acquireSems[wn.frameIndex], vk.NullFence, &idx)
		switch ret {
		case vk.ErrorOutOfDate:
			if err := wn.Recreate(); err != nil {
				return nil, err
			}
			continue
		case vk.Suboptimal, vk.Success:
		default:
			return nil, NewError(ret)
		}
		wn.imageIndex = int(idx)
		return wn.Images[idx], nil
	}
}

// GetFuture returns the signal of the last NextImage acquisition, for
// the frame's submit to wait on.
func (wn *Window) GetFuture() rend.CompletionSignal {
	return &Signal{GP: wn.GP, Semaphore: wn.acquireSems[wn.frameIndex]}
}

// PresentFuture waits for the submission signal and presents the
// acquired image. Returns rend.ErrOutdated when the swapchain needs
// recreating.
func (wn *Window) PresentFuture(sig rend.CompletionSignal) error {
	if err := sig.Wait(); err != nil {
		return err
	}
	ret := vk.QueuePresent(wn.GP.Queue, &vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{wn.Swapchain},
		PImageIndices:  []uint32{uint32(wn.imageIndex)},
	})
	wn.frameIndex = (wn.frameIndex + 1) % len(wn.Images)
	switch ret {
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return rend.ErrOutdated
	case vk.Success:
		return nil
	default:
		return NewError(ret)
	}
}

// Recreate rebuilds the swapchain at the surface's current size, after
// rend.ErrOutdated.
func (wn *Window) Recreate() error {
	vk.DeviceWaitIdle(wn.GP.Device)
	wn.freeSwapchainImages()
	return wn.initSwapchain()
}

// ShouldClose reports whether the user asked to close the window.
func (wn *Window) ShouldClose() bool {
	return wn.Glfw.ShouldClose()
}

func (wn *Window) freeSwapchainImages() {
	for _, im := range wn.Images {
		im.Destroy()
	}
	wn.Images = nil
	for _, sem := range wn.acquireSems {
		vk.DestroySemaphore(wn.GP.Device, sem, nil)
	}
	wn.acquireSems = nil
}

// Destroy releases the swapchain, surface, and glfw window.
func (wn *Window) Destroy() {
	vk.DeviceWaitIdle(wn.GP.Device)
	wn.freeSwapchainImages()
	if wn.Swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(wn.GP.Device, wn.Swapchain, nil)
		wn.Swapchain = vk.NullSwapchain
	}
	if wn.Surface != vk.NullSurface {
		vk.DestroySurface(wn.GP.Instance, wn.Surface, nil)
		wn.Surface = vk.NullSurface
	}
	wn.Glfw.Destroy()
}
