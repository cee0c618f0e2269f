// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"image"

	vk "github.com/goki/vulkan"

	"github.com/cynic64/render-engine-sub000/rend"
)

// Image is a vulkan image with its view and (when allocated here)
// backing memory, implementing rend.Image. Swapchain images wrap an
// externally owned vk.Image and have no Memory.
type Image struct {
	GP      *GPU
	Dims    image.Point
	Format  rend.TextureFormats
	Samples int

	VkImage vk.Image
	View    vk.ImageView
	Memory  vk.DeviceMemory
}

func (im *Image) Size() image.Point { return im.Dims }

// newImage allocates an image usable as an attachment and for
// sampling in later passes.
func (gp *GPU) newImage(size image.Point, format rend.TextureFormats, samples int) (*Image, error) {
	usage := vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit
	aspect := vk.ImageAspectColorBit
	if format.IsDepth() {
		usage = vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit
		aspect = vk.ImageAspectDepthBit
	}

	var vkImg vk.Image
	ret := vk.CreateImage(gp.Device, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vkFormat(format),
		Extent: vk.Extent3D{
			Width:  uint32(size.X),
			Height: uint32(size.Y),
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vkSamples(samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &vkImg)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(gp.Device, vkImg, &memReqs)
	memReqs.Deref()
	memType, err := gp.findMemoryType(memReqs.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(gp.Device, vkImg, nil)
		return nil, err
	}
	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(gp.Device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if err := NewError(ret); err != nil {
		vk.DestroyImage(gp.Device, vkImg, nil)
		return nil, err
	}
	ret = vk.BindImageMemory(gp.Device, vkImg, mem, 0)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	im := &Image{
		GP: gp, Dims: size, Format: format, Samples: samples,
		VkImage: vkImg, Memory: mem,
	}
	if err := im.makeView(aspect); err != nil {
		im.Destroy()
		return nil, err
	}
	return im, nil
}

// wrapSwapchainImage wraps an externally owned swapchain image with a
// color view.
func (gp *GPU) wrapSwapchainImage(vkImg vk.Image, size image.Point, format rend.TextureFormats) (*Image, error) {
	im := &Image{
		GP: gp, Dims: size, Format: format, Samples: 1,
		VkImage: vkImg,
	}
	if err := im.makeView(vk.ImageAspectColorBit); err != nil {
		return nil, err
	}
	return im, nil
}

func (im *Image) makeView(aspect vk.ImageAspectFlagBits) error {
	var view vk.ImageView
	ret := vk.CreateImageView(im.GP.Device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    im.VkImage,
		ViewType: vk.ImageViewType2d,
		Format:   vkFormat(im.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if err := NewError(ret); err != nil {
		return err
	}
	im.View = view
	return nil
}

// Destroy releases the view and, for images allocated here, the image
// and memory.
func (im *Image) Destroy() {
	if im.View != vk.NullImageView {
		vk.DestroyImageView(im.GP.Device, im.View, nil)
		im.View = vk.NullImageView
	}
	if im.Memory != vk.NullDeviceMemory {
		vk.DestroyImage(im.GP.Device, im.VkImage, nil)
		vk.FreeMemory(im.GP.Device, im.Memory, nil)
		im.VkImage = vk.NullImage
		im.Memory = vk.NullDeviceMemory
	}
}

// Framebuffer binds a render pass to concrete image views,
// implementing rend.Framebuffer.
type Framebuffer struct {
	GP     *GPU
	Pass   *RenderPass
	Images []*Image

	VkFramebuffer vk.Framebuffer
}

func (fb *Framebuffer) Size() image.Point {
	if len(fb.Images) == 0 {
		return image.Point{}
	}
	return fb.Images[0].Dims
}

func (gp *GPU) newFramebuffer(rp *RenderPass, images []*Image) (*Framebuffer, error) {
	views := make([]vk.ImageView, len(images))
	for i, im := range images {
		views[i] = im.View
	}
	size := images[0].Dims
	var vkFb vk.Framebuffer
	ret := vk.CreateFramebuffer(gp.Device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.VkPass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           uint32(size.X),
		Height:          uint32(size.Y),
		Layers:          1,
	}, nil, &vkFb)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return &Framebuffer{GP: gp, Pass: rp, Images: images, VkFramebuffer: vkFb}, nil
}

// Destroy releases the vulkan framebuffer, not its images.
func (fb *Framebuffer) Destroy() {
	if fb.VkFramebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(fb.GP.Device, fb.VkFramebuffer, nil)
		fb.VkFramebuffer = vk.NullFramebuffer
	}
}
