// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/cynic64/render-engine-sub000/rend"
)

// vkFormat maps a texture format to the vulkan format.
func vkFormat(ft rend.TextureFormats) vk.Format {
	switch ft {
	case rend.RGBA8:
		return vk.FormatR8g8b8a8Unorm
	case rend.BGRA8:
		return vk.FormatB8g8r8a8Unorm
	case rend.Depth16:
		return vk.FormatD16Unorm
	case rend.Depth32:
		return vk.FormatD32Sfloat
	}
	panic(fmt.Sprintf("vkrend: unknown texture format %d", ft))
}

func vkSamples(n int) vk.SampleCountFlagBits {
	switch n {
	case 1:
		return vk.SampleCount1Bit
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	}
	panic(fmt.Sprintf("vkrend: unsupported sample count %d", n))
}

// RenderPass implements rend.RenderPass on a vulkan render pass. Use
// the constructors; the attachment list must match what the vulkan
// pass was built with.
type RenderPass struct {
	GP   *GPU
	Atts []rend.Attachment

	VkPass vk.RenderPass

	// ClearValues per attachment, used at BeginPass.
	ClearValues []vk.ClearValue
}

func (rp *RenderPass) Attachments() []rend.Attachment { return rp.Atts }

// Basic returns a single color-attachment render pass. present
// selects the final image layout: true for a pass drawing into the
// swapchain, false for one whose output is sampled by a later pass.
func Basic(gp *GPU, present bool) *RenderPass {
	color := vk.AttachmentDescription{
		Format:         vkFormat(rend.BGRA8),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    colorFinalLayout(present),
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{
			{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
		},
	}
	rp := &RenderPass{
		GP:          gp,
		Atts:        []rend.Attachment{{Format: rend.BGRA8, Samples: 1}},
		ClearValues: []vk.ClearValue{clearColor()},
	}
	rp.build([]vk.AttachmentDescription{color}, subpass)
	return rp
}

// WithDepth returns a color + depth render pass.
func WithDepth(gp *GPU, present bool) *RenderPass {
	color := vk.AttachmentDescription{
		Format:         vkFormat(rend.BGRA8),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    colorFinalLayout(present),
	}
	depth := vk.AttachmentDescription{
		Format:         vkFormat(rend.Depth16),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{
			{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
		},
		PDepthStencilAttachment: &vk.AttachmentReference{
			Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	rp := &RenderPass{
		GP: gp,
		Atts: []rend.Attachment{
			{Format: rend.BGRA8, Samples: 1},
			{Format: rend.Depth16, Samples: 1},
		},
		ClearValues: []vk.ClearValue{clearColor(), clearDepth()},
	}
	rp.build([]vk.AttachmentDescription{color, depth}, subpass)
	return rp
}

// MultisampledWithDepth returns a 4x multisampled color + depth pass
// resolving into a third, single-sampled color attachment.
func MultisampledWithDepth(gp *GPU, present bool) *RenderPass {
	color := vk.AttachmentDescription{
		Format:         vkFormat(rend.BGRA8),
		Samples:        vk.SampleCount4Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}
	depth := vk.AttachmentDescription{
		Format:         vkFormat(rend.Depth16),
		Samples:        vk.SampleCount4Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	resolve := vk.AttachmentDescription{
		Format:         vkFormat(rend.BGRA8),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    colorFinalLayout(present),
	}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{
			{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal},
		},
		PDepthStencilAttachment: &vk.AttachmentReference{
			Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
		PResolveAttachments: []vk.AttachmentReference{
			{Attachment: 2, Layout: vk.ImageLayoutColorAttachmentOptimal},
		},
	}
	rp := &RenderPass{
		GP: gp,
		Atts: []rend.Attachment{
			{Format: rend.BGRA8, Samples: 4},
			{Format: rend.Depth16, Samples: 4},
			{Format: rend.BGRA8, Samples: 1},
		},
		ClearValues: []vk.ClearValue{clearColor(), clearDepth(), clearColor()},
	}
	rp.build([]vk.AttachmentDescription{color, depth, resolve}, subpass)
	return rp
}

func colorFinalLayout(present bool) vk.ImageLayout {
	if present {
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutShaderReadOnlyOptimal
}

func clearColor() vk.ClearValue {
	return vk.NewClearValue([]float32{0, 0, 0, 1})
}

func clearDepth() vk.ClearValue {
	return vk.NewClearDepthStencil(1, 0)
}

func (rp *RenderPass) build(atts []vk.AttachmentDescription, subpass vk.SubpassDescription) {
	var pass vk.RenderPass
	ret := vk.CreateRenderPass(rp.GP.Device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}, nil, &pass)
	IfPanic(NewError(ret))
	rp.VkPass = pass
}

// Destroy releases the vulkan render pass.
func (rp *RenderPass) Destroy() {
	if rp.VkPass != vk.NullRenderPass {
		vk.DestroyRenderPass(rp.GP.Device, rp.VkPass, nil)
		rp.VkPass = vk.NullRenderPass
	}
}
