// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"fmt"
	"image"

	vk "github.com/goki/vulkan"

	"github.com/cynic64/render-engine-sub000/rend"
)

// descriptor pool capacity; enough for any realistic scene, since
// sets are cached and reused across frames.
const (
	poolMaxSets     = 1024
	poolDescriptors = 4096
)

// Backend implements rend.Backend on a GPU. One Backend drives one
// queue; create it once and share it across Systems.
type Backend struct {
	GP *GPU

	cmdPool  vk.CommandPool
	descPool vk.DescriptorPool
	sampler  vk.Sampler
}

// NewBackend returns a Backend with its command and descriptor pools
// ready.
func NewBackend(gp *GPU) (*Backend, error) {
	bk := &Backend{GP: gp}

	var cmdPool vk.CommandPool
	ret := vk.CreateCommandPool(gp.Device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: gp.QueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &cmdPool)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	bk.cmdPool = cmdPool

	var descPool vk.DescriptorPool
	ret = vk.CreateDescriptorPool(gp.Device, &vk.DescriptorPoolCreateInfo{
		SType:   vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets: poolMaxSets,
		Flags:   vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: 2,
		PPoolSizes: []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: poolDescriptors},
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: poolDescriptors},
		},
	}, nil, &descPool)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	bk.descPool = descPool

	var sampler vk.Sampler
	ret = vk.CreateSampler(gp.Device, &vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MaxLod:       1,
	}, nil, &sampler)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	bk.sampler = sampler
	return bk, nil
}

func (bk *Backend) CreatePipeline(sp *rend.PipelineSpec, rp rend.RenderPass) (rend.Pipeline, error) {
	vrp, ok := rp.(*RenderPass)
	if !ok {
		return nil, fmt.Errorf("vkrend: render pass is %T, not a vkrend.RenderPass", rp)
	}
	return bk.GP.newPipeline(sp, vrp)
}

// BindingSet is an allocated descriptor set, implementing
// rend.BindingSet.
type BindingSet struct {
	Set    int
	VkSet  vk.DescriptorSet
	Layout vk.PipelineLayout
}

func (bs *BindingSet) SetIndex() int { return bs.Set }

func (bk *Backend) CreateBindingSet(pl rend.Pipeline, set int, bindings []rend.Binding) (rend.BindingSet, error) {
	vpl, ok := pl.(*Pipeline)
	if !ok {
		return nil, fmt.Errorf("vkrend: pipeline is %T, not a vkrend.Pipeline", pl)
	}
	if set >= len(vpl.SetLayouts) {
		return nil, fmt.Errorf("vkrend: pipeline %q declares %d sets, cannot bind set %d",
			vpl.Label(), len(vpl.SetLayouts), set)
	}

	sets := make([]vk.DescriptorSet, 1)
	ret := vk.AllocateDescriptorSets(bk.GP.Device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     bk.descPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{vpl.SetLayouts[set]},
	}, &sets[0])
	if err := NewError(ret); err != nil {
		return nil, err
	}

	writes := make([]vk.WriteDescriptorSet, len(bindings))
	for i, bd := range bindings {
		wr := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sets[0],
			DstBinding:      uint32(i),
			DescriptorCount: 1,
		}
		switch bd.Kind() {
		case rend.UniformBinding:
			buf, ok := bd.Buffer.(*Buffer)
			if !ok {
				return nil, fmt.Errorf("vkrend: buffer binding %d is %T, not a vkrend.Buffer", i, bd.Buffer)
			}
			wr.DescriptorType = vk.DescriptorTypeUniformBuffer
			wr.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buf.VkBuf,
				Offset: 0,
				Range:  vk.DeviceSize(buf.Size),
			}}
		case rend.ImageBinding:
			img, ok := bd.Image.(*Image)
			if !ok {
				return nil, fmt.Errorf("vkrend: image binding %d is %T, not a vkrend.Image", i, bd.Image)
			}
			wr.DescriptorType = vk.DescriptorTypeCombinedImageSampler
			wr.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     bk.sampler,
				ImageView:   img.View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		}
		writes[i] = wr
	}
	vk.UpdateDescriptorSets(bk.GP.Device, uint32(len(writes)), writes, 0, nil)

	return &BindingSet{Set: set, VkSet: sets[0], Layout: vpl.Layout}, nil
}

func (bk *Backend) CreateImage(size image.Point, format rend.TextureFormats, samples int) (rend.Image, error) {
	return bk.GP.newImage(size, format, samples)
}

func (bk *Backend) CreateFramebuffer(rp rend.RenderPass, images []rend.Image) (rend.Framebuffer, error) {
	vrp, ok := rp.(*RenderPass)
	if !ok {
		return nil, fmt.Errorf("vkrend: render pass is %T, not a vkrend.RenderPass", rp)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("vkrend: framebuffer needs at least one image")
	}
	imgs := make([]*Image, len(images))
	for i, im := range images {
		vim, ok := im.(*Image)
		if !ok {
			return nil, fmt.Errorf("vkrend: framebuffer image %d is %T, not a vkrend.Image", i, im)
		}
		imgs[i] = vim
	}
	return bk.GP.newFramebuffer(vrp, imgs)
}

func (bk *Backend) CreateVertexBuffer(data any) (rend.Buffer, error) {
	raw, err := serialize(data)
	if err != nil {
		return nil, err
	}
	return bk.GP.newBuffer(raw, vk.BufferUsageVertexBufferBit)
}

func (bk *Backend) CreateIndexBuffer(indices []uint32) (rend.IndexBuffer, error) {
	raw, err := serialize(indices)
	if err != nil {
		return nil, err
	}
	bf, err := bk.GP.newBuffer(raw, vk.BufferUsageIndexBufferBit)
	if err != nil {
		return nil, err
	}
	return &IndexBuffer{Buffer: *bf, N: len(indices)}, nil
}

func (bk *Backend) CreateUniformBuffer(data any) (rend.Buffer, error) {
	raw, err := serialize(data)
	if err != nil {
		return nil, err
	}
	return bk.GP.newBuffer(raw, vk.BufferUsageUniformBufferBit)
}

func (bk *Backend) ReleaseBuffer(buf rend.Buffer) {
	switch bf := buf.(type) {
	case *Buffer:
		bf.Destroy()
	case *IndexBuffer:
		bf.Destroy()
	}
}

func (bk *Backend) ReleaseBindingSet(bs rend.BindingSet) {
	vbs, ok := bs.(*BindingSet)
	if !ok || vbs.VkSet == vk.NullDescriptorSet {
		return
	}
	vk.FreeDescriptorSets(bk.GP.Device, bk.descPool, 1, &vbs.VkSet)
	vbs.VkSet = vk.NullDescriptorSet
}

func (bk *Backend) ReleaseImage(img rend.Image) {
	if vim, ok := img.(*Image); ok {
		vim.Destroy()
	}
}

func (bk *Backend) ReleaseFramebuffer(fb rend.Framebuffer) {
	if vfb, ok := fb.(*Framebuffer); ok {
		vfb.Destroy()
	}
}

// Destroy releases the pools and sampler. Objects created through the
// backend must be destroyed first.
func (bk *Backend) Destroy() {
	dev := bk.GP.Device
	if bk.sampler != vk.NullSampler {
		vk.DestroySampler(dev, bk.sampler, nil)
		bk.sampler = vk.NullSampler
	}
	if bk.descPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(dev, bk.descPool, nil)
		bk.descPool = vk.NullDescriptorPool
	}
	if bk.cmdPool != vk.NullCommandPool {
		vk.DestroyCommandPool(dev, bk.cmdPool, nil)
		bk.cmdPool = vk.NullCommandPool
	}
}
