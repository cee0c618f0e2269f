// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/cynic64/render-engine-sub000/rend"
)

// CommandSequence records one frame's commands into a primary command
// buffer, implementing rend.CommandSequence.
type CommandSequence struct {
	bk  *Backend
	cmd vk.CommandBuffer
}

func (bk *Backend) NewCommandSequence() rend.CommandSequence {
	cmdBuffs := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(bk.GP.Device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        bk.cmdPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmdBuffs)
	IfPanic(NewError(ret))
	cmd := cmdBuffs[0]

	ret = vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	IfPanic(NewError(ret))
	return &CommandSequence{bk: bk, cmd: cmd}
}

func (cs *CommandSequence) BeginPass(rp rend.RenderPass, fb rend.Framebuffer) {
	vrp := rp.(*RenderPass)
	vfb := fb.(*Framebuffer)
	size := vfb.Size()
	vk.CmdBeginRenderPass(cs.cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vrp.VkPass,
		Framebuffer: vfb.VkFramebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: uint32(size.X), Height: uint32(size.Y)},
		},
		ClearValueCount: uint32(len(vrp.ClearValues)),
		PClearValues:    vrp.ClearValues,
	}, vk.SubpassContentsInline)
}

func (cs *CommandSequence) EndPass() {
	vk.CmdEndRenderPass(cs.cmd)
}

func (cs *CommandSequence) DrawIndexed(pl rend.Pipeline, vp rend.Viewport, vbuf rend.Buffer, ibuf rend.IndexBuffer, sets []rend.BindingSet) {
	vpl := pl.(*Pipeline)
	vvb := vbuf.(*Buffer)
	vib := ibuf.(*IndexBuffer)

	vk.CmdBindPipeline(cs.cmd, vk.PipelineBindPointGraphics, vpl.VkPipeline)
	vk.CmdSetViewport(cs.cmd, 0, 1, []vk.Viewport{{
		X: vp.X, Y: vp.Y,
		Width: vp.Width, Height: vp.Height,
		MinDepth: 0, MaxDepth: 1,
	}})
	vk.CmdSetScissor(cs.cmd, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: int32(vp.X), Y: int32(vp.Y)},
		Extent: vk.Extent2D{Width: uint32(vp.Width), Height: uint32(vp.Height)},
	}})
	for _, bs := range sets {
		vbs := bs.(*BindingSet)
		vk.CmdBindDescriptorSets(cs.cmd, vk.PipelineBindPointGraphics, vpl.Layout,
			uint32(vbs.Set), 1, []vk.DescriptorSet{vbs.VkSet}, 0, nil)
	}
	vk.CmdBindVertexBuffers(cs.cmd, 0, 1, []vk.Buffer{vvb.VkBuf}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cs.cmd, vib.VkBuf, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cs.cmd, uint32(vib.N), 1, 0, 0, 0)
}

// Signal is a completion signal for one submission, implementing
// rend.CompletionSignal. A submit signal carries a fence; an image
// acquisition signal carries only the semaphore the submit waits on.
type Signal struct {
	GP        *GPU
	Fence     vk.Fence
	Semaphore vk.Semaphore

	cmd    vk.CommandBuffer
	pool   vk.CommandPool
	waited bool
}

// Wait blocks until the submission completes, then releases the
// fence and command buffer. Safe to call more than once.
func (sg *Signal) Wait() error {
	if sg.waited || sg.Fence == vk.NullFence {
		return nil
	}
	sg.waited = true
	ret := vk.WaitForFences(sg.GP.Device, 1, []vk.Fence{sg.Fence}, vk.True, vk.MaxUint64)
	if err := NewError(ret); err != nil {
		return err
	}
	vk.DestroyFence(sg.GP.Device, sg.Fence, nil)
	sg.Fence = vk.NullFence
	if sg.cmd != nil {
		vk.FreeCommandBuffers(sg.GP.Device, sg.pool, 1, []vk.CommandBuffer{sg.cmd})
		sg.cmd = nil
	}
	return nil
}

func (bk *Backend) Submit(cs rend.CommandSequence, after rend.CompletionSignal) (rend.CompletionSignal, error) {
	seq, ok := cs.(*CommandSequence)
	if !ok {
		return nil, fmt.Errorf("vkrend: command sequence is %T, not a vkrend.CommandSequence", cs)
	}
	ret := vk.EndCommandBuffer(seq.cmd)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	var fence vk.Fence
	ret = vk.CreateFence(bk.GP.Device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &fence)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{seq.cmd},
	}
	if sg, ok := after.(*Signal); ok && sg != nil && sg.Semaphore != vk.NullSemaphore {
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vk.Semaphore{sg.Semaphore}
		submit.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
	}
	ret = vk.QueueSubmit(bk.GP.Queue, 1, []vk.SubmitInfo{submit}, fence)
	if err := NewError(ret); err != nil {
		vk.DestroyFence(bk.GP.Device, fence, nil)
		return nil, err
	}
	return &Signal{GP: bk.GP, Fence: fence, cmd: seq.cmd, pool: bk.cmdPool}, nil
}
