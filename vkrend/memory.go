// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Buffer is a device buffer with host-visible backing memory,
// implementing rend.Buffer. Geometry and uniform data in this engine
// is small and rewritten wholesale, so everything lives in
// host-visible memory and skips staging.
type Buffer struct {
	GP     *GPU
	VkBuf  vk.Buffer
	Memory vk.DeviceMemory
	Size   int
}

func (bf *Buffer) Bytes() int { return bf.Size }

// IndexBuffer additionally carries the index count for draw calls.
type IndexBuffer struct {
	Buffer
	N int
}

func (ib *IndexBuffer) IndexCount() int { return ib.N }

// serialize converts fixed-size Go data (structs, arrays, slices of
// such) to its device byte layout.
func serialize(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("vkrend: serializing buffer data: %w", err)
	}
	return buf.Bytes(), nil
}

// newBuffer allocates a host-visible buffer of given usage and fills
// it with raw.
func (gp *GPU) newBuffer(raw []byte, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("vkrend: empty buffer data")
	}
	var vkBuf vk.Buffer
	ret := vk.CreateBuffer(gp.Device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(len(raw)),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &vkBuf)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(gp.Device, vkBuf, &memReqs)
	memReqs.Deref()

	memType, err := gp.findMemoryType(memReqs.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		vk.DestroyBuffer(gp.Device, vkBuf, nil)
		return nil, err
	}
	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(gp.Device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if err := NewError(ret); err != nil {
		vk.DestroyBuffer(gp.Device, vkBuf, nil)
		return nil, err
	}
	ret = vk.BindBufferMemory(gp.Device, vkBuf, mem, 0)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	bf := &Buffer{GP: gp, VkBuf: vkBuf, Memory: mem, Size: len(raw)}
	if err := bf.write(raw); err != nil {
		bf.Destroy()
		return nil, err
	}
	return bf, nil
}

// write maps the buffer memory and copies raw into it.
func (bf *Buffer) write(raw []byte) error {
	var ptr unsafe.Pointer
	ret := vk.MapMemory(bf.GP.Device, bf.Memory, 0, vk.DeviceSize(len(raw)), 0, &ptr)
	if err := NewError(ret); err != nil {
		return err
	}
	vk.Memcopy(ptr, raw)
	vk.UnmapMemory(bf.GP.Device, bf.Memory)
	return nil
}

// Destroy releases the buffer and its memory.
func (bf *Buffer) Destroy() {
	if bf.VkBuf != vk.NullBuffer {
		vk.DestroyBuffer(bf.GP.Device, bf.VkBuf, nil)
		bf.VkBuf = vk.NullBuffer
	}
	if bf.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(bf.GP.Device, bf.Memory, nil)
		bf.Memory = vk.NullDeviceMemory
	}
}
