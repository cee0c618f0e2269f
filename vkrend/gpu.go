// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vkrend is the Vulkan rendering backend, implementing
// rend.Backend on github.com/goki/vulkan with glfw windows.
package vkrend

import (
	"errors"
	"log/slog"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// Init initializes glfw and the vulkan loader. Must be called on the
// main thread before any other vkrend use.
func Init() error {
	if err := glfw.Init(); err != nil {
		return err
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	return vk.Init()
}

// Terminate shuts glfw down. Call last, on the main thread.
func Terminate() {
	glfw.Terminate()
}

// GPU holds the instance, the selected physical device, and the one
// graphics-capable logical device and queue everything renders
// through.
type GPU struct {
	Instance vk.Instance
	GPU      vk.PhysicalDevice
	Device   vk.Device

	// QueueIndex is the graphics queue family in use.
	QueueIndex uint32
	Queue      vk.Queue

	// MemoryProperties of the physical device, for allocation type
	// selection.
	MemoryProperties vk.PhysicalDeviceMemoryProperties
}

// NewGPU creates the instance and logical device. The first physical
// device with a graphics queue is used. instExts are the required
// instance extensions, typically window.GetRequiredInstanceExtensions.
func NewGPU(appName string, instExts []string) (*GPU, error) {
	gp := &GPU{}
	var inst vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   appName + "\x00",
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        "render-engine\x00",
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
		EnabledExtensionCount:   uint32(len(instExts)),
		PpEnabledExtensionNames: instExts,
	}, nil, &inst)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	gp.Instance = inst
	vk.InitInstance(inst)

	var gpuCount uint32
	ret = vk.EnumeratePhysicalDevices(inst, &gpuCount, nil)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	if gpuCount == 0 {
		return nil, errors.New("vkrend: no GPUs found on the system")
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	ret = vk.EnumeratePhysicalDevices(inst, &gpuCount, gpus)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	gp.GPU = gpus[0]
	slog.Debug("vkrend: selected GPU", "count", gpuCount)

	if err := gp.findQueue(); err != nil {
		return nil, err
	}
	if err := gp.makeDevice(); err != nil {
		return nil, err
	}
	vk.GetPhysicalDeviceMemoryProperties(gp.GPU, &gp.MemoryProperties)
	gp.MemoryProperties.Deref()
	return gp, nil
}

func (gp *GPU) findQueue() error {
	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gp.GPU, &queueCount, nil)
	queueProperties := make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gp.GPU, &queueCount, queueProperties)
	required := vk.QueueFlags(vk.QueueGraphicsBit)
	for i := uint32(0); i < queueCount; i++ {
		queueProperties[i].Deref()
		if queueProperties[i].QueueFlags&required != 0 {
			gp.QueueIndex = i
			return nil
		}
	}
	return errors.New("vkrend: no queue family with graphics capabilities")
}

func (gp *GPU) makeDevice() error {
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: gp.QueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	deviceExts := []string{"VK_KHR_swapchain\x00"}

	var device vk.Device
	ret := vk.CreateDevice(gp.GPU, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(deviceExts)),
		PpEnabledExtensionNames: deviceExts,
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vk.True,
		}},
	}, nil, &device)
	if err := NewError(ret); err != nil {
		return err
	}
	gp.Device = device

	var queue vk.Queue
	vk.GetDeviceQueue(device, gp.QueueIndex, 0, &queue)
	gp.Queue = queue
	return nil
}

// findMemoryType returns the index of a memory type matching the
// requirement bits and wanted property flags.
func (gp *GPU) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < gp.MemoryProperties.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		gp.MemoryProperties.MemoryTypes[i].Deref()
		if gp.MemoryProperties.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, errors.New("vkrend: no suitable memory type on device")
}

// Destroy releases the device and instance. All backend objects must
// be destroyed first.
func (gp *GPU) Destroy() {
	if gp.Device != nil {
		vk.DeviceWaitIdle(gp.Device)
		vk.DestroyDevice(gp.Device, nil)
		gp.Device = nil
	}
	if gp.Instance != nil {
		vk.DestroyInstance(gp.Instance, nil)
		gp.Instance = nil
	}
}
