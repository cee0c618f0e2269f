// Copyright (c) 2020, The render-engine Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vkrend

import (
	"fmt"
	"os"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/cynic64/render-engine-sub000/rend"
)

// Pipeline is a compiled graphics pipeline, implementing
// rend.Pipeline. It keeps the descriptor set layouts its binding sets
// allocate against.
type Pipeline struct {
	GP   *GPU
	Spec rend.PipelineSpec

	VkPipeline vk.Pipeline
	Layout     vk.PipelineLayout
	SetLayouts []vk.DescriptorSetLayout
}

func (pl *Pipeline) Label() string {
	return pl.Spec.VertexPath + "+" + pl.Spec.FragmentPath
}

func vkTopology(tp rend.Topologies) vk.PrimitiveTopology {
	switch tp {
	case rend.TriangleList:
		return vk.PrimitiveTopologyTriangleList
	case rend.TriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case rend.LineList:
		return vk.PrimitiveTopologyLineList
	case rend.LineStrip:
		return vk.PrimitiveTopologyLineStrip
	case rend.PointList:
		return vk.PrimitiveTopologyPointList
	}
	panic(fmt.Sprintf("vkrend: unknown topology %d", tp))
}

func vkVertexFormat(ft rend.VertexFormats) vk.Format {
	switch ft {
	case rend.Float32:
		return vk.FormatR32Sfloat
	case rend.Float32Vector2:
		return vk.FormatR32g32Sfloat
	case rend.Float32Vector3:
		return vk.FormatR32g32b32Sfloat
	case rend.Float32Vector4:
		return vk.FormatR32g32b32a32Sfloat
	}
	panic(fmt.Sprintf("vkrend: unknown vertex format %d", ft))
}

// sliceUint32 reinterprets SPIR-V bytes as the uint32 words vulkan
// wants.
func sliceUint32(data []byte) []uint32 {
	const m = 0x7fffffff
	return (*[m / 4]uint32)(unsafe.Pointer(&data[0]))[: len(data)/4 : len(data)/4]
}

// loadShader reads a compiled SPIR-V file into a shader module.
func (gp *GPU) loadShader(fname string) (vk.ShaderModule, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return vk.NullShaderModule, fmt.Errorf("vkrend: reading shader %q: %w", fname, err)
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(gp.Device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    sliceUint32(data),
	}, nil, &module)
	if err := NewError(ret); err != nil {
		return vk.NullShaderModule, fmt.Errorf("vkrend: shader %q: %w", fname, err)
	}
	return module, nil
}

// setLayouts builds one descriptor set layout per declared set.
// Uniforms are visible to both stages, sampled images to the fragment
// stage.
func (gp *GPU) setLayouts(sets []rend.SetLayout) ([]vk.DescriptorSetLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, len(sets))
	for si, set := range sets {
		bindings := make([]vk.DescriptorSetLayoutBinding, len(set))
		for bi, kind := range set {
			bd := vk.DescriptorSetLayoutBinding{
				Binding:         uint32(bi),
				DescriptorCount: 1,
			}
			switch kind {
			case rend.UniformBinding:
				bd.DescriptorType = vk.DescriptorTypeUniformBuffer
				bd.StageFlags = vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)
			case rend.ImageBinding:
				bd.DescriptorType = vk.DescriptorTypeCombinedImageSampler
				bd.StageFlags = vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
			}
			bindings[bi] = bd
		}
		var layout vk.DescriptorSetLayout
		ret := vk.CreateDescriptorSetLayout(gp.Device, &vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}, nil, &layout)
		if err := NewError(ret); err != nil {
			return nil, err
		}
		layouts[si] = layout
	}
	return layouts, nil
}

// newPipeline compiles a graphics pipeline for given spec against
// given render pass.
func (gp *GPU) newPipeline(sp *rend.PipelineSpec, rp *RenderPass) (*Pipeline, error) {
	vert, err := gp.loadShader(sp.VertexPath)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(gp.Device, vert, nil)
	frag, err := gp.loadShader(sp.FragmentPath)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyShaderModule(gp.Device, frag, nil)

	setLayouts, err := gp.setLayouts(sp.Sets)
	if err != nil {
		return nil, err
	}
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(gp.Device, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}, nil, &layout)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vert,
			PName:  "main\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: frag,
			PName:  "main\x00",
		},
	}

	cfg := vk.GraphicsPipelineCreateInfo{
		SType:             vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:        uint32(len(stages)),
		PStages:           stages,
		PVertexInputState: vertexInput(sp.VertexLayout),
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vkTopology(sp.Topology),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: maxSamples(rp),
		},
		PColorBlendState: colorBlend(),
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     layout,
		RenderPass: rp.VkPass,
	}
	if hasDepth(rp) {
		cfg.PDepthStencilState = depthStencil(sp)
	}

	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateGraphicsPipelines(gp.Device, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{cfg}, nil, pipelines)
	if err := NewError(ret); err != nil {
		return nil, err
	}

	return &Pipeline{
		GP:         gp,
		Spec:       *sp,
		VkPipeline: pipelines[0],
		Layout:     layout,
		SetLayouts: setLayouts,
	}, nil
}

func vertexInput(vl *rend.VertexLayout) *vk.PipelineVertexInputStateCreateInfo {
	if vl == nil || len(vl.Attributes) == 0 {
		return &vk.PipelineVertexInputStateCreateInfo{
			SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
		}
	}
	attrs := make([]vk.VertexInputAttributeDescription, len(vl.Attributes))
	offset := 0
	for i, at := range vl.Attributes {
		attrs[i] = vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  0,
			Format:   vkVertexFormat(at.Format),
			Offset:   uint32(offset),
		}
		offset += at.Format.Bytes()
	}
	return &vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    uint32(vl.Stride()),
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}
}

func colorBlend() *vk.PipelineColorBlendStateCreateInfo {
	cb := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      0xF,
	}
	return &vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{cb},
	}
}

func depthStencil(sp *rend.PipelineSpec) *vk.PipelineDepthStencilStateCreateInfo {
	test := vk.False
	if sp.ReadDepth {
		test = vk.True
	}
	write := vk.False
	if sp.WriteDepth {
		write = vk.True
	}
	return &vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.Bool32(test),
		DepthWriteEnable: vk.Bool32(write),
		DepthCompareOp:   vk.CompareOpLessOrEqual,
		Back: vk.StencilOpState{
			FailOp:    vk.StencilOpKeep,
			PassOp:    vk.StencilOpKeep,
			CompareOp: vk.CompareOpAlways,
		},
		Front: vk.StencilOpState{
			FailOp:    vk.StencilOpKeep,
			PassOp:    vk.StencilOpKeep,
			CompareOp: vk.CompareOpAlways,
		},
	}
}

func hasDepth(rp *RenderPass) bool {
	for _, at := range rp.Atts {
		if at.Format.IsDepth() {
			return true
		}
	}
	return false
}

func maxSamples(rp *RenderPass) vk.SampleCountFlagBits {
	n := 1
	for _, at := range rp.Atts {
		if at.Samples > n {
			n = at.Samples
		}
	}
	return vkSamples(n)
}

// Destroy releases the pipeline, its layout, and set layouts.
func (pl *Pipeline) Destroy() {
	if pl.VkPipeline != vk.NullPipeline {
		vk.DestroyPipeline(pl.GP.Device, pl.VkPipeline, nil)
		pl.VkPipeline = vk.NullPipeline
	}
	if pl.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(pl.GP.Device, pl.Layout, nil)
		pl.Layout = vk.NullPipelineLayout
	}
	for _, sl := range pl.SetLayouts {
		vk.DestroyDescriptorSetLayout(pl.GP.Device, sl, nil)
	}
	pl.SetLayouts = nil
}
