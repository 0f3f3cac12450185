package pipeline

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"github.com/WowVeryLogin/vulkan_mirrors/src/object/model"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/descriptors"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/renderpass"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/shader"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/swapchain"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/particles"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
	"github.com/goki/vulkan"
)

func NewLayout(
	device *device.Device,
	descriptorsLayout []vulkan.DescriptorSetLayout,
	constRanges []vulkan.PushConstantRange,
) vulkan.PipelineLayout {
	var layout vulkan.PipelineLayout
	if err := vulkan.Error(vulkan.CreatePipelineLayout(device.LogicalDevice, &vulkan.PipelineLayoutCreateInfo{
		SType:                  vulkan.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: uint32(len(constRanges)),
		PPushConstantRanges:    constRanges,
		SetLayoutCount:         uint32(len(descriptorsLayout)),
		PSetLayouts:            descriptorsLayout,
	}, nil, &layout)); err != nil {
		panic("failed to create pipeline layout: " + err.Error())
	}

	return layout
}

// ObjectSet lists the bindings of the first set a pipeline of the given
// layout reads. Frame sets must be written in the same order.
func ObjectSet(
	layout pipelines.Layout,
	camera, lights vulkan.Buffer,
	view vulkan.ImageView,
	sampler vulkan.Sampler,
) []descriptors.Descriptor {
	cameraBinding := descriptors.Uniform(vulkan.ShaderStageVertexBit|vulkan.ShaderStageFragmentBit, camera)
	switch layout {
	case pipelines.LayoutSnow:
		return []descriptors.Descriptor{cameraBinding}
	case pipelines.LayoutLit:
		return []descriptors.Descriptor{
			cameraBinding,
			descriptors.Uniform(vulkan.ShaderStageFragmentBit, lights),
			descriptors.Sampler(view, sampler),
		}
	case pipelines.LayoutLighting:
		return []descriptors.Descriptor{
			cameraBinding,
			descriptors.Uniform(vulkan.ShaderStageFragmentBit, lights),
		}
	}
	return []descriptors.Descriptor{
		cameraBinding,
		descriptors.Sampler(view, sampler),
	}
}

var layouts = []pipelines.Layout{
	pipelines.LayoutNormal,
	pipelines.LayoutSnow,
	pipelines.LayoutLit,
	pipelines.LayoutLighting,
}

// Factory builds graphics pipelines for the mirrors render pass. It
// satisfies pipelines.Factory.
type Factory struct {
	device     *device.Device
	renderPass vulkan.RenderPass
	shaderDir  string
	setLayouts map[pipelines.Layout][]vulkan.DescriptorSetLayout
}

func NewFactory(device *device.Device, renderPass vulkan.RenderPass, shaderDir string) *Factory {
	f := &Factory{
		device:     device,
		renderPass: renderPass,
		shaderDir:  shaderDir,
		setLayouts: map[pipelines.Layout][]vulkan.DescriptorSetLayout{},
	}
	for _, l := range layouts {
		sets := []vulkan.DescriptorSetLayout{
			descriptors.NewLayout(device, ObjectSet(l, nil, nil, nil, nil)),
		}
		if l == pipelines.LayoutLighting {
			sets = append(sets, descriptors.NewLayout(device, swapchain.InputDescriptors(nil, nil, nil)))
		}
		f.setLayouts[l] = sets
	}
	return f
}

func (f *Factory) Create(key pipelines.Key) (gpu.Handle, gpu.Handle, error) {
	vert, err := shader.Load(filepath.Join(f.shaderDir, key.Vertex), f.device.LogicalDevice)
	if err != nil {
		return nil, nil, err
	}
	defer vulkan.DestroyShaderModule(f.device.LogicalDevice, vert, nil)
	frag, err := shader.Load(filepath.Join(f.shaderDir, key.Fragment), f.device.LogicalDevice)
	if err != nil {
		return nil, nil, err
	}
	defer vulkan.DestroyShaderModule(f.device.LogicalDevice, frag, nil)

	layout := NewLayout(f.device, f.setLayouts[key.Layout], []vulkan.PushConstantRange{
		{
			StageFlags: vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
			Offset:     0,
			Size:       renderpass.ModelPushSize,
		},
	})

	bindings, attributes := vertexInput(key.Input)
	blendAttachments := colorAttachments(key)
	stencilEnable, stencilOp := stencilState(key.Stencil)
	cull := vulkan.CullModeBackBit
	if key.Input == pipelines.InputNone {
		cull = vulkan.CullModeNone
	}

	info := vulkan.GraphicsPipelineCreateInfo{
		SType:      vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vulkan.PipelineShaderStageCreateInfo{
			{
				SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vulkan.ShaderStageVertexBit,
				Module: vert,
				PName:  "main\x00",
			},
			{
				SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vulkan.ShaderStageFragmentBit,
				Module: frag,
				PName:  "main\x00",
			},
		},
		PVertexInputState: &vulkan.PipelineVertexInputStateCreateInfo{
			SType:                           vulkan.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vulkan.PipelineInputAssemblyStateCreateInfo{
			SType:                  vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               vulkan.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: vulkan.False,
		},
		PViewportState: &vulkan.PipelineViewportStateCreateInfo{
			SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vulkan.PipelineRasterizationStateCreateInfo{
			SType:       vulkan.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vulkan.PolygonModeFill,
			LineWidth:   1.0,
			CullMode:    vulkan.CullModeFlags(cull),
			FrontFace:   frontFace(key.FrontFace),
		},
		PMultisampleState: &vulkan.PipelineMultisampleStateCreateInfo{
			SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vulkan.SampleCount1Bit,
			MinSampleShading:     1.0,
		},
		PColorBlendState: &vulkan.PipelineColorBlendStateCreateInfo{
			SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
			LogicOp:         vulkan.LogicOpCopy,
			AttachmentCount: uint32(len(blendAttachments)),
			PAttachments:    blendAttachments,
		},
		PDepthStencilState: &vulkan.PipelineDepthStencilStateCreateInfo{
			SType:             vulkan.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:   boolean(key.DepthTest),
			DepthWriteEnable:  boolean(key.DepthWrite),
			DepthCompareOp:    vulkan.CompareOpLessOrEqual,
			StencilTestEnable: stencilEnable,
			Front:             stencilOp,
			Back:              stencilOp,
			MinDepthBounds:    0,
			MaxDepthBounds:    1,
		},
		PDynamicState: &vulkan.PipelineDynamicStateCreateInfo{
			SType:             vulkan.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 3,
			PDynamicStates: []vulkan.DynamicState{
				vulkan.DynamicStateViewport,
				vulkan.DynamicStateScissor,
				vulkan.DynamicStateStencilReference,
			},
		},
		Layout:             layout,
		RenderPass:         f.renderPass,
		Subpass:            uint32(key.Subpass),
		BasePipelineIndex:  -1,
		BasePipelineHandle: vulkan.NullPipeline,
	}

	created := make([]vulkan.Pipeline, 1)
	if err := vulkan.Error(vulkan.CreateGraphicsPipelines(f.device.LogicalDevice, vulkan.NullPipelineCache, 1,
		[]vulkan.GraphicsPipelineCreateInfo{info}, nil, created)); err != nil {
		vulkan.DestroyPipelineLayout(f.device.LogicalDevice, layout, nil)
		return nil, nil, fmt.Errorf("create graphics pipeline: %w", err)
	}

	return created[0], layout, nil
}

func (f *Factory) Destroy(pipeline gpu.Handle, layout gpu.Handle) {
	if p, ok := pipeline.(vulkan.Pipeline); ok {
		vulkan.DestroyPipeline(f.device.LogicalDevice, p, nil)
	}
	if l, ok := layout.(vulkan.PipelineLayout); ok {
		vulkan.DestroyPipelineLayout(f.device.LogicalDevice, l, nil)
	}
}

// Close destroys the shared set layouts. Pipelines must be released first.
func (f *Factory) Close() {
	for _, sets := range f.setLayouts {
		for _, l := range sets {
			vulkan.DestroyDescriptorSetLayout(f.device.LogicalDevice, l, nil)
		}
	}
}

func boolean(b bool) vulkan.Bool32 {
	if b {
		return vulkan.True
	}
	return vulkan.False
}

func frontFace(w pipelines.Winding) vulkan.FrontFace {
	if w == pipelines.CounterClockwise {
		return vulkan.FrontFaceCounterClockwise
	}
	return vulkan.FrontFaceClockwise
}

var instanceBinding = vulkan.VertexInputBindingDescription{
	Binding:   1,
	Stride:    particles.Stride,
	InputRate: vulkan.VertexInputRateInstance,
}

var instanceAttributes = []vulkan.VertexInputAttributeDescription{
	{
		Binding:  1,
		Location: 4,
		Format:   vulkan.FormatR32g32b32a32Sfloat,
		Offset:   uint32(unsafe.Offsetof(particles.Particle{}.Position)),
	},
	{
		Binding:  1,
		Location: 5,
		Format:   vulkan.FormatR32g32b32a32Sfloat,
		Offset:   uint32(unsafe.Offsetof(particles.Particle{}.Velocity)),
	},
}

func vertexInput(input pipelines.VertexInput) ([]vulkan.VertexInputBindingDescription, []vulkan.VertexInputAttributeDescription) {
	switch input {
	case pipelines.InputMesh:
		return model.VertexBindingDescription, model.VertexAttributeDescription
	case pipelines.InputMeshInstanced:
		bindings := append([]vulkan.VertexInputBindingDescription{}, model.VertexBindingDescription...)
		attributes := append([]vulkan.VertexInputAttributeDescription{}, model.VertexAttributeDescription...)
		return append(bindings, instanceBinding), append(attributes, instanceAttributes...)
	}
	return nil, nil
}

const allComponents = vulkan.ColorComponentRBit | vulkan.ColorComponentGBit | vulkan.ColorComponentBBit | vulkan.ColorComponentABit

func blendAttachment(mode pipelines.BlendMode) vulkan.PipelineColorBlendAttachmentState {
	state := vulkan.PipelineColorBlendAttachmentState{
		ColorWriteMask:      vulkan.ColorComponentFlags(allComponents),
		SrcColorBlendFactor: vulkan.BlendFactorOne,
		DstColorBlendFactor: vulkan.BlendFactorZero,
		ColorBlendOp:        vulkan.BlendOpAdd,
		SrcAlphaBlendFactor: vulkan.BlendFactorOne,
		DstAlphaBlendFactor: vulkan.BlendFactorZero,
		AlphaBlendOp:        vulkan.BlendOpAdd,
	}
	switch mode {
	case pipelines.BlendAlpha:
		state.BlendEnable = vulkan.True
		state.SrcColorBlendFactor = vulkan.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vulkan.BlendFactorOneMinusSrcAlpha
		state.DstAlphaBlendFactor = vulkan.BlendFactorOneMinusSrcAlpha
	case pipelines.BlendAdditive:
		state.BlendEnable = vulkan.True
		state.DstColorBlendFactor = vulkan.BlendFactorOne
		state.DstAlphaBlendFactor = vulkan.BlendFactorOne
	case pipelines.BlendNoColor:
		state.ColorWriteMask = 0
	}
	return state
}

// colorAttachments matches the colour attachment count of key's subpass:
// none for depth, the G-buffer targets for gbuffer, the swapchain image for
// lighting.
func colorAttachments(key pipelines.Key) []vulkan.PipelineColorBlendAttachmentState {
	switch key.Subpass {
	case pipelines.SubpassDepth:
		return nil
	case pipelines.SubpassGBuffer:
		out := make([]vulkan.PipelineColorBlendAttachmentState, swapchain.GBufferAttachments)
		for i := range out {
			out[i] = blendAttachment(key.Blend)
		}
		return out
	}
	return []vulkan.PipelineColorBlendAttachmentState{blendAttachment(key.Blend)}
}

// stencilState maps a stencil mode onto both faces. The reference value is
// dynamic state set per mirror.
func stencilState(mode pipelines.StencilMode) (vulkan.Bool32, vulkan.StencilOpState) {
	op := vulkan.StencilOpState{
		FailOp:      vulkan.StencilOpKeep,
		PassOp:      vulkan.StencilOpKeep,
		DepthFailOp: vulkan.StencilOpKeep,
		CompareOp:   vulkan.CompareOpAlways,
		CompareMask: 0xff,
		WriteMask:   0,
	}
	switch mode {
	case pipelines.StencilWrite:
		op.PassOp = vulkan.StencilOpReplace
		op.WriteMask = 0xff
		return vulkan.True, op
	case pipelines.StencilTest:
		op.CompareOp = vulkan.CompareOpEqual
		return vulkan.True, op
	}
	return vulkan.False, op
}
