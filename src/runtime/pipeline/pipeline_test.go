package pipeline

import (
	"testing"

	"github.com/WowVeryLogin/vulkan_mirrors/src/object/model"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/particles"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
	"github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorAttachmentsMatchSubpass(t *testing.T) {
	assert.Empty(t, colorAttachments(pipelines.Depth("v", "f")))
	assert.Len(t, colorAttachments(pipelines.GBuffer("v", "f")), 3)
	assert.Len(t, colorAttachments(pipelines.LightingQuad("v", "f")), 1)
	assert.Len(t, colorAttachments(pipelines.Forward("v", "f", pipelines.LayoutLit)), 1)
}

func TestBlendAttachment(t *testing.T) {
	opaque := blendAttachment(pipelines.BlendOpaque)
	assert.Equal(t, vulkan.Bool32(vulkan.False), opaque.BlendEnable)
	assert.Equal(t, vulkan.ColorComponentFlags(allComponents), opaque.ColorWriteMask)

	alpha := blendAttachment(pipelines.BlendAlpha)
	assert.Equal(t, vulkan.Bool32(vulkan.True), alpha.BlendEnable)
	assert.Equal(t, vulkan.BlendFactorSrcAlpha, alpha.SrcColorBlendFactor)
	assert.Equal(t, vulkan.BlendFactorOneMinusSrcAlpha, alpha.DstColorBlendFactor)

	additive := blendAttachment(pipelines.BlendAdditive)
	assert.Equal(t, vulkan.BlendFactorOne, additive.SrcColorBlendFactor)
	assert.Equal(t, vulkan.BlendFactorOne, additive.DstColorBlendFactor)

	none := blendAttachment(pipelines.BlendNoColor)
	assert.Zero(t, none.ColorWriteMask)
}

func TestStencilState(t *testing.T) {
	enabled, op := stencilState(pipelines.StencilDisabled)
	assert.Equal(t, vulkan.Bool32(vulkan.False), enabled)

	enabled, op = stencilState(pipelines.StencilWrite)
	assert.Equal(t, vulkan.Bool32(vulkan.True), enabled)
	assert.Equal(t, vulkan.CompareOpAlways, op.CompareOp)
	assert.Equal(t, vulkan.StencilOpReplace, op.PassOp)
	assert.Equal(t, uint32(0xff), op.WriteMask)

	enabled, op = stencilState(pipelines.StencilTest)
	assert.Equal(t, vulkan.Bool32(vulkan.True), enabled)
	assert.Equal(t, vulkan.CompareOpEqual, op.CompareOp)
	assert.Equal(t, vulkan.StencilOpKeep, op.PassOp)
	assert.Zero(t, op.WriteMask)
}

func TestReflectedKeyFlipsFrontFace(t *testing.T) {
	forward := pipelines.Forward("v", "f", pipelines.LayoutNormal)
	reflected := pipelines.MirrorReflect(forward)
	assert.NotEqual(t, frontFace(forward.FrontFace), frontFace(reflected.FrontFace))
}

func TestVertexInput(t *testing.T) {
	bindings, attributes := vertexInput(pipelines.InputNone)
	assert.Empty(t, bindings)
	assert.Empty(t, attributes)

	bindings, attributes = vertexInput(pipelines.InputMesh)
	assert.Len(t, bindings, 1)
	assert.Len(t, attributes, len(model.VertexAttributeDescription))

	bindings, attributes = vertexInput(pipelines.InputMeshInstanced)
	require.Len(t, bindings, 2)
	assert.Equal(t, vulkan.VertexInputRateInstance, bindings[1].InputRate)
	assert.Equal(t, uint32(particles.Stride), bindings[1].Stride)
	require.Len(t, attributes, len(model.VertexAttributeDescription)+2)
	assert.Equal(t, uint32(16), attributes[len(attributes)-1].Offset)
	// the shared model slices are left untouched
	assert.Len(t, model.VertexBindingDescription, 1)
}

func TestObjectSetBindings(t *testing.T) {
	types := func(layout pipelines.Layout) []vulkan.DescriptorType {
		var out []vulkan.DescriptorType
		for _, d := range ObjectSet(layout, nil, nil, nil, nil) {
			out = append(out, d.Type)
		}
		return out
	}
	assert.Equal(t, []vulkan.DescriptorType{
		vulkan.DescriptorTypeUniformBuffer,
		vulkan.DescriptorTypeCombinedImageSampler,
	}, types(pipelines.LayoutNormal))
	assert.Equal(t, []vulkan.DescriptorType{
		vulkan.DescriptorTypeUniformBuffer,
	}, types(pipelines.LayoutSnow))
	assert.Equal(t, []vulkan.DescriptorType{
		vulkan.DescriptorTypeUniformBuffer,
		vulkan.DescriptorTypeUniformBuffer,
		vulkan.DescriptorTypeCombinedImageSampler,
	}, types(pipelines.LayoutLit))
	assert.Equal(t, []vulkan.DescriptorType{
		vulkan.DescriptorTypeUniformBuffer,
		vulkan.DescriptorTypeUniformBuffer,
	}, types(pipelines.LayoutLighting))
}
