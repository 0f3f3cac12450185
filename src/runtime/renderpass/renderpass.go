package renderpass

import (
	"fmt"
	"unsafe"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/goki/vulkan"
)

// Target is the render pass and the framebuffer for each swapchain image.
type Target interface {
	Pass() vulkan.RenderPass
	Framebuffer(image int) vulkan.Framebuffer
}

// ModelPushSize is the push constant block every graphics pipeline
// declares: one column-major model matrix.
const ModelPushSize = uint32(unsafe.Sizeof([16]float32{}))

// Recorder records one frame slot's graphics commands. It satisfies
// gpu.Recorder.
type Recorder struct {
	target Target
	cb     vulkan.CommandBuffer
}

// NewRecorders allocates one primary command buffer per frame slot from the
// graphics pool.
func NewRecorders(device *device.Device, target Target, count int) []*Recorder {
	commandBuffers := make([]vulkan.CommandBuffer, count)
	if err := vulkan.Error(vulkan.AllocateCommandBuffers(device.LogicalDevice, &vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandPool:        device.Pool,
		CommandBufferCount: uint32(len(commandBuffers)),
	}, commandBuffers)); err != nil {
		panic("failed to allocate command buffers: " + err.Error())
	}

	recorders := make([]*Recorder, count)
	for i := range recorders {
		recorders[i] = &Recorder{target: target, cb: commandBuffers[i]}
	}
	return recorders
}

func (r *Recorder) CommandBuffer() vulkan.CommandBuffer {
	return r.cb
}

func (r *Recorder) Begin() error {
	if err := vulkan.Error(vulkan.BeginCommandBuffer(r.cb, &vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
	})); err != nil {
		return fmt.Errorf("begin command buffer: %w", err)
	}
	return nil
}

func (r *Recorder) BeginRenderPass(image int, extent gpu.Extent) {
	vulkan.CmdBeginRenderPass(r.cb, &vulkan.RenderPassBeginInfo{
		SType:       vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:  r.target.Pass(),
		Framebuffer: r.target.Framebuffer(image),
		RenderArea: vulkan.Rect2D{
			Offset: vulkan.Offset2D{
				X: 0,
				Y: 0,
			},
			Extent: vulkan.Extent2D{Width: extent.Width, Height: extent.Height},
		},
		ClearValueCount: 5,
		PClearValues: []vulkan.ClearValue{
			vulkan.NewClearValue([]float32{0.1, 0.1, 0.1, 1.0}),
			vulkan.NewClearDepthStencil(1.0, 0),
			vulkan.NewClearValue([]float32{0, 0, 0, 0}),
			vulkan.NewClearValue([]float32{0, 0, 0, 0}),
			vulkan.NewClearValue([]float32{0, 0, 0, 0}),
		},
	}, vulkan.SubpassContentsInline)
}

func (r *Recorder) NextSubpass() {
	vulkan.CmdNextSubpass(r.cb, vulkan.SubpassContentsInline)
}

func (r *Recorder) EndRenderPass() {
	vulkan.CmdEndRenderPass(r.cb)
}

func (r *Recorder) End() error {
	if err := vulkan.Error(vulkan.EndCommandBuffer(r.cb)); err != nil {
		return fmt.Errorf("end command buffer: %w", err)
	}
	return nil
}

func (r *Recorder) BindPipeline(pipeline gpu.Handle) {
	vulkan.CmdBindPipeline(r.cb, vulkan.PipelineBindPointGraphics, pipeline.(vulkan.Pipeline))
}

func (r *Recorder) SetViewport(extent gpu.Extent) {
	vulkan.CmdSetViewport(r.cb, 0, 1, []vulkan.Viewport{
		{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		},
	})
}

func (r *Recorder) SetScissor(extent gpu.Extent) {
	vulkan.CmdSetScissor(r.cb, 0, 1, []vulkan.Rect2D{
		{
			Offset: vulkan.Offset2D{},
			Extent: vulkan.Extent2D{Width: extent.Width, Height: extent.Height},
		},
	})
}

func (r *Recorder) SetStencilReference(reference uint32) {
	vulkan.CmdSetStencilReference(r.cb, vulkan.StencilFaceFlags(vulkan.StencilFaceFrontBit|vulkan.StencilFaceBackBit), reference)
}

func (r *Recorder) BindDescriptorSets(layout gpu.Handle, sets ...gpu.Handle) {
	vkSets := make([]vulkan.DescriptorSet, len(sets))
	for i, s := range sets {
		vkSets[i] = s.(vulkan.DescriptorSet)
	}
	vulkan.CmdBindDescriptorSets(r.cb, vulkan.PipelineBindPointGraphics, layout.(vulkan.PipelineLayout), 0, uint32(len(vkSets)), vkSets, 0, nil)
}

func (r *Recorder) BindVertexBuffers(buffers ...gpu.Handle) {
	vkBuffers := make([]vulkan.Buffer, len(buffers))
	offsets := make([]vulkan.DeviceSize, len(buffers))
	for i, b := range buffers {
		vkBuffers[i] = b.(vulkan.Buffer)
	}
	vulkan.CmdBindVertexBuffers(r.cb, 0, uint32(len(vkBuffers)), vkBuffers, offsets)
}

func (r *Recorder) BindIndexBuffer(buffer gpu.Handle) {
	vulkan.CmdBindIndexBuffer(r.cb, buffer.(vulkan.Buffer), 0, vulkan.IndexTypeUint32)
}

func (r *Recorder) PushConstants(layout gpu.Handle, model *[16]float32) {
	vulkan.CmdPushConstants(
		r.cb,
		layout.(vulkan.PipelineLayout),
		vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
		0,
		ModelPushSize,
		unsafe.Pointer(model),
	)
}

func (r *Recorder) Draw(vertexCount, instanceCount uint32) {
	vulkan.CmdDraw(r.cb, vertexCount, instanceCount, 0, 0)
}

func (r *Recorder) DrawIndexed(indexCount, instanceCount uint32) {
	vulkan.CmdDrawIndexed(r.cb, indexCount, instanceCount, 0, 0, 0)
}
