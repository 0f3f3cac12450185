// Package gpu holds the backend-neutral contracts the render systems are
// written against. The Vulkan implementations live in the sibling runtime
// packages; tests substitute in-memory fakes.
package gpu

import "errors"

// ErrStale reports a presentable surface that no longer matches the window
// and must be recreated before the next frame.
var ErrStale = errors.New("surface is out of date")

// Handle is an opaque backend object: a buffer, descriptor set, pipeline,
// pipeline layout, semaphore and so on. A nil Handle means "no object".
type Handle = any

type Extent struct {
	Width  uint32
	Height uint32
}

func (e Extent) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) AspectRatio() float32 {
	if e.Height == 0 {
		return 1.0
	}
	return float32(e.Width) / float32(e.Height)
}

// Recorder records commands into one command buffer. Calls are only valid
// between Begin and End, draw calls only inside a render pass.
type Recorder interface {
	Begin() error
	BeginRenderPass(image int, extent Extent)
	NextSubpass()
	EndRenderPass()
	End() error

	BindPipeline(pipeline Handle)
	SetViewport(extent Extent)
	SetScissor(extent Extent)
	SetStencilReference(reference uint32)
	BindDescriptorSets(layout Handle, sets ...Handle)
	BindVertexBuffers(buffers ...Handle)
	BindIndexBuffer(buffer Handle)
	PushConstants(layout Handle, model *[16]float32)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)
}

// Fence is a CPU-visible completion signal. Wait blocks without a timeout.
type Fence interface {
	Wait() error
	Reset() error
}
