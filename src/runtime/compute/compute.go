package compute

import (
	"fmt"
	"unsafe"

	"github.com/WowVeryLogin/vulkan_mirrors/src/config"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/buffer"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/descriptors"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/shader"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/particles"
	"github.com/goki/vulkan"
)

type pushData struct {
	dt    float32
	count uint32
	floor float32
	_     float32
}

// Groups is the number of workgroups covering count particles.
func Groups(count uint32) uint32 {
	return (count + config.WorkgroupSize - 1) / config.WorkgroupSize
}

// Dispatcher runs the snow step shader on the compute queue. It satisfies
// particles.Dispatcher.
type Dispatcher struct {
	device   *device.Device
	module   vulkan.ShaderModule
	pipeline vulkan.Pipeline
	layout   vulkan.PipelineLayout
	sets     *descriptors.SetsManager
	set      *descriptors.DescriptorSet
	cb       []vulkan.CommandBuffer
	fence    *device.Fence
	floor    float32

	seed    *buffer.Buffer[particles.Particle]
	current *buffer.Buffer[particles.Particle]
}

func New(device *device.Device, shaderPath string, floor float32) (*Dispatcher, error) {
	module, err := shader.Load(shaderPath, device.LogicalDevice)
	if err != nil {
		return nil, err
	}

	cb := make([]vulkan.CommandBuffer, 1)
	if err := vulkan.Error(vulkan.AllocateCommandBuffers(device.LogicalDevice, &vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandPool:        device.ComputePool,
		CommandBufferCount: 1,
	}, cb)); err != nil {
		vulkan.DestroyShaderModule(device.LogicalDevice, module, nil)
		return nil, fmt.Errorf("allocate compute command buffer: %w", err)
	}

	return &Dispatcher{
		device: device,
		module: module,
		cb:     cb,
		fence:  device.NewFence(true),
		floor:  floor,
	}, nil
}

func storageBuffer(dev *device.Device, count int) *buffer.Buffer[particles.Particle] {
	return buffer.New[particles.Particle](
		dev,
		count,
		false,
		vulkan.BufferUsageFlags(vulkan.BufferUsageStorageBufferBit|vulkan.BufferUsageVertexBufferBit|vulkan.BufferUsageTransferDstBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
	)
}

// Upload creates the seed and current buffers, fills both with seed and
// builds the pipeline that reads them.
func (d *Dispatcher) Upload(seed []particles.Particle) (gpu.Handle, gpu.Handle, error) {
	if d.seed != nil {
		return nil, nil, fmt.Errorf("particles already uploaded")
	}
	d.seed = storageBuffer(d.device, len(seed))
	d.current = storageBuffer(d.device, len(seed))

	size := vulkan.DeviceSize(len(seed) * particles.Stride)
	device.CopyWithStagingBufferCompute(d.device, seed, func(cb vulkan.CommandBuffer, staging vulkan.Buffer) {
		for _, dst := range []vulkan.Buffer{d.seed.Buffer, d.current.Buffer} {
			vulkan.CmdCopyBuffer(cb, staging, dst, 1, []vulkan.BufferCopy{
				{
					SrcOffset: 0,
					DstOffset: 0,
					Size:      size,
				},
			})
		}
	})

	d.set = &descriptors.DescriptorSet{
		Descriptors: []descriptors.Descriptor{
			descriptors.Storage(vulkan.ShaderStageComputeBit, d.seed.Buffer),
			descriptors.Storage(vulkan.ShaderStageComputeBit, d.current.Buffer),
		},
	}
	d.sets = descriptors.NewSets(d.device, []*descriptors.DescriptorSet{d.set})

	if err := vulkan.Error(vulkan.CreatePipelineLayout(d.device.LogicalDevice, &vulkan.PipelineLayoutCreateInfo{
		SType:                  vulkan.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vulkan.PushConstantRange{
			{
				StageFlags: vulkan.ShaderStageFlags(vulkan.ShaderStageComputeBit),
				Offset:     0,
				Size:       uint32(unsafe.Sizeof(pushData{})),
			},
		},
		SetLayoutCount: 1,
		PSetLayouts: []vulkan.DescriptorSetLayout{
			d.set.Layout,
		},
	}, nil, &d.layout)); err != nil {
		return nil, nil, fmt.Errorf("create compute pipeline layout: %w", err)
	}

	pipelines := make([]vulkan.Pipeline, 1)
	if err := vulkan.Error(vulkan.CreateComputePipelines(d.device.LogicalDevice, vulkan.NullPipelineCache, 1, []vulkan.ComputePipelineCreateInfo{
		{
			SType: vulkan.StructureTypeComputePipelineCreateInfo,
			Stage: vulkan.PipelineShaderStageCreateInfo{
				SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vulkan.ShaderStageComputeBit,
				Module: d.module,
				PName:  "main\x00",
			},
			Layout: d.layout,
		},
	}, nil, pipelines)); err != nil {
		return nil, nil, fmt.Errorf("create compute pipeline: %w", err)
	}
	d.pipeline = pipelines[0]

	return d.seed.Buffer, d.current.Buffer, nil
}

func (d *Dispatcher) Dispatch(dt float32, count uint32) error {
	cb := d.cb[0]
	if err := vulkan.Error(vulkan.ResetCommandBuffer(cb, 0)); err != nil {
		return fmt.Errorf("reset compute command buffer: %w", err)
	}
	if err := vulkan.Error(vulkan.BeginCommandBuffer(cb, &vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	})); err != nil {
		return fmt.Errorf("begin compute command buffer: %w", err)
	}

	vulkan.CmdBindPipeline(cb, vulkan.PipelineBindPointCompute, d.pipeline)
	vulkan.CmdBindDescriptorSets(cb, vulkan.PipelineBindPointCompute, d.layout, 0, 1, []vulkan.DescriptorSet{
		d.set.Set,
	}, 0, nil)
	vulkan.CmdPushConstants(cb, d.layout, vulkan.ShaderStageFlags(vulkan.ShaderStageComputeBit), 0, uint32(unsafe.Sizeof(pushData{})), unsafe.Pointer(&pushData{
		dt:    dt,
		count: count,
		floor: d.floor,
	}))
	vulkan.CmdDispatch(cb, Groups(count), 1, 1)

	if err := vulkan.Error(vulkan.EndCommandBuffer(cb)); err != nil {
		return fmt.Errorf("end compute command buffer: %w", err)
	}

	if err := vulkan.Error(vulkan.QueueSubmit(d.device.ComputeQueue, 1, []vulkan.SubmitInfo{
		{
			SType:              vulkan.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    d.cb,
		},
	}, d.fence.Fence)); err != nil {
		return fmt.Errorf("submit compute command buffer: %w", err)
	}
	return nil
}

func (d *Dispatcher) Fence() gpu.Fence {
	return d.fence
}

func (d *Dispatcher) Close() {
	if d.pipeline != vulkan.NullPipeline {
		vulkan.DestroyPipeline(d.device.LogicalDevice, d.pipeline, nil)
	}
	if d.layout != vulkan.NullPipelineLayout {
		vulkan.DestroyPipelineLayout(d.device.LogicalDevice, d.layout, nil)
	}
	if d.sets != nil {
		d.sets.Close()
	}
	if d.seed != nil {
		d.seed.Close()
		d.current.Close()
	}
	vulkan.FreeCommandBuffers(d.device.LogicalDevice, d.device.ComputePool, 1, d.cb)
	d.fence.Close()
	vulkan.DestroyShaderModule(d.device.LogicalDevice, d.module, nil)
}
