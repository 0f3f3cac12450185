package buffer

import (
	"unsafe"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"
	"github.com/goki/vulkan"
)

type Buffer[T any] struct {
	device      *device.Device
	Buffer      vulkan.Buffer
	memory      vulkan.DeviceMemory
	elementSize int
	length      int
	mapped      bool
	data        unsafe.Pointer
}

func New[T any](
	dev *device.Device,
	initialLen int,
	mapped bool,
	usage vulkan.BufferUsageFlags,
	memoryProps vulkan.MemoryPropertyFlags,
) *Buffer[T] {
	var t T
	size := vulkan.DeviceSize(initialLen * int(unsafe.Sizeof(t)))
	buffer, memory := dev.CreateBuffer(size, usage, memoryProps)

	var data unsafe.Pointer
	if mapped {
		if err := vulkan.Error(vulkan.MapMemory(dev.LogicalDevice, memory, 0, size, 0, &data)); err != nil {
			panic("failed to map buffer memory: " + err.Error())
		}
	}

	return &Buffer[T]{
		device:      dev,
		Buffer:      buffer,
		memory:      memory,
		mapped:      mapped,
		elementSize: int(unsafe.Sizeof(t)),
		length:      initialLen,
		data:        data,
	}
}

// NewUniform is a persistently mapped, host-coherent uniform buffer holding
// one T.
func NewUniform[T any](dev *device.Device) *Buffer[T] {
	return New[T](
		dev,
		1,
		true,
		vulkan.BufferUsageFlags(vulkan.BufferUsageUniformBufferBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit),
	)
}

// NewDeviceLocal allocates a device-local buffer and fills it through a
// staging copy.
func NewDeviceLocal[T any](dev *device.Device, data []T, usage vulkan.BufferUsageFlagBits) *Buffer[T] {
	b := New[T](
		dev,
		len(data),
		false,
		vulkan.BufferUsageFlags(usage|vulkan.BufferUsageTransferDstBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
	)
	b.InitWithStaging(data)
	return b
}

func (b *Buffer[T]) InitWithStaging(data []T) {
	size := vulkan.DeviceSize(len(data) * b.elementSize)
	device.CopyWithStagingBufferGraphic(b.device, data, func(cb vulkan.CommandBuffer, staging vulkan.Buffer) {
		vulkan.CmdCopyBuffer(cb, staging, b.Buffer, 1, []vulkan.BufferCopy{
			{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      size,
			},
		})
	})
}

func (b *Buffer[T]) WriteBuffer(copyBuffer []T) {
	if !b.mapped {
		panic("buffer is not mapped, cannot write data")
	}
	if len(copyBuffer) > b.length {
		panic("write exceeds buffer length")
	}
	slice := unsafe.Slice((*T)(b.data), len(copyBuffer))
	copy(slice, copyBuffer)
}

func (b *Buffer[T]) Len() int {
	return b.length
}

func (b *Buffer[T]) Close() {
	if b.mapped {
		vulkan.UnmapMemory(b.device.LogicalDevice, b.memory)
		b.data = nil
	}
	vulkan.DestroyBuffer(b.device.LogicalDevice, b.Buffer, nil)
	vulkan.FreeMemory(b.device.LogicalDevice, b.memory, nil)
}
