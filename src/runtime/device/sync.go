package device

import (
	"fmt"

	"github.com/goki/vulkan"
)

// Fence is a Vulkan fence satisfying gpu.Fence.
type Fence struct {
	device vulkan.Device
	Fence  vulkan.Fence
}

// NewFence creates a fence, already signaled when signaled is true so the
// first wait on it returns immediately.
func (v *Device) NewFence(signaled bool) *Fence {
	info := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit)
	}

	var fence vulkan.Fence
	if err := vulkan.Error(vulkan.CreateFence(v.LogicalDevice, &info, nil, &fence)); err != nil {
		panic("failed to create fence: " + err.Error())
	}
	return &Fence{device: v.LogicalDevice, Fence: fence}
}

func (f *Fence) Wait() error {
	if err := vulkan.Error(vulkan.WaitForFences(f.device, 1, []vulkan.Fence{f.Fence}, vulkan.True, vulkan.MaxUint64)); err != nil {
		return fmt.Errorf("wait for fence: %w", err)
	}
	return nil
}

func (f *Fence) Reset() error {
	if err := vulkan.Error(vulkan.ResetFences(f.device, 1, []vulkan.Fence{f.Fence})); err != nil {
		return fmt.Errorf("reset fence: %w", err)
	}
	return nil
}

func (f *Fence) Close() {
	vulkan.DestroyFence(f.device, f.Fence, nil)
}

func (v *Device) NewSemaphore() vulkan.Semaphore {
	var semaphore vulkan.Semaphore
	if err := vulkan.Error(vulkan.CreateSemaphore(v.LogicalDevice, &vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}, nil, &semaphore)); err != nil {
		panic("failed to create semaphore: " + err.Error())
	}
	return semaphore
}

func (v *Device) DestroySemaphore(semaphore vulkan.Semaphore) {
	vulkan.DestroySemaphore(v.LogicalDevice, semaphore, nil)
}
