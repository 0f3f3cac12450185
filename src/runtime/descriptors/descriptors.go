package descriptors

import (
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"

	"github.com/goki/vulkan"
)

type SetsManager struct {
	device *device.Device
	pool   vulkan.DescriptorPool
	sets   []*DescriptorSet
}

type DescriptorSet struct {
	device      *device.Device
	Descriptors []Descriptor
	Layout      vulkan.DescriptorSetLayout
	Set         vulkan.DescriptorSet
}

// Descriptor is one binding; its position in DescriptorSet.Descriptors is
// the binding number.
type Descriptor struct {
	Type         vulkan.DescriptorType
	Flags        vulkan.ShaderStageFlags
	Buffer       vulkan.Buffer
	ImageView    vulkan.ImageView
	ImageSampler vulkan.Sampler
}

// Uniform, Sampler, Storage and Input build the four binding kinds the
// renderer uses.
func Uniform(flags vulkan.ShaderStageFlagBits, buffer vulkan.Buffer) Descriptor {
	return Descriptor{
		Type:   vulkan.DescriptorTypeUniformBuffer,
		Flags:  vulkan.ShaderStageFlags(flags),
		Buffer: buffer,
	}
}

func Sampler(view vulkan.ImageView, sampler vulkan.Sampler) Descriptor {
	return Descriptor{
		Type:         vulkan.DescriptorTypeCombinedImageSampler,
		Flags:        vulkan.ShaderStageFlags(vulkan.ShaderStageFragmentBit),
		ImageView:    view,
		ImageSampler: sampler,
	}
}

func Storage(flags vulkan.ShaderStageFlagBits, buffer vulkan.Buffer) Descriptor {
	return Descriptor{
		Type:   vulkan.DescriptorTypeStorageBuffer,
		Flags:  vulkan.ShaderStageFlags(flags),
		Buffer: buffer,
	}
}

func Input(view vulkan.ImageView) Descriptor {
	return Descriptor{
		Type:      vulkan.DescriptorTypeInputAttachment,
		Flags:     vulkan.ShaderStageFlags(vulkan.ShaderStageFragmentBit),
		ImageView: view,
	}
}

// NewLayout creates a set layout for descriptors. Layouts with identical
// bindings are compatible, so pipeline layouts can be built from a
// template before any set exists.
func NewLayout(device *device.Device, descriptors []Descriptor) vulkan.DescriptorSetLayout {
	layoutBindings := []vulkan.DescriptorSetLayoutBinding{}
	for i, descriptor := range descriptors {
		layoutBindings = append(layoutBindings, vulkan.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorCount: 1,
			DescriptorType:  descriptor.Type,
			StageFlags:      descriptor.Flags,
		})
	}
	var descriptorsLayout vulkan.DescriptorSetLayout
	if err := vulkan.Error(vulkan.CreateDescriptorSetLayout(device.LogicalDevice, &vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}, nil, &descriptorsLayout)); err != nil {
		panic("failed to create descriptor set layout: " + err.Error())
	}
	return descriptorsLayout
}

// NewSets creates a layout per set, one pool sized for all of them, and
// allocates and writes every set.
func NewSets(
	device *device.Device,
	sets []*DescriptorSet,
) *SetsManager {
	uniqueDescriptors := map[vulkan.DescriptorType]int{}
	for _, set := range sets {
		for _, descriptor := range set.Descriptors {
			uniqueDescriptors[descriptor.Type]++
		}
	}

	for _, set := range sets {
		set.Layout = NewLayout(device, set.Descriptors)
		set.device = device
	}

	sizes := []vulkan.DescriptorPoolSize{}
	for descType, count := range uniqueDescriptors {
		sizes = append(sizes, vulkan.DescriptorPoolSize{
			Type:            descType,
			DescriptorCount: uint32(count),
		})
	}

	var descriptorsPool vulkan.DescriptorPool
	if err := vulkan.Error(vulkan.CreateDescriptorPool(device.LogicalDevice, &vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		MaxSets:       uint32(len(sets)),
	}, nil, &descriptorsPool)); err != nil {
		panic("failed to create descriptor pool: " + err.Error())
	}

	for _, set := range sets {
		var s vulkan.DescriptorSet
		if err := vulkan.Error(vulkan.AllocateDescriptorSets(device.LogicalDevice, &vulkan.DescriptorSetAllocateInfo{
			SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     descriptorsPool,
			DescriptorSetCount: 1,
			PSetLayouts: []vulkan.DescriptorSetLayout{
				set.Layout,
			},
		}, &s)); err != nil {
			panic("failed to allocate descriptor sets: " + err.Error())
		}
		set.Set = s
	}

	writeDescSets := []vulkan.WriteDescriptorSet{}
	for _, set := range sets {
		for i, descriptor := range set.Descriptors {
			write := vulkan.WriteDescriptorSet{
				SType:           vulkan.StructureTypeWriteDescriptorSet,
				DstSet:          set.Set,
				DstBinding:      uint32(i),
				DstArrayElement: 0,
				DescriptorType:  descriptor.Type,
				DescriptorCount: 1,
			}
			switch descriptor.Type {
			case vulkan.DescriptorTypeUniformBuffer, vulkan.DescriptorTypeStorageBuffer:
				write.PBufferInfo = []vulkan.DescriptorBufferInfo{{
					Buffer: descriptor.Buffer,
					Offset: 0,
					Range:  vulkan.DeviceSize(vulkan.WholeSize),
				}}
			case vulkan.DescriptorTypeCombinedImageSampler:
				write.PImageInfo = []vulkan.DescriptorImageInfo{{
					Sampler:     descriptor.ImageSampler,
					ImageView:   descriptor.ImageView,
					ImageLayout: vulkan.ImageLayoutShaderReadOnlyOptimal,
				}}
			case vulkan.DescriptorTypeInputAttachment:
				write.PImageInfo = []vulkan.DescriptorImageInfo{{
					ImageView:   descriptor.ImageView,
					ImageLayout: vulkan.ImageLayoutShaderReadOnlyOptimal,
				}}
			default:
				continue
			}
			writeDescSets = append(writeDescSets, write)
		}
	}
	vulkan.UpdateDescriptorSets(device.LogicalDevice, uint32(len(writeDescSets)), writeDescSets, 0, nil)

	return &SetsManager{
		device: device,
		pool:   descriptorsPool,
		sets:   sets,
	}
}

func (d *DescriptorSet) Close() {
	vulkan.DestroyDescriptorSetLayout(d.device.LogicalDevice, d.Layout, nil)
}

// Close destroys the pool, freeing its sets, and the per-set layouts.
func (m *SetsManager) Close() {
	for _, set := range m.sets {
		set.Close()
	}
	vulkan.DestroyDescriptorPool(m.device.LogicalDevice, m.pool, nil)
}
