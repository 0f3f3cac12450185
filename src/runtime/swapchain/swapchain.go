package swapchain

import (
	"fmt"

	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/descriptors"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/goki/vulkan"
)

// Framebuffer attachments, in render pass order.
const (
	AttachmentColor = iota
	AttachmentDepth
	AttachmentPosition
	AttachmentNormal
	AttachmentAlbedo

	AttachmentCount
)

// GBufferAttachments is the number of colour targets the gbuffer subpass
// writes.
const GBufferAttachments = 3

const (
	PositionFormat = vulkan.FormatR16g16b16a16Sfloat
	NormalFormat   = vulkan.FormatR16g16b16a16Sfloat
	AlbedoFormat   = vulkan.FormatR8g8b8a8Unorm
)

var ErrOutOfDate = gpu.ErrStale

// SwapchainFactory owns the render pass, which outlives swapchain
// recreation, and the current swapchain. It is the renderer's surface and
// graphics queue.
type SwapchainFactory struct {
	Swapchain  *Swapchain
	RenderPass vulkan.RenderPass

	device        *device.Device
	surfaceFormat vulkan.SurfaceFormat
	presentMode   vulkan.PresentMode
	depthFormat   vulkan.Format
	lastImage     int
}

func New(device *device.Device, windowExtent gpu.Extent) *SwapchainFactory {
	sp := device.SwapchainSupport()
	surfaceFormat := chooseSwapSurfaceFormat(sp.Formats)
	presentMode := chooseSwapPresentMode(sp.Presents)

	depthFormat := findDepthFormat(device)
	renderPass := createRenderPass(device, surfaceFormat.Format, depthFormat)

	sf := SwapchainFactory{
		RenderPass:    renderPass,
		device:        device,
		surfaceFormat: surfaceFormat,
		presentMode:   presentMode,
		depthFormat:   depthFormat,
	}

	sf.Swapchain = sf.newSwapchain(windowExtent)
	logging.Logger().Info("swapchain created",
		"width", sf.Swapchain.Extent.Width,
		"height", sf.Swapchain.Extent.Height,
		"images", sf.Swapchain.ImageCount,
		"depth_format", depthFormat,
		"present_mode", presentMode,
	)

	return &sf
}

func (sf *SwapchainFactory) Close() {
	sf.Swapchain.Close()
	vulkan.DestroyRenderPass(sf.device.LogicalDevice, sf.RenderPass, nil)
}

// UpdateSwapchain rebuilds the swapchain and everything sized by it. The
// caller must have waited for the device to go idle.
func (sf *SwapchainFactory) UpdateSwapchain(extent gpu.Extent) {
	oldSwapchain := sf.Swapchain
	sf.Swapchain = sf.newSwapchain(extent)
	oldSwapchain.Close()
	logging.Logger().Info("swapchain recreated",
		"width", sf.Swapchain.Extent.Width,
		"height", sf.Swapchain.Extent.Height,
		"images", sf.Swapchain.ImageCount,
	)
}

type attachment struct {
	image  vulkan.Image
	memory vulkan.DeviceMemory
	view   vulkan.ImageView
}

// targets are the per-image attachments besides the swapchain image.
type targets struct {
	depth    attachment
	position attachment
	normal   attachment
	albedo   attachment
}

type Swapchain struct {
	device         *device.Device
	views          []vulkan.ImageView
	swapchain      vulkan.Swapchain
	targets        []targets
	inputs         []*descriptors.DescriptorSet
	inputsManager  *descriptors.SetsManager
	imagesInFlight []*device.Fence

	Extent       gpu.Extent
	FrameBuffers []vulkan.Framebuffer

	ImageCount int
}

func chooseSwapSurfaceFormat(formats []vulkan.SurfaceFormat) vulkan.SurfaceFormat {
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vulkan.FormatB8g8r8a8Srgb && formats[i].ColorSpace == vulkan.ColorSpaceSrgbNonlinear {
			return formats[i]
		}
	}

	return formats[0]
}

func chooseSwapPresentMode(modes []vulkan.PresentMode) vulkan.PresentMode {
	for _, mode := range modes {
		if mode == vulkan.PresentModeMailbox {
			return mode
		}
	}

	return vulkan.PresentModeFifo
}

const MaxUint32 = ^uint32(0)

func chooseSwapExtent(windowExtent gpu.Extent, caps vulkan.SurfaceCapabilities) gpu.Extent {
	if caps.CurrentExtent.Width != MaxUint32 {
		return gpu.Extent{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height}
	}

	windowExtent.Width = max(caps.MinImageExtent.Width, min(caps.MaxImageExtent.Width, windowExtent.Width))
	windowExtent.Height = max(caps.MinImageExtent.Height, min(caps.MaxImageExtent.Height, windowExtent.Height))

	return windowExtent
}

func extent2D(e gpu.Extent) vulkan.Extent2D {
	return vulkan.Extent2D{Width: e.Width, Height: e.Height}
}

func (swapchain *Swapchain) createSwapchain(
	device *device.Device,
	sp device.SwapchainProperties,
	surfaceFormat vulkan.SurfaceFormat,
	extent gpu.Extent,
	presentMode vulkan.PresentMode,
	oldSwapchain vulkan.Swapchain,
) []vulkan.Image {
	imageCount := sp.Caps.MinImageCount + 1
	if sp.Caps.MaxImageCount > 0 && imageCount > sp.Caps.MaxImageCount {
		imageCount = sp.Caps.MaxImageCount
	}

	var newSwapchain vulkan.Swapchain
	if err := vulkan.Error(vulkan.CreateSwapchain(device.LogicalDevice, &vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          device.Surface,
		OldSwapchain:     oldSwapchain,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent2D(extent),
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		ImageSharingMode: vulkan.SharingModeExclusive,
		PreTransform:     sp.Caps.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vulkan.True,
	}, nil, &newSwapchain)); err != nil {
		panic("failed creating swapchain: " + err.Error())
	}
	swapchain.swapchain = newSwapchain

	var imagesCount uint32
	if err := vulkan.Error(vulkan.GetSwapchainImages(device.LogicalDevice, swapchain.swapchain, &imagesCount, nil)); err != nil {
		panic("failed to get images count: " + err.Error())
	}
	swapchain.ImageCount = int(imagesCount)

	images := make([]vulkan.Image, imagesCount)
	if err := vulkan.Error(vulkan.GetSwapchainImages(device.LogicalDevice, swapchain.swapchain, &imagesCount, images)); err != nil {
		panic("failed to get swapchain images: " + err.Error())
	}

	return images
}

func createImageView(device *device.Device, image vulkan.Image, format vulkan.Format, aspect vulkan.ImageAspectFlagBits) vulkan.ImageView {
	var view vulkan.ImageView
	if err := vulkan.Error(vulkan.CreateImageView(device.LogicalDevice, &vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   format,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     vulkan.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}, nil, &view)); err != nil {
		panic(fmt.Sprintf("failed to create image view (format %d): %s", format, err))
	}
	return view
}

func createImageViews(device *device.Device, images []vulkan.Image, format vulkan.Format) []vulkan.ImageView {
	views := make([]vulkan.ImageView, len(images))
	for i, image := range images {
		views[i] = createImageView(device, image, format, vulkan.ImageAspectColorBit)
	}

	return views
}

func findDepthFormat(dev *device.Device) vulkan.Format {
	return dev.FindSupportedFormat(
		device.StencilFormats,
		vulkan.ImageTilingOptimal,
		vulkan.FormatFeatureFlags(vulkan.FormatFeatureDepthStencilAttachmentBit),
	)
}

// createRenderPass builds depth -> gbuffer -> lighting. The lighting
// subpass reads the G-buffer as input attachments and shares the
// depth-stencil attachment with the forward and mirror draws.
func createRenderPass(device *device.Device, surfaceFormat vulkan.Format, depthFormat vulkan.Format) vulkan.RenderPass {
	gbuffer := func(format vulkan.Format) vulkan.AttachmentDescription {
		return vulkan.AttachmentDescription{
			Format:         format,
			Samples:        vulkan.SampleCount1Bit,
			LoadOp:         vulkan.AttachmentLoadOpClear,
			StoreOp:        vulkan.AttachmentStoreOpDontCare,
			StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
			StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
			InitialLayout:  vulkan.ImageLayoutUndefined,
			FinalLayout:    vulkan.ImageLayoutShaderReadOnlyOptimal,
		}
	}
	depthRef := &vulkan.AttachmentReference{
		Attachment: AttachmentDepth,
		Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}
	gbufferRefs := func(layout vulkan.ImageLayout) []vulkan.AttachmentReference {
		return []vulkan.AttachmentReference{
			{Attachment: AttachmentPosition, Layout: layout},
			{Attachment: AttachmentNormal, Layout: layout},
			{Attachment: AttachmentAlbedo, Layout: layout},
		}
	}

	var renderPass vulkan.RenderPass
	if err := vulkan.Error(vulkan.CreateRenderPass(device.LogicalDevice, &vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: AttachmentCount,
		PAttachments: []vulkan.AttachmentDescription{
			{
				Format:         surfaceFormat,
				Samples:        vulkan.SampleCount1Bit,
				LoadOp:         vulkan.AttachmentLoadOpClear,
				StoreOp:        vulkan.AttachmentStoreOpStore,
				StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
				StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
				InitialLayout:  vulkan.ImageLayoutUndefined,
				FinalLayout:    vulkan.ImageLayoutPresentSrc,
			},
			{
				Format:         depthFormat,
				Samples:        vulkan.SampleCount1Bit,
				LoadOp:         vulkan.AttachmentLoadOpClear,
				StoreOp:        vulkan.AttachmentStoreOpDontCare,
				StencilLoadOp:  vulkan.AttachmentLoadOpClear,
				StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
				InitialLayout:  vulkan.ImageLayoutUndefined,
				FinalLayout:    vulkan.ImageLayoutDepthStencilAttachmentOptimal,
			},
			gbuffer(PositionFormat),
			gbuffer(NormalFormat),
			gbuffer(AlbedoFormat),
		},
		SubpassCount: 3,
		PSubpasses: []vulkan.SubpassDescription{
			{
				PipelineBindPoint:       vulkan.PipelineBindPointGraphics,
				PDepthStencilAttachment: depthRef,
			},
			{
				PipelineBindPoint:       vulkan.PipelineBindPointGraphics,
				ColorAttachmentCount:    GBufferAttachments,
				PColorAttachments:       gbufferRefs(vulkan.ImageLayoutColorAttachmentOptimal),
				PDepthStencilAttachment: depthRef,
			},
			{
				PipelineBindPoint:    vulkan.PipelineBindPointGraphics,
				ColorAttachmentCount: 1,
				PColorAttachments: []vulkan.AttachmentReference{
					{
						Attachment: AttachmentColor,
						Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
					},
				},
				InputAttachmentCount:    GBufferAttachments,
				PInputAttachments:       gbufferRefs(vulkan.ImageLayoutShaderReadOnlyOptimal),
				PDepthStencilAttachment: depthRef,
			},
		},
		DependencyCount: 3,
		PDependencies: []vulkan.SubpassDependency{
			{
				SrcSubpass:    vulkan.SubpassExternal,
				SrcAccessMask: 0,
				SrcStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
				DstSubpass:    0,
				DstStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageEarlyFragmentTestsBit),
				DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
			},
			{
				SrcSubpass:      0,
				SrcStageMask:    vulkan.PipelineStageFlags(vulkan.PipelineStageLateFragmentTestsBit),
				SrcAccessMask:   vulkan.AccessFlags(vulkan.AccessDepthStencilAttachmentWriteBit),
				DstSubpass:      1,
				DstStageMask:    vulkan.PipelineStageFlags(vulkan.PipelineStageEarlyFragmentTestsBit),
				DstAccessMask:   vulkan.AccessFlags(vulkan.AccessDepthStencilAttachmentReadBit),
				DependencyFlags: vulkan.DependencyFlags(vulkan.DependencyByRegionBit),
			},
			{
				SrcSubpass:      1,
				SrcStageMask:    vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit | vulkan.PipelineStageLateFragmentTestsBit),
				SrcAccessMask:   vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit | vulkan.AccessDepthStencilAttachmentWriteBit),
				DstSubpass:      2,
				DstStageMask:    vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit | vulkan.PipelineStageEarlyFragmentTestsBit),
				DstAccessMask:   vulkan.AccessFlags(vulkan.AccessInputAttachmentReadBit | vulkan.AccessDepthStencilAttachmentReadBit | vulkan.AccessDepthStencilAttachmentWriteBit),
				DependencyFlags: vulkan.DependencyFlags(vulkan.DependencyByRegionBit),
			},
		},
	}, nil, &renderPass)); err != nil {
		panic("failed to create render pass: " + err.Error())
	}

	return renderPass
}

func createAttachment(
	device *device.Device,
	format vulkan.Format,
	usage vulkan.ImageUsageFlagBits,
	aspect vulkan.ImageAspectFlagBits,
	extent gpu.Extent,
) attachment {
	var a attachment
	a.image, a.memory = device.CreateImageWithInfo(vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Extent: vulkan.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        vulkan.ImageTilingOptimal,
		InitialLayout: vulkan.ImageLayoutUndefined,
		Usage:         vulkan.ImageUsageFlags(usage),
		Samples:       vulkan.SampleCount1Bit,
		SharingMode:   vulkan.SharingModeExclusive,
	}, vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit))
	a.view = createImageView(device, a.image, format, aspect)
	return a
}

func (a attachment) destroy(device *device.Device) {
	vulkan.DestroyImageView(device.LogicalDevice, a.view, nil)
	vulkan.DestroyImage(device.LogicalDevice, a.image, nil)
	vulkan.FreeMemory(device.LogicalDevice, a.memory, nil)
}

func createTargets(
	device *device.Device,
	depthFormat vulkan.Format,
	extent gpu.Extent,
	count int,
) []targets {
	gbufferUsage := vulkan.ImageUsageColorAttachmentBit | vulkan.ImageUsageInputAttachmentBit | vulkan.ImageUsageTransientAttachmentBit

	t := make([]targets, count)
	for i := range t {
		t[i].depth = createAttachment(device, depthFormat,
			vulkan.ImageUsageDepthStencilAttachmentBit,
			vulkan.ImageAspectDepthBit|vulkan.ImageAspectStencilBit,
			extent)
		t[i].position = createAttachment(device, PositionFormat, gbufferUsage, vulkan.ImageAspectColorBit, extent)
		t[i].normal = createAttachment(device, NormalFormat, gbufferUsage, vulkan.ImageAspectColorBit, extent)
		t[i].albedo = createAttachment(device, AlbedoFormat, gbufferUsage, vulkan.ImageAspectColorBit, extent)
	}

	return t
}

// InputDescriptors is the lighting subpass's second binding set: the
// G-buffer as input attachments. Nil views give a layout template.
func InputDescriptors(position, normal, albedo vulkan.ImageView) []descriptors.Descriptor {
	return []descriptors.Descriptor{
		descriptors.Input(position),
		descriptors.Input(normal),
		descriptors.Input(albedo),
	}
}

func createInputSets(device *device.Device, t []targets) ([]*descriptors.DescriptorSet, *descriptors.SetsManager) {
	sets := make([]*descriptors.DescriptorSet, len(t))
	for i := range t {
		sets[i] = &descriptors.DescriptorSet{
			Descriptors: InputDescriptors(t[i].position.view, t[i].normal.view, t[i].albedo.view),
		}
	}
	return sets, descriptors.NewSets(device, sets)
}

func createFrameBuffers(
	device *device.Device,
	imageViews []vulkan.ImageView,
	t []targets,
	extent gpu.Extent,
	renderPass vulkan.RenderPass,
) []vulkan.Framebuffer {
	framebuffers := make([]vulkan.Framebuffer, len(imageViews))
	for i := range framebuffers {
		if err := vulkan.Error(vulkan.CreateFramebuffer(device.LogicalDevice, &vulkan.FramebufferCreateInfo{
			SType:           vulkan.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: AttachmentCount,
			PAttachments: []vulkan.ImageView{
				imageViews[i],
				t[i].depth.view,
				t[i].position.view,
				t[i].normal.view,
				t[i].albedo.view,
			},
			Width:  extent.Width,
			Height: extent.Height,
			Layers: 1,
		}, nil, &framebuffers[i])); err != nil {
			panic("failed to create framebuffer: " + err.Error())
		}
	}

	return framebuffers
}

func (sf *SwapchainFactory) newSwapchain(windowExtent gpu.Extent) *Swapchain {
	swapchainProps := sf.device.SwapchainSupport()
	extent := chooseSwapExtent(windowExtent, swapchainProps.Caps)
	swapchain := &Swapchain{
		device: sf.device,
		Extent: extent,
	}

	var oldSwapchain vulkan.Swapchain
	if sf.Swapchain != nil {
		oldSwapchain = sf.Swapchain.swapchain
	}

	images := swapchain.createSwapchain(sf.device, swapchainProps, sf.surfaceFormat, extent, sf.presentMode, oldSwapchain)
	views := createImageViews(sf.device, images, sf.surfaceFormat.Format)
	t := createTargets(sf.device, sf.depthFormat, extent, len(images))
	inputs, inputsManager := createInputSets(sf.device, t)
	frameBuffers := createFrameBuffers(sf.device, views, t, extent, sf.RenderPass)

	swapchain.views = views
	swapchain.targets = t
	swapchain.inputs = inputs
	swapchain.inputsManager = inputsManager
	swapchain.FrameBuffers = frameBuffers
	swapchain.imagesInFlight = make([]*device.Fence, len(images))

	return swapchain
}

// Acquire takes the next presentable image; signal is the semaphore fired
// once it is usable.
func (sf *SwapchainFactory) Acquire(signal gpu.Handle) (int, error) {
	semaphore, ok := signal.(vulkan.Semaphore)
	if !ok {
		return 0, fmt.Errorf("acquire: signal is %T, not a semaphore", signal)
	}

	var imageIndex uint32
	result := vulkan.AcquireNextImage(sf.device.LogicalDevice, sf.Swapchain.swapchain, vulkan.MaxUint64, semaphore, vulkan.Fence(vulkan.NullHandle), &imageIndex)
	if result == vulkan.ErrorOutOfDate {
		return 0, ErrOutOfDate
	}
	if err := vulkan.Error(result); err != nil && result != vulkan.Suboptimal {
		panic("failed to get new image: " + err.Error())
	}

	sf.lastImage = int(imageIndex)
	return int(imageIndex), nil
}

type commandBuffer interface {
	CommandBuffer() vulkan.CommandBuffer
}

// Submit queues rec on the graphics queue. An image still owned by an
// earlier submission is waited for first.
func (sf *SwapchainFactory) Submit(rec gpu.Recorder, wait, signal gpu.Handle, fence gpu.Fence) error {
	cb, ok := rec.(commandBuffer)
	if !ok {
		return fmt.Errorf("submit: recorder %T has no command buffer", rec)
	}
	waitSemaphore, ok := wait.(vulkan.Semaphore)
	if !ok {
		return fmt.Errorf("submit: wait is %T, not a semaphore", wait)
	}
	signalSemaphore, ok := signal.(vulkan.Semaphore)
	if !ok {
		return fmt.Errorf("submit: signal is %T, not a semaphore", signal)
	}
	inFlight, ok := fence.(*device.Fence)
	if !ok {
		return fmt.Errorf("submit: fence is %T, not a device fence", fence)
	}

	s := sf.Swapchain
	if previous := s.imagesInFlight[sf.lastImage]; previous != nil && previous != inFlight {
		if err := previous.Wait(); err != nil {
			return err
		}
	}
	s.imagesInFlight[sf.lastImage] = inFlight

	if err := vulkan.Error(vulkan.QueueSubmit(sf.device.Queue, 1, []vulkan.SubmitInfo{
		{
			SType:              vulkan.StructureTypeSubmitInfo,
			WaitSemaphoreCount: 1,
			PWaitSemaphores:    []vulkan.Semaphore{waitSemaphore},
			PWaitDstStageMask: []vulkan.PipelineStageFlags{
				vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
			},
			CommandBufferCount:   1,
			PCommandBuffers:      []vulkan.CommandBuffer{cb.CommandBuffer()},
			SignalSemaphoreCount: 1,
			PSignalSemaphores:    []vulkan.Semaphore{signalSemaphore},
		},
	}, inFlight.Fence)); err != nil {
		return fmt.Errorf("queue submit: %w", err)
	}
	return nil
}

// Present queues image for display once wait fires. Out of date and
// suboptimal surfaces both report ErrOutOfDate.
func (sf *SwapchainFactory) Present(image int, wait gpu.Handle) error {
	waitSemaphore, ok := wait.(vulkan.Semaphore)
	if !ok {
		return fmt.Errorf("present: wait is %T, not a semaphore", wait)
	}

	result := vulkan.QueuePresent(sf.device.Queue, &vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{waitSemaphore},
		SwapchainCount:     1,
		PSwapchains: []vulkan.Swapchain{
			sf.Swapchain.swapchain,
		},
		PImageIndices: []uint32{uint32(image)},
	})

	if result == vulkan.ErrorOutOfDate || result == vulkan.Suboptimal {
		return ErrOutOfDate
	}

	if err := vulkan.Error(result); err != nil {
		panic("failed to present swapchain image: " + err.Error())
	}

	return nil
}

func (sf *SwapchainFactory) Extent() gpu.Extent {
	return sf.Swapchain.Extent
}

func (sf *SwapchainFactory) InputSet(image int) gpu.Handle {
	return sf.Swapchain.inputs[image].Set
}

// Pass and Framebuffer expose the render target to the recorder.
func (sf *SwapchainFactory) Pass() vulkan.RenderPass {
	return sf.RenderPass
}

func (sf *SwapchainFactory) Framebuffer(image int) vulkan.Framebuffer {
	return sf.Swapchain.FrameBuffers[image]
}

func (s *Swapchain) Close() {
	for _, framebuffer := range s.FrameBuffers {
		vulkan.DestroyFramebuffer(s.device.LogicalDevice, framebuffer, nil)
	}
	s.inputsManager.Close()
	for _, t := range s.targets {
		t.depth.destroy(s.device)
		t.position.destroy(s.device)
		t.normal.destroy(s.device)
		t.albedo.destroy(s.device)
	}
	for _, view := range s.views {
		vulkan.DestroyImageView(s.device.LogicalDevice, view, nil)
	}
	vulkan.DestroySwapchain(s.device.LogicalDevice, s.swapchain, nil)
}
