package texture

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"
	"github.com/goki/vulkan"
	"golang.org/x/image/draw"
)

// MaxSize bounds either texture dimension; larger images are downscaled.
const MaxSize = 4096

type Texture struct {
	device    *device.Device
	image     vulkan.Image
	memory    vulkan.DeviceMemory
	ImageView vulkan.ImageView
	Sampler   vulkan.Sampler
}

type TextureConfig struct {
	Width  int
	Height int
	Data   []uint8
}

func TextureConfigFromPNG(reader io.Reader) (*TextureConfig, error) {
	decodedImage, err := png.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return TextureConfigFromImage(decodedImage), nil
}

// Decode reads any registered image format (PNG, JPEG).
func Decode(reader io.Reader) (*TextureConfig, error) {
	decodedImage, format, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format == "" {
		return nil, fmt.Errorf("decode image: unknown format")
	}
	return TextureConfigFromImage(decodedImage), nil
}

// TextureConfigFromImage converts any image to tightly packed RGBA8.
func TextureConfigFromImage(src image.Image) *TextureConfig {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > MaxSize || height > MaxSize {
		scale := float64(MaxSize) / float64(max(width, height))
		width = max(1, int(float64(width)*scale))
		height = max(1, int(float64(height)*scale))
		rgbaImg := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(rgbaImg, rgbaImg.Bounds(), src, bounds, draw.Src, nil)
		return &TextureConfig{Width: width, Height: height, Data: rgbaImg.Pix}
	}

	rgbaImg := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(rgbaImg, rgbaImg.Bounds(), src, bounds.Min, draw.Src)

	return &TextureConfig{
		Width:  width,
		Height: height,
		Data:   rgbaImg.Pix,
	}
}

// Solid is a 1x1 texture of a single colour, for untextured geometry.
func Solid(c color.RGBA) *TextureConfig {
	return &TextureConfig{
		Width:  1,
		Height: 1,
		Data:   []uint8{c.R, c.G, c.B, c.A},
	}
}

func New(dev *device.Device, textureData *TextureConfig) *Texture {
	image, memory := dev.CreateImageWithInfo(vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Format:    vulkan.FormatR8g8b8a8Srgb,
		Extent: vulkan.Extent3D{
			Width:  uint32(textureData.Width),
			Height: uint32(textureData.Height),
			Depth:  1,
		},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vulkan.SampleCount1Bit,
		Tiling:      vulkan.ImageTilingOptimal,
		Usage:       vulkan.ImageUsageFlags(vulkan.ImageUsageSampledBit | vulkan.ImageUsageTransferDstBit),
		SharingMode: vulkan.SharingModeExclusive,
	}, vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit))

	device.CopyWithStagingBufferGraphic(dev, textureData.Data, func(cb vulkan.CommandBuffer, staging vulkan.Buffer) {
		barrier := vulkan.ImageMemoryBarrier{
			SType:               vulkan.StructureTypeImageMemoryBarrier,
			OldLayout:           vulkan.ImageLayoutUndefined,
			NewLayout:           vulkan.ImageLayoutTransferDstOptimal,
			SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
			Image:               image,
			SubresourceRange: vulkan.ImageSubresourceRange{
				AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: 0,
			DstAccessMask: vulkan.AccessFlags(vulkan.AccessTransferWriteBit),
		}
		vulkan.CmdPipelineBarrier(
			cb,
			vulkan.PipelineStageFlags(vulkan.PipelineStageTopOfPipeBit), // srcStage
			vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),  // dstStage
			0,
			0, nil,
			0, nil,
			1, []vulkan.ImageMemoryBarrier{barrier},
		)

		vulkan.CmdCopyBufferToImage(cb, staging, image, vulkan.ImageLayoutTransferDstOptimal, 1, []vulkan.BufferImageCopy{
			{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,
				ImageSubresource: vulkan.ImageSubresourceLayers{
					AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
					LayerCount: 1,
				},
				ImageExtent: vulkan.Extent3D{
					Width:  uint32(textureData.Width),
					Height: uint32(textureData.Height),
					Depth:  1,
				},
			},
		})

		barrier.OldLayout = vulkan.ImageLayoutTransferDstOptimal
		barrier.NewLayout = vulkan.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)

		vulkan.CmdPipelineBarrier(
			cb,
			vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit),
			vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit),
			0,
			0, nil,
			0, nil,
			1, []vulkan.ImageMemoryBarrier{barrier},
		)
	})

	var view vulkan.ImageView
	if err := vulkan.Error(vulkan.CreateImageView(dev.LogicalDevice, &vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   vulkan.FormatR8g8b8a8Srgb,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}, nil, &view)); err != nil {
		panic(fmt.Sprintf("failed to create texture image view: %s", err))
	}

	var sampler vulkan.Sampler
	if err := vulkan.Error(vulkan.CreateSampler(dev.LogicalDevice, &vulkan.SamplerCreateInfo{
		SType:       vulkan.StructureTypeSamplerCreateInfo,
		MipmapMode:  vulkan.SamplerMipmapModeLinear,
		CompareOp:   vulkan.CompareOpAlways,
		BorderColor: vulkan.BorderColorFloatOpaqueBlack,
	}, nil, &sampler)); err != nil {
		panic("failed to create texture sampler: " + err.Error())
	}

	return &Texture{
		device:    dev,
		image:     image,
		ImageView: view,
		Sampler:   sampler,
		memory:    memory,
	}
}

func (t *Texture) Close() {
	vulkan.DestroySampler(t.device.LogicalDevice, t.Sampler, nil)
	vulkan.DestroyImageView(t.device.LogicalDevice, t.ImageView, nil)
	vulkan.DestroyImage(t.device.LogicalDevice, t.image, nil)
	vulkan.FreeMemory(t.device.LogicalDevice, t.memory, nil)
}
