package model

import (
	"unsafe"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/buffer"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/texture"
	"github.com/goki/vulkan"
)

// Model is uploaded geometry plus an optional texture. It satisfies
// scene.Geometry.
type Model struct {
	vertexCount  uint32
	vertexBuffer *buffer.Buffer[Vertex]

	numIndexes  uint32
	indexBuffer *buffer.Buffer[uint32]
	Texture     *texture.Texture
}

type Position struct {
	X float32
	Y float32
	Z float32
}

type Vertex struct {
	Pos    Position
	RGB    [3]float32
	Normal [3]float32
	UV     [2]float32
}

var VertexBindingDescription = []vulkan.VertexInputBindingDescription{
	{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vulkan.VertexInputRateVertex,
	},
}

var VertexAttributeDescription = []vulkan.VertexInputAttributeDescription{
	{
		Binding:  0,
		Location: 0,
		Format:   vulkan.FormatR32g32b32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
	},
	{
		Binding:  0,
		Location: 1,
		Format:   vulkan.FormatR32g32b32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.RGB)),
	},
	{
		Binding:  0,
		Location: 2,
		Format:   vulkan.FormatR32g32b32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Normal)),
	},
	{
		Binding:  0,
		Location: 3,
		Format:   vulkan.FormatR32g32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.UV)),
	},
}

// NewWithGLTF loads and uploads a glTF model, textured with its first
// image when it has one.
func NewWithGLTF(device *device.Device, gltfFile string) (*Model, error) {
	mesh, err := LoadGLTF(gltfFile)
	if err != nil {
		return nil, err
	}
	var tex *texture.TextureConfig
	if len(mesh.Textures) > 0 {
		tex = mesh.Textures[0]
	}
	return New(device, mesh.Vertices, mesh.Indexes, tex), nil
}

// NewFromMesh uploads a mesh textured with its first image, or with fallback.
func NewFromMesh(device *device.Device, mesh *Mesh, fallback *texture.TextureConfig) *Model {
	tex := fallback
	if len(mesh.Textures) > 0 {
		tex = mesh.Textures[0]
	}
	return New(device, mesh.Vertices, mesh.Indexes, tex)
}

func New(dev *device.Device, vertices []Vertex, indexes []uint32, textureData *texture.TextureConfig) *Model {
	m := &Model{
		vertexCount:  uint32(len(vertices)),
		vertexBuffer: buffer.NewDeviceLocal(dev, vertices, vulkan.BufferUsageVertexBufferBit),
	}
	if len(indexes) > 0 {
		m.numIndexes = uint32(len(indexes))
		m.indexBuffer = buffer.NewDeviceLocal(dev, indexes, vulkan.BufferUsageIndexBufferBit)
	}
	if textureData != nil {
		m.Texture = texture.New(dev, textureData)
	}
	return m
}

func (m *Model) VertexBuffer() gpu.Handle {
	return m.vertexBuffer.Buffer
}

func (m *Model) VertexCount() uint32 {
	return m.vertexCount
}

// IndexBuffer is nil for non-indexed models.
func (m *Model) IndexBuffer() gpu.Handle {
	if m.indexBuffer == nil {
		return nil
	}
	return m.indexBuffer.Buffer
}

func (m *Model) IndexCount() uint32 {
	return m.numIndexes
}

func (m *Model) Close() {
	m.vertexBuffer.Close()
	if m.indexBuffer != nil {
		m.indexBuffer.Close()
	}
	if m.Texture != nil {
		m.Texture.Close()
	}
}
