package frame

import (
	"github.com/WowVeryLogin/vulkan_mirrors/src/config"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/scene"
)

// CameraUniform is the per-frame camera block, std140.
type CameraUniform struct {
	View       [16]float32
	Projection [16]float32
	Position   [4]float32
}

type LightUniform struct {
	Position [4]float32
	// Color.w carries the intensity.
	Color [4]float32
}

// LightsUniform is the per-frame light block, std140.
type LightsUniform struct {
	Lights [config.MaxLightsLimit]LightUniform
	Count  uint32
	_      [3]uint32
}

// Mapped is a persistently mapped, host-coherent buffer.
type Mapped[T any] interface {
	WriteBuffer(data []T)
}

// Sets holds one frame's binding sets. The per-category slices are indexed
// by the category-local slot the scene assigns each object.
type Sets struct {
	Normal   []gpu.Handle
	Snow     []gpu.Handle
	Lit      []gpu.Handle
	Lighting gpu.Handle
}

func (s *Sets) For(c scene.Category) []gpu.Handle {
	switch c {
	case scene.CategoryNormal:
		return s.Normal
	case scene.CategorySnow:
		return s.Snow
	case scene.CategoryLit:
		return s.Lit
	}
	return nil
}

// Slot is the private resource set of one frame in flight. Fence guards all
// of it: nothing here is touched until the slot's previous submission has
// completed.
type Slot struct {
	Fence          gpu.Fence
	ImageAcquired  gpu.Handle
	RenderFinished gpu.Handle
	Recorder       gpu.Recorder
	Sets           Sets
	Camera         Mapped[CameraUniform]
	Lights         Mapped[LightsUniform]
}

func lightsUniform(lights []scene.Light) LightsUniform {
	var u LightsUniform
	n := min(len(lights), len(u.Lights))
	for i, l := range lights[:n] {
		u.Lights[i] = LightUniform{
			Position: [4]float32{l.Position[0], l.Position[1], l.Position[2], 1},
			Color:    [4]float32{l.Color[0], l.Color[1], l.Color[2], l.Intensity},
		}
	}
	u.Count = uint32(n)
	return u
}
