package mirror

import (
	"fmt"

	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/scene"
	"gonum.org/v1/gonum/mat"
)

// Definition is one registered mirror. It never moves.
type Definition struct {
	Point      [3]float64
	Normal     [3]float64
	Reflection *mat.Dense
	Mark       int
	Blend      int
}

// StencilReference is the stencil value mirror i marks and tests against.
// Zero is the cleared value, so mirror 0 uses 1.
func StencilReference(mirror int) uint32 {
	return uint32(mirror + 1)
}

// System owns mirror definitions and the pipelines drawing them.
type System struct {
	cache     *pipelines.Cache
	mirrors   []Definition
	owned     []*pipelines.Descriptor
	reflected []*pipelines.Descriptor
}

func New(cache *pipelines.Cache) *System {
	return &System{cache: cache}
}

func (m *System) Mirrors() []Definition {
	return m.mirrors
}

// Register adds a mirror drawn by the scene objects mark and blend. The
// mark and blend pipelines are acquired here and assigned to those objects.
func (m *System) Register(s *scene.Scene, point, normal [3]float64, mark, blend int, markKey, blendKey pipelines.Key) (int, error) {
	if markKey.Stencil != pipelines.StencilWrite || markKey.Blend != pipelines.BlendNoColor || markKey.DepthWrite {
		return -1, fmt.Errorf("%w: mirror mark must write stencil only", pipelines.ErrInvalidKey)
	}
	if blendKey.Stencil != pipelines.StencilDisabled || blendKey.Blend != pipelines.BlendAlpha || blendKey.DepthWrite {
		return -1, fmt.Errorf("%w: mirror pane must alpha blend without depth write", pipelines.ErrInvalidKey)
	}

	reflection, err := ReflectionMatrix(point, normal)
	if err != nil {
		return -1, err
	}

	if StencilReference(len(s.Mirrors())) > 0xff {
		return -1, fmt.Errorf("%w: stencil reference for mirror %d does not fit 8 bits", scene.ErrCapacityExceeded, len(s.Mirrors()))
	}

	markPipeline, err := m.cache.Acquire(markKey)
	if err != nil {
		return -1, err
	}
	blendPipeline, err := m.cache.Acquire(blendKey)
	if err != nil {
		m.cache.Release(markPipeline)
		return -1, err
	}
	index, err := s.AddMirrorPair(mark, blend)
	if err != nil {
		m.cache.Release(markPipeline)
		m.cache.Release(blendPipeline)
		return -1, err
	}
	m.owned = append(m.owned, markPipeline, blendPipeline)
	s.Object(mark).Pipelines = []*pipelines.Descriptor{markPipeline}
	s.Object(blend).Pipelines = []*pipelines.Descriptor{blendPipeline}

	m.mirrors = append(m.mirrors, Definition{
		Point:      point,
		Normal:     normal,
		Reflection: reflection,
		Mark:       mark,
		Blend:      blend,
	})
	logging.Logger().Info("mirror registered", "index", index, "point", point, "normal", normal)
	return index, nil
}

// Build derives one reflected copy per (mirror, reflectable object) pair.
// Copies from a previous Build are dropped first.
func (m *System) Build(s *scene.Scene) error {
	m.releaseReflected()
	s.ClearReflected()

	reflectable := s.Reflectable()
	for mi, def := range m.mirrors {
		for _, oi := range reflectable {
			original := s.Object(oi)
			forward := original.PipelineFor(pipelines.SubpassLighting)
			if forward == nil {
				return fmt.Errorf("%w: reflectable %q has no lighting subpass pipeline", scene.ErrInvalidObject, original.Name)
			}
			d, err := m.cache.Acquire(pipelines.MirrorReflect(forward.Key))
			if err != nil {
				return err
			}
			m.reflected = append(m.reflected, d)

			err = s.AddReflected(scene.Reflected{
				Object: scene.Object{
					Name:      original.Name + "/reflected",
					Kind:      scene.MirrorReflected,
					Geometry:  original.Geometry,
					Instances: original.Instances,
					Texture:   original.Texture,
					Pipelines: []*pipelines.Descriptor{d},
					Model:     Apply(def.Reflection, original.Model),
				},
				Original: oi,
				Mirror:   mi,
			})
			if err != nil {
				return err
			}
		}
	}
	logging.Logger().Debug("reflections built", "mirrors", len(m.mirrors), "copies", len(s.Reflected()))
	return nil
}

// Refresh recomputes reflected model matrices from the originals' current
// transforms.
func (m *System) Refresh(s *scene.Scene) {
	for mi, def := range m.mirrors {
		for _, r := range s.ReflectedFor(mi) {
			original := s.Object(r.Original)
			if original == nil {
				continue
			}
			r.Object.Model = Apply(def.Reflection, original.Model)
		}
	}
}

func (m *System) releaseReflected() {
	for _, d := range m.reflected {
		m.cache.Release(d)
	}
	m.reflected = nil
}

// Close releases every pipeline the system acquired.
func (m *System) Close() {
	m.releaseReflected()
	for _, d := range m.owned {
		m.cache.Release(d)
	}
	m.owned = nil
}
