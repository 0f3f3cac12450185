package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/object"
	"github.com/WowVeryLogin/vulkan_mirrors/src/object/model"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/texture"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/particles"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/scene"
)

// Shader file names, relative to the configured shader directory.
const (
	deferredVert    = "deferred.vert.spv"
	depthFrag       = "depth.frag.spv"
	gbufferFrag     = "gbuffer.frag.spv"
	lightingVert    = "lighting.vert.spv"
	lightingFrag    = "lighting.frag.spv"
	standardVert    = "standard.vert.spv"
	standardFrag    = "standard.frag.spv"
	litVert         = "lit.vert.spv"
	litFrag         = "lit.frag.spv"
	snowVert        = "snow.vert.spv"
	snowFrag        = "snow.frag.spv"
	snowComp        = "snow.comp.spv"
	mirrorVert      = "mirror.vert.spv"
	mirrorMarkFrag  = "mirror_mark.frag.spv"
	mirrorBlendFrag = "mirror_blend.frag.spv"
	lightVert       = "point_light.vert.spv"
	lightFrag       = "point_light.frag.spv"

	litModel = "avocado.glb"
)

var (
	mirrorPoint  = [3]float64{0, 0, 5}
	mirrorNormal = [3]float64{0, 0, -1}
)

func placed(transforms ...object.Transform) *object.Placement {
	return object.New().WithInitialTranforms(transforms)
}

// add registers obj with its pipelines acquired from the cache. The app
// owns those references.
func (a *App) add(obj *scene.Object, placement *object.Placement, keys ...pipelines.Key) (int, error) {
	for _, k := range keys {
		d, err := a.cache.Acquire(k)
		if err != nil {
			return -1, err
		}
		a.owned = append(a.owned, d)
		obj.Pipelines = append(obj.Pipelines, d)
	}
	if placement != nil {
		obj.Placement = placement
		obj.Model = placement.ModelMatrix()
	}
	return a.scene.Add(obj)
}

func (a *App) mesh(m *model.Mesh) *model.Model {
	md := model.NewFromMesh(a.device, m, nil)
	a.models = append(a.models, md)
	return md
}

func textured(m *model.Model) scene.Texture {
	if m.Texture == nil {
		return scene.Texture{}
	}
	return scene.Texture{View: m.Texture.ImageView, Sampler: m.Texture.Sampler}
}

// addLightMarker draws a small unlit quad in the light's colour at its
// position.
func (a *App) addLightMarker(l scene.Light, index int) error {
	marker := a.mesh(model.Quad(l.Color))
	_, err := a.add(&scene.Object{
		Name:        fmt.Sprintf("light/%d", index),
		Kind:        scene.Standard,
		Geometry:    marker,
		Reflectable: true,
	}, placed(
		object.NewScale(0.15, 0.15, 0.15),
		object.NewTransition(float64(l.Position[0]), float64(l.Position[1]), float64(l.Position[2])),
	),
		pipelines.Forward(lightVert, lightFrag, pipelines.LayoutNormal),
	)
	return err
}

// buildScene fills the demo scene: a deferred ground, a spinning lit model,
// a standard backdrop, falling snow, one mirror and two lights.
func (a *App) buildScene(sim *particles.Simulation) error {
	cfg := a.cfg

	ground := a.mesh(model.Plane([3]float32{0.35, 0.4, 0.35}))
	if _, err := a.add(&scene.Object{
		Name:     "ground",
		Kind:     scene.Deferred,
		Geometry: ground,
		Texture:  textured(ground),
	}, placed(
		object.NewScale(12, 1, 12),
		object.NewTransition(0, float64(cfg.Particles.Floor), 2),
	),
		pipelines.Depth(deferredVert, depthFrag),
		pipelines.GBuffer(deferredVert, gbufferFrag),
	); err != nil {
		return err
	}

	scale := 20.0
	lit, err := model.NewWithGLTF(a.device, filepath.Join(cfg.Renderer.AssetDir, litModel))
	if err != nil {
		logging.Logger().Warn("lit model unavailable, using a quad", "error", err)
		lit = model.NewFromMesh(a.device, model.Quad([3]float32{0.8, 0.6, 0.2}), texture.Solid(white))
		scale = 1
	}
	a.models = append(a.models, lit)
	if _, err := a.add(&scene.Object{
		Name:        "lit",
		Kind:        scene.Lit,
		Geometry:    lit,
		Texture:     textured(lit),
		Reflectable: true,
	}, placed(
		object.NewScale(scale, scale, scale),
		object.NewTransition(0, -1, 2),
	).WithOnFrame(func(p *object.Placement, since time.Duration) {
		p.Rotate(since.Seconds()*15, [3]float64{0, 1, 0})
	}),
		pipelines.Forward(litVert, litFrag, pipelines.LayoutLit),
	); err != nil {
		return err
	}

	backdrop := a.mesh(model.Quad([3]float32{0.3, 0.45, 0.7}))
	if _, err := a.add(&scene.Object{
		Name:        "backdrop",
		Kind:        scene.Standard,
		Geometry:    backdrop,
		Texture:     textured(backdrop),
		Reflectable: true,
	}, placed(
		object.NewScale(2, 2, 1),
		object.NewTransition(-2.5, 0, 3),
	),
		pipelines.Forward(standardVert, standardFrag, pipelines.LayoutNormal),
	); err != nil {
		return err
	}

	if sim != nil {
		flake := a.mesh(model.Quad([3]float32{1, 1, 1}))
		if _, err := a.add(&scene.Object{
			Name:     "snow",
			Kind:     scene.Snow,
			Geometry: flake,
			Instances: scene.Instances{
				Buffer: sim.Current(),
				Count:  sim.Count(),
			},
		}, placed(object.NewScale(0.05, 0.05, 0.05)),
			pipelines.Instanced(snowVert, snowFrag, pipelines.LayoutSnow),
		); err != nil {
			return err
		}
	}

	pane := a.mesh(model.Quad([3]float32{0.8, 0.85, 0.9}))
	mirrorAt := func() *object.Placement {
		return placed(
			object.NewScale(5, 3, 1),
			object.NewTransition(mirrorPoint[0], mirrorPoint[1], mirrorPoint[2]),
		)
	}
	mark, err := a.add(&scene.Object{
		Name:     "mirror/mark",
		Kind:     scene.MirrorMark,
		Geometry: pane,
		Texture:  textured(pane),
	}, mirrorAt())
	if err != nil {
		return err
	}
	blend, err := a.add(&scene.Object{
		Name:     "mirror/pane",
		Kind:     scene.MirrorBlend,
		Geometry: pane,
		Texture:  textured(pane),
	}, mirrorAt())
	if err != nil {
		return err
	}
	if _, err := a.mirrors.Register(a.scene, mirrorPoint, mirrorNormal, mark, blend,
		pipelines.MirrorMark(mirrorVert, mirrorMarkFrag),
		pipelines.MirrorBlend(mirrorVert, mirrorBlendFrag),
	); err != nil {
		return err
	}

	for _, l := range []scene.Light{
		{Position: [3]float32{2, 2, 0}, Color: [3]float32{1, 0.9, 0.8}, Intensity: 4},
		{Position: [3]float32{-3, 1, 4}, Color: [3]float32{0.4, 0.5, 1}, Intensity: 2},
	} {
		if err := a.scene.AddLight(l); err != nil {
			return err
		}
		if err := a.addLightMarker(l, len(a.scene.Lights())-1); err != nil {
			return err
		}
	}

	a.scene.Finalize()
	return a.mirrors.Build(a.scene)
}
