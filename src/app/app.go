package app

import (
	"fmt"
	"image/color"
	"path/filepath"
	"time"

	"github.com/WowVeryLogin/vulkan_mirrors/src/camcontroller"
	"github.com/WowVeryLogin/vulkan_mirrors/src/camcontroller/camera"
	"github.com/WowVeryLogin/vulkan_mirrors/src/config"
	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/object/model"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/buffer"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/compute"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/descriptors"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/device"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/pipeline"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/renderpass"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/swapchain"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/texture"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/frame"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/mirror"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/particles"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/scene"
	"github.com/WowVeryLogin/vulkan_mirrors/src/window"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/goki/vulkan"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

const statsInterval = 600

type App struct {
	cfg    config.Config
	window *window.Window
	device *device.Device

	swapchain *swapchain.SwapchainFactory
	factory   *pipeline.Factory
	cache     *pipelines.Cache
	owned     []*pipelines.Descriptor
	lighting  *pipelines.Descriptor

	scene     *scene.Scene
	mirrors   *mirror.System
	particles *compute.Dispatcher
	frames    *frame.Orchestrator

	models   []*model.Model
	fallback *texture.Texture

	camera           *camera.Camera
	cameraController *camcontroller.Controller

	descriptorManager *descriptors.SetsManager
	cameraUbos        []*buffer.Buffer[frame.CameraUniform]
	lightUbos         []*buffer.Buffer[frame.LightsUniform]
	fences            []*device.Fence
	semaphores        []vulkan.Semaphore
}

func New(cfg config.Config) (*App, error) {
	window := window.New(cfg.Window)

	vulkan.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vulkan.Init(); err != nil {
		window.Close()
		return nil, fmt.Errorf("initialize vulkan: %w", err)
	}

	dev := device.New(window, cfg.Renderer.Validation)
	sc := swapchain.New(dev, window.Extent)
	factory := pipeline.NewFactory(dev, sc.Pass(), cfg.Renderer.ShaderDir)
	cache := pipelines.NewCache(factory)

	a := &App{
		cfg:       cfg,
		window:    window,
		device:    dev,
		swapchain: sc,
		factory:   factory,
		cache:     cache,
		mirrors:   mirror.New(cache),
		scene: scene.New(scene.Limits{
			MaxLights:  cfg.Scene.MaxLights,
			MaxMirrors: cfg.Scene.MaxMirrors,
		}),
		fallback:         texture.New(dev, texture.Solid(white)),
		camera:           camera.New(50.0, sc.Extent().AspectRatio(), 0.1, 50.0),
		cameraController: camcontroller.New(window),
	}
	a.camera.SetPosition(0, 0, -4)

	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	cfg := a.cfg

	dispatcher, err := compute.New(a.device, filepath.Join(cfg.Renderer.ShaderDir, snowComp), cfg.Particles.Floor)
	if err != nil {
		return fmt.Errorf("particles: %w", err)
	}
	a.particles = dispatcher
	seed := particles.Seed(particles.DefaultEmitter(cfg.Particles.Count, cfg.Particles.Seed))
	sim, err := particles.NewSimulation(dispatcher, seed)
	if err != nil {
		return err
	}

	if err := a.buildScene(sim); err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	a.lighting, err = a.cache.Acquire(pipelines.LightingQuad(lightingVert, lightingFrag))
	if err != nil {
		return err
	}

	slots, err := a.createSlots(cfg.Renderer.FramesInFlight)
	if err != nil {
		return err
	}

	opts := frame.Options{
		Scene:     a.scene,
		Surface:   a.swapchain,
		Queue:     a.swapchain,
		Slots:     slots,
		Camera:    a.camera,
		Lighting:  a.lighting,
		Particles: sim,
	}
	if cfg.Scene.TrackReflections {
		opts.Reflections = a.mirrors
	}
	a.frames, err = frame.New(opts)
	if err != nil {
		return err
	}

	logging.Logger().Info("scene ready",
		"objects", a.scene.Len(),
		"reflected", len(a.scene.Reflected()),
		"lights", len(a.scene.Lights()),
		"mirrors", len(a.scene.Mirrors()),
		"particles", sim.Count(),
		"pipelines", a.cache.Len(),
	)
	return nil
}

var categoryLayouts = map[scene.Category]pipelines.Layout{
	scene.CategoryNormal: pipelines.LayoutNormal,
	scene.CategorySnow:   pipelines.LayoutSnow,
	scene.CategoryLit:    pipelines.LayoutLit,
}

// objectTexture is the view and sampler bound for obj, the white fallback
// when it has none.
func (a *App) objectTexture(obj *scene.Object) (vulkan.ImageView, vulkan.Sampler) {
	view, okView := obj.Texture.View.(vulkan.ImageView)
	sampler, okSampler := obj.Texture.Sampler.(vulkan.Sampler)
	if !okView || !okSampler {
		return a.fallback.ImageView, a.fallback.Sampler
	}
	return view, sampler
}

// createSlots builds the per-frame uniforms, sync objects, recorders and
// one binding set per object per frame, indexed by the object's
// category-local slot.
func (a *App) createSlots(count int) ([]*frame.Slot, error) {
	recorders := renderpass.NewRecorders(a.device, a.swapchain, count)

	type pending struct {
		frame int
		cat   scene.Category
		index int
		set   *descriptors.DescriptorSet
	}
	var all []*descriptors.DescriptorSet
	var sets []pending
	lightingSets := make([]*descriptors.DescriptorSet, count)

	slots := make([]*frame.Slot, count)
	for i := range slots {
		cameraUbo := buffer.NewUniform[frame.CameraUniform](a.device)
		lightsUbo := buffer.NewUniform[frame.LightsUniform](a.device)
		a.cameraUbos = append(a.cameraUbos, cameraUbo)
		a.lightUbos = append(a.lightUbos, lightsUbo)

		for oi := range a.scene.Len() {
			slot, err := a.scene.Slot(oi)
			if err != nil {
				return nil, err
			}
			layout, ok := categoryLayouts[slot.Category]
			if !ok {
				continue
			}
			view, sampler := a.objectTexture(a.scene.Object(oi))
			set := &descriptors.DescriptorSet{
				Descriptors: pipeline.ObjectSet(layout, cameraUbo.Buffer, lightsUbo.Buffer, view, sampler),
			}
			all = append(all, set)
			sets = append(sets, pending{frame: i, cat: slot.Category, index: slot.Index, set: set})
		}

		lightingSets[i] = &descriptors.DescriptorSet{
			Descriptors: pipeline.ObjectSet(pipelines.LayoutLighting, cameraUbo.Buffer, lightsUbo.Buffer, nil, nil),
		}
		all = append(all, lightingSets[i])

		fence := a.device.NewFence(true)
		a.fences = append(a.fences, fence)
		acquired, finished := a.device.NewSemaphore(), a.device.NewSemaphore()
		a.semaphores = append(a.semaphores, acquired, finished)

		slots[i] = &frame.Slot{
			Fence:          fence,
			ImageAcquired:  acquired,
			RenderFinished: finished,
			Recorder:       recorders[i],
			Camera:         cameraUbo,
			Lights:         lightsUbo,
		}
	}

	a.descriptorManager = descriptors.NewSets(a.device, all)

	for i, s := range slots {
		s.Sets = frame.Sets{
			Normal:   make([]gpu.Handle, a.scene.CategoryCount(scene.CategoryNormal)),
			Snow:     make([]gpu.Handle, a.scene.CategoryCount(scene.CategorySnow)),
			Lit:      make([]gpu.Handle, a.scene.CategoryCount(scene.CategoryLit)),
			Lighting: lightingSets[i].Set,
		}
	}
	for _, p := range sets {
		slots[p.frame].Sets.For(p.cat)[p.index] = p.set.Set
	}
	return slots, nil
}

func (a *App) Run() error {
	last := time.Now()
	for !a.window.ShouldClose() {
		glfw.PollEvents()

		now := time.Now()
		since := now.Sub(last)
		last = now

		a.cameraController.Update(a.window, a.camera)
		a.scene.Animate(since)

		stale, err := a.frames.Render(float32(since.Seconds()))
		if err != nil {
			return err
		}
		if stale || a.window.SizeChanged {
			a.recreate()
		}
		if f := a.frames.Frame(); f > 0 && f%statsInterval == 0 {
			stats := a.frames.Stats()
			logging.Logger().Debug("frame stats", "frame", f, "draws", stats.Draws, "skipped", stats.Skipped)
		}
	}

	return a.frames.Idle()
}

func (a *App) recreate() {
	extent := a.window.WaitForExtent()
	if extent.Empty() {
		return
	}
	a.device.WaitIdle()
	a.window.SizeChanged = false
	a.swapchain.UpdateSwapchain(extent)
	a.camera.Update(a.swapchain.Extent().AspectRatio())
}

func (a *App) Close() {
	a.device.WaitIdle()

	for _, d := range a.owned {
		a.cache.Release(d)
	}
	a.cache.Release(a.lighting)
	a.mirrors.Close()
	if n := a.cache.Len(); n > 0 {
		logging.Logger().Warn("pipelines still referenced at shutdown", "count", n)
	}
	a.cache.Close()
	a.factory.Close()

	if a.particles != nil {
		a.particles.Close()
	}
	if a.descriptorManager != nil {
		a.descriptorManager.Close()
	}
	for _, ubo := range a.cameraUbos {
		ubo.Close()
	}
	for _, ubo := range a.lightUbos {
		ubo.Close()
	}
	for _, f := range a.fences {
		f.Close()
	}
	for _, s := range a.semaphores {
		a.device.DestroySemaphore(s)
	}
	for _, m := range a.models {
		m.Close()
	}
	a.fallback.Close()

	a.swapchain.Close()
	a.device.Close()
	a.window.Close()
}
