package frame

import (
	"errors"
	"fmt"

	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/particles"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/pipelines"
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/scene"
)

var ErrStale = gpu.ErrStale

// Surface hands out presentable images.
type Surface interface {
	// Acquire returns the next image index and arranges for signal to fire
	// once it is usable. A stale surface returns ErrStale.
	Acquire(signal gpu.Handle) (int, error)
	// Present queues image after wait fires. A stale or suboptimal surface
	// returns ErrStale.
	Present(image int, wait gpu.Handle) error
	Extent() gpu.Extent
	// InputSet is the binding set exposing image's G-buffer and depth as
	// input attachments.
	InputSet(image int) gpu.Handle
}

type Queue interface {
	// Submit waits on wait at colour output, signals signal and fence.
	Submit(rec gpu.Recorder, wait, signal gpu.Handle, fence gpu.Fence) error
}

type Camera interface {
	Uniform() CameraUniform
}

// Reflections refreshes mirrored copies from their originals.
type Reflections interface {
	Refresh(s *scene.Scene)
}

type Options struct {
	Scene    *scene.Scene
	Surface  Surface
	Queue    Queue
	Slots    []*Slot
	Camera   Camera
	Lighting *pipelines.Descriptor
	// Particles is optional.
	Particles *particles.Simulation
	// Reflections is optional. When set, mirrored copies follow animated
	// originals every frame.
	Reflections Reflections
}

// Orchestrator drives one frame per Render call, rotating over its slots.
type Orchestrator struct {
	scene       *scene.Scene
	surface     Surface
	queue       Queue
	slots       []*Slot
	camera      Camera
	lighting    *pipelines.Descriptor
	particles   *particles.Simulation
	reflections Reflections

	frame uint64
	index int
	stats Stats
}

func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Scene == nil:
		return nil, errors.New("frame: scene is required")
	case !opts.Scene.Finalized():
		return nil, fmt.Errorf("frame: %w", scene.ErrNotFinalized)
	case opts.Surface == nil || opts.Queue == nil:
		return nil, errors.New("frame: surface and queue are required")
	case len(opts.Slots) == 0:
		return nil, errors.New("frame: at least one frame slot is required")
	}
	for i, s := range opts.Slots {
		if s == nil || s.Fence == nil || s.Recorder == nil {
			return nil, fmt.Errorf("frame: slot %d is incomplete", i)
		}
	}
	if opts.Lighting != nil && opts.Lighting.Key.Subpass != pipelines.SubpassLighting {
		return nil, fmt.Errorf("frame: %w: lighting quad pipeline in %s subpass", pipelines.ErrInvalidKey, opts.Lighting.Key.Subpass)
	}
	return &Orchestrator{
		scene:       opts.Scene,
		surface:     opts.Surface,
		queue:       opts.Queue,
		slots:       opts.Slots,
		camera:      opts.Camera,
		lighting:    opts.Lighting,
		particles:   opts.Particles,
		reflections: opts.Reflections,
	}, nil
}

// Render runs one frame. It reports true when the surface went stale and
// must be recreated; a stale acquire returns before anything is recorded.
// Any other failure is returned as an error.
func (o *Orchestrator) Render(dt float32) (bool, error) {
	slot := o.slots[o.index]

	if err := slot.Fence.Wait(); err != nil {
		return false, fmt.Errorf("wait for frame %d: %w", o.index, err)
	}

	image, err := o.surface.Acquire(slot.ImageAcquired)
	if errors.Is(err, ErrStale) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire image: %w", err)
	}
	// Reset only once an image is ours; an aborted frame leaves the fence
	// signaled for the next wait.
	if err := slot.Fence.Reset(); err != nil {
		return false, fmt.Errorf("reset frame fence: %w", err)
	}

	if o.particles != nil {
		if err := o.particles.Await(); err != nil {
			return false, err
		}
	}

	o.update(slot)

	stats, err := o.record(slot, image)
	if err != nil {
		return false, err
	}
	o.stats = stats

	if err := o.queue.Submit(slot.Recorder, slot.ImageAcquired, slot.RenderFinished, slot.Fence); err != nil {
		return false, fmt.Errorf("submit frame: %w", err)
	}

	if o.particles != nil {
		if err := o.particles.Tick(dt); err != nil {
			return false, err
		}
	}

	err = o.surface.Present(image, slot.RenderFinished)
	o.advance()
	if errors.Is(err, ErrStale) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("present image %d: %w", image, err)
	}
	return false, nil
}

func (o *Orchestrator) update(slot *Slot) {
	if o.reflections != nil {
		o.reflections.Refresh(o.scene)
	}
	if slot.Camera != nil && o.camera != nil {
		slot.Camera.WriteBuffer([]CameraUniform{o.camera.Uniform()})
	}
	if slot.Lights != nil {
		slot.Lights.WriteBuffer([]LightsUniform{lightsUniform(o.scene.Lights())})
	}
}

func (o *Orchestrator) advance() {
	o.frame++
	o.index = int(o.frame % uint64(len(o.slots)))
}

// Frame counts completed frames.
func (o *Orchestrator) Frame() uint64 {
	return o.frame
}

// FrameIndex is the slot the next Render uses.
func (o *Orchestrator) FrameIndex() int {
	return o.index
}

// Stats describes the last recorded frame.
func (o *Orchestrator) Stats() Stats {
	return o.stats
}

// Idle waits for every slot's last submission.
func (o *Orchestrator) Idle() error {
	for i, s := range o.slots {
		if err := s.Fence.Wait(); err != nil {
			return fmt.Errorf("wait for frame %d: %w", i, err)
		}
	}
	if o.particles != nil {
		if err := o.particles.Await(); err != nil {
			return err
		}
	}
	logging.Logger().Debug("frames idle", "frame", o.frame)
	return nil
}
