package particles

import (
	"errors"
	"fmt"

	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
)

var (
	ErrEmpty      = errors.New("particle simulation has no particles")
	ErrNotAwaited = errors.New("particle simulation ticked before its previous tick completed")
)

// Dispatcher runs the simulation on the compute queue.
type Dispatcher interface {
	// Upload copies the seed state into both storage buffers and returns
	// their handles.
	Upload(seed []Particle) (seedBuf, current gpu.Handle, err error)
	// Dispatch submits one tick that advances current in place and signals
	// Fence on completion.
	Dispatch(dt float32, count uint32) error
	// Fence starts signaled.
	Fence() gpu.Fence
}

// Simulation hands the current particle buffer between the compute queue,
// which writes it, and the forward pass, which reads it as instance data.
// The render side must Await before reading and Tick after submitting.
type Simulation struct {
	dispatcher Dispatcher
	seed       gpu.Handle
	current    gpu.Handle
	count      uint32
	readable   bool
	epoch      uint64
}

func NewSimulation(d Dispatcher, seed []Particle) (*Simulation, error) {
	if len(seed) == 0 {
		return nil, ErrEmpty
	}
	seedBuf, current, err := d.Upload(seed)
	if err != nil {
		return nil, fmt.Errorf("upload particles: %w", err)
	}
	return &Simulation{
		dispatcher: d,
		seed:       seedBuf,
		current:    current,
		count:      uint32(len(seed)),
	}, nil
}

// Await blocks until the last dispatched tick has finished writing the
// current buffer.
func (s *Simulation) Await() error {
	if s.readable {
		return nil
	}
	if err := s.dispatcher.Fence().Wait(); err != nil {
		return fmt.Errorf("wait particle fence: %w", err)
	}
	s.readable = true
	return nil
}

// Tick dispatches the next simulation step.
func (s *Simulation) Tick(dt float32) error {
	if !s.readable {
		return ErrNotAwaited
	}
	if err := s.dispatcher.Fence().Reset(); err != nil {
		return fmt.Errorf("reset particle fence: %w", err)
	}
	if err := s.dispatcher.Dispatch(dt, s.count); err != nil {
		return fmt.Errorf("dispatch particles: %w", err)
	}
	s.readable = false
	s.epoch++
	logging.Logger().Debug("particles dispatched", "epoch", s.epoch, "dt", dt, "count", s.count)
	return nil
}

// Readable reports whether the current buffer may be read without a wait.
func (s *Simulation) Readable() bool {
	return s.readable
}

func (s *Simulation) Current() gpu.Handle {
	return s.current
}

func (s *Simulation) Seed() gpu.Handle {
	return s.seed
}

func (s *Simulation) Count() uint32 {
	return s.count
}

// Epoch counts dispatched ticks.
func (s *Simulation) Epoch() uint64 {
	return s.epoch
}
