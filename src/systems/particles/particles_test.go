package particles

import (
	"errors"
	"testing"

	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cpuQueue runs ticks with Step when the fence is waited on, the way the
// GPU finishes work some time after submission.
type cpuQueue struct {
	seed    []Particle
	current []Particle
	floor   float32
	pending []float32
	fence   *cpuFence
	fail    error
}

type cpuFence struct {
	q        *cpuQueue
	signaled bool
	waits    int
	resets   int
}

func (f *cpuFence) Wait() error {
	f.waits++
	for _, dt := range f.q.pending {
		Step(f.q.seed, f.q.current, dt, f.q.floor)
	}
	f.q.pending = nil
	f.signaled = true
	return nil
}

func (f *cpuFence) Reset() error {
	f.resets++
	f.signaled = false
	return nil
}

func newCPUQueue(floor float32) *cpuQueue {
	q := &cpuQueue{floor: floor}
	q.fence = &cpuFence{q: q, signaled: true}
	return q
}

func (q *cpuQueue) Upload(seed []Particle) (gpu.Handle, gpu.Handle, error) {
	if q.fail != nil {
		return nil, nil, q.fail
	}
	q.seed = append([]Particle(nil), seed...)
	q.current = append([]Particle(nil), seed...)
	return &q.seed, &q.current, nil
}

func (q *cpuQueue) Dispatch(dt float32, count uint32) error {
	if int(count) != len(q.current) {
		return errors.New("count mismatch")
	}
	q.pending = append(q.pending, dt)
	return nil
}

func (q *cpuQueue) Fence() gpu.Fence {
	return q.fence
}

func TestSeedDeterministic(t *testing.T) {
	e := DefaultEmitter(256, 42)
	a, b := Seed(e), Seed(e)
	assert.Equal(t, a, b)
	assert.Len(t, a, 256)

	other := Seed(DefaultEmitter(256, 43))
	assert.NotEqual(t, a, other)

	for _, p := range a {
		for c := range 3 {
			assert.GreaterOrEqual(t, p.Position[c], e.Min[c])
			assert.LessOrEqual(t, p.Position[c], e.Max[c])
		}
		assert.Less(t, p.Velocity[1], float32(0))
		assert.Equal(t, float32(1), p.Position[3])
	}
}

func TestStepIntegratesVelocity(t *testing.T) {
	seed := []Particle{{Position: [4]float32{0, 3, 0, 1}, Velocity: [4]float32{0.5, -1, 0, 0}}}
	current := append([]Particle(nil), seed...)

	Step(seed, current, 0.5, -2)
	assert.InDeltaSlice(t, []float32{0.25, 2.5, 0}, current[0].Position[:3], 1e-6)
}

func TestStepRespawnsBelowFloor(t *testing.T) {
	seed := []Particle{{Position: [4]float32{1, 0, 1, 1}, Velocity: [4]float32{0, -4, 0, 0}}}
	current := append([]Particle(nil), seed...)

	Step(seed, current, 1, -5)
	assert.Equal(t, float32(-4), current[0].Position[1])
	Step(seed, current, 1, -5)
	assert.Equal(t, seed[0], current[0])
}

func TestNewSimulationErrors(t *testing.T) {
	_, err := NewSimulation(newCPUQueue(-2), nil)
	assert.ErrorIs(t, err, ErrEmpty)

	boom := errors.New("out of memory")
	q := newCPUQueue(-2)
	q.fail = boom
	_, err = NewSimulation(q, Seed(DefaultEmitter(4, 1)))
	assert.ErrorIs(t, err, boom)
}

func TestTickRequiresAwait(t *testing.T) {
	q := newCPUQueue(-2)
	sim, err := NewSimulation(q, Seed(DefaultEmitter(4, 1)))
	require.NoError(t, err)

	assert.ErrorIs(t, sim.Tick(0.016), ErrNotAwaited)

	require.NoError(t, sim.Await())
	require.NoError(t, sim.Tick(0.016))
	assert.ErrorIs(t, sim.Tick(0.016), ErrNotAwaited)
	assert.Equal(t, uint64(1), sim.Epoch())
	assert.Equal(t, 1, q.fence.resets)
}

func TestCurrentVisibleOnlyAfterAwait(t *testing.T) {
	q := newCPUQueue(-100)
	seed := Seed(DefaultEmitter(8, 7))
	sim, err := NewSimulation(q, seed)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), sim.Count())
	assert.Same(t, &q.current, sim.Current())

	const dt = 0.25
	for tick := 1; tick <= 3; tick++ {
		require.NoError(t, sim.Await())
		before := append([]Particle(nil), q.current...)

		require.NoError(t, sim.Tick(dt))
		assert.False(t, sim.Readable())
		assert.Equal(t, before, q.current, "tick %d visible before the fence", tick)

		require.NoError(t, sim.Await())
		for i := range before {
			for c := range 3 {
				want := before[i].Position[c] + before[i].Velocity[c]*dt
				assert.InDelta(t, want, q.current[i].Position[c], 1e-5)
			}
			assert.Less(t, q.current[i].Position[1], before[i].Position[1])
		}
	}
	assert.Equal(t, uint64(3), sim.Epoch())
}

func TestAwaitIsIdempotent(t *testing.T) {
	q := newCPUQueue(-2)
	sim, err := NewSimulation(q, Seed(DefaultEmitter(4, 1)))
	require.NoError(t, err)

	require.NoError(t, sim.Await())
	require.NoError(t, sim.Await())
	assert.Equal(t, 1, q.fence.waits)
}
