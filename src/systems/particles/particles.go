package particles

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/stat/distuv"
)

// Particle matches the std430 layout of the simulation storage buffers.
// The fourth components are padding.
type Particle struct {
	Position [4]float32
	Velocity [4]float32
}

// Stride is the size of one Particle in the storage and instance buffers.
const Stride = 32

// Emitter describes the box particles spawn in and their fall speed.
type Emitter struct {
	Count    int
	Seed     uint64
	Min      [3]float32
	Max      [3]float32
	MinSpeed float32
	MaxSpeed float32
	// Drift bounds the horizontal velocity in either direction.
	Drift float32
}

func DefaultEmitter(count int, seed uint64) Emitter {
	return Emitter{
		Count:    count,
		Seed:     seed,
		Min:      [3]float32{-3, 2, -3},
		Max:      [3]float32{3, 4, 3},
		MinSpeed: 0.3,
		MaxSpeed: 0.9,
		Drift:    0.1,
	}
}

// Seed fills the initial particle state. The same emitter always yields the
// same particles.
func Seed(e Emitter) []Particle {
	src := rand.NewPCG(e.Seed, e.Seed^0x9e3779b97f4a7c15)
	axis := func(lo, hi float32) distuv.Uniform {
		if hi < lo {
			lo, hi = hi, lo
		}
		return distuv.Uniform{Min: float64(lo), Max: float64(hi), Src: src}
	}
	x, y, z := axis(e.Min[0], e.Max[0]), axis(e.Min[1], e.Max[1]), axis(e.Min[2], e.Max[2])
	speed := axis(e.MinSpeed, e.MaxSpeed)
	drift := axis(-e.Drift, e.Drift)

	out := make([]Particle, e.Count)
	for i := range out {
		out[i] = Particle{
			Position: [4]float32{float32(x.Rand()), float32(y.Rand()), float32(z.Rand()), 1},
			Velocity: [4]float32{float32(drift.Rand()), -float32(speed.Rand()), float32(drift.Rand()), 0},
		}
	}
	return out
}

// Step advances current in place by dt seconds. It mirrors the compute
// shader: positions integrate velocity, and a particle that falls below
// floor or becomes non-finite restarts from its seed state.
func Step(seed, current []Particle, dt, floor float32) {
	for i := range current {
		p := &current[i]
		for c := range 3 {
			p.Position[c] += p.Velocity[c] * dt
		}
		if p.Position[1] < floor || !finite(p.Position) {
			if i < len(seed) {
				*p = seed[i]
			}
		}
	}
}

func finite(v [4]float32) bool {
	for _, c := range v[:3] {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}
