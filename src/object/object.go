package object

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Placement is a model transform built from scale, rotation and
// translation steps. Rotation and scale accumulate in a 3x3 block, the
// translation separately.
type Placement struct {
	transformations mat.Dense
	offset          mat.VecDense
	onFrame         func(p *Placement, since time.Duration)
}

type Transform interface {
	Transform(p *Placement) *Placement
}

func New() *Placement {
	return &Placement{
		offset: *mat.NewVecDense(3, []float64{0, 0, 0}),
		transformations: *mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		}),
	}
}

func (p *Placement) WithInitialTranforms(initialTransforms []Transform) *Placement {
	for _, transform := range initialTransforms {
		p = transform.Transform(p)
	}

	return p
}

func (p *Placement) WithOnFrame(onFrame func(p *Placement, since time.Duration)) *Placement {
	p.onFrame = onFrame

	return p
}

// Advance runs the per-frame animation callback, if any.
func (p *Placement) Advance(since time.Duration) {
	if p.onFrame != nil {
		p.onFrame(p, since)
	}
}

func (p *Placement) Rotate(degress float64, vec [3]float64) {
	*p = *NewRotate(degress, vec).Transform(p)
}

type Rotate struct {
	rotate mat.Dense
}

// NewRotate builds a quaternion rotation of the given angle around vec.
// The quaternion uses the full angle for its half-angle terms, so the
// resulting rotation turns by twice the given angle.
func NewRotate(degrees float64, vec [3]float64) Rotate {
	radians := degrees * math.Pi / 180.0

	qvec := mat.NewVecDense(3, vec[:])
	norm := mat.Norm(qvec, 2)
	if norm == 0 {
		return Rotate{rotate: *mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})}
	}
	qvec.ScaleVec(1.0/norm*math.Sin(radians), qvec)

	q0, q1, q2, q3 := math.Cos(radians), qvec.AtVec(0), qvec.AtVec(1), qvec.AtVec(2)

	return Rotate{
		rotate: *mat.NewDense(3, 3, []float64{
			2.0*(q0*q0+q1*q1) - 1.0, 2.0 * (q1*q2 - q0*q3), 2.0 * (q1*q3 + q0*q2),
			2.0 * (q1*q2 + q0*q3), 2.0*(q0*q0+q2*q2) - 1.0, 2.0 * (q2*q3 - q0*q1),
			2.0 * (q1*q3 - q0*q2), 2.0 * (q2*q3 + q0*q1), 2.0*(q0*q0+q3*q3) - 1.0,
		}),
	}
}

func (r Rotate) Transform(p *Placement) *Placement {
	result := mat.Dense{}
	result.Mul(&r.rotate, &p.transformations)
	return &Placement{
		transformations: result,
		offset:          p.offset,
		onFrame:         p.onFrame,
	}
}

type Scale struct {
	scale mat.Dense
}

func NewScale(x float64, y float64, z float64) Scale {
	return Scale{
		scale: *mat.NewDense(3, 3, []float64{
			x, 0, 0,
			0, y, 0,
			0, 0, z,
		}),
	}
}

func (s Scale) Transform(p *Placement) *Placement {
	result := mat.Dense{}
	result.Mul(&s.scale, &p.transformations)
	return &Placement{
		transformations: result,
		offset:          p.offset,
		onFrame:         p.onFrame,
	}
}

type Transition struct {
	offset mat.VecDense
}

func NewTransition(x float64, y float64, z float64) Transition {
	return Transition{
		offset: *mat.NewVecDense(3, []float64{x, y, z}),
	}
}

func (t Transition) Transform(p *Placement) *Placement {
	result := mat.VecDense{}

	result.AddVec(&p.offset, &t.offset)

	return &Placement{
		transformations: p.transformations,
		offset:          result,
		onFrame:         p.onFrame,
	}
}

// Matrix returns the 4x4 affine model matrix, row-major.
func (p *Placement) Matrix() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := range 3 {
		for j := range 3 {
			m.Set(i, j, p.transformations.At(i, j))
		}
		m.Set(i, 3, p.offset.AtVec(i))
	}
	m.Set(3, 3, 1)
	return m
}

// ModelMatrix flattens the placement the way the shaders expect it.
func (p *Placement) ModelMatrix() [16]float32 {
	return Flatten(p.Matrix())
}

// Flatten converts a 4x4 matrix to column-major float32 order.
func Flatten(m mat.Matrix) [16]float32 {
	var out [16]float32
	for i := range 4 {
		for j := range 4 {
			out[j*4+i] = float32(m.At(i, j))
		}
	}
	return out
}

// Unflatten is the inverse of Flatten.
func Unflatten(data [16]float32) *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := range 4 {
		for j := range 4 {
			m.Set(i, j, float64(data[j*4+i]))
		}
	}
	return m
}

func Identity() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}
