package mirror

import (
	"errors"
	"math"

	"github.com/WowVeryLogin/vulkan_mirrors/src/object"
	"gonum.org/v1/gonum/mat"
)

var ErrDegenerateNormal = errors.New("mirror normal has zero length")

// ReflectionMatrix returns the 4x4 reflection about the plane through point
// with the given normal. The normal is normalised first. The 3x3 block is
// I - 2NNᵀ and the translation column is -2dN with d = -N·P.
func ReflectionMatrix(point, normal [3]float64) (*mat.Dense, error) {
	n := mat.NewVecDense(3, []float64{normal[0], normal[1], normal[2]})
	length := mat.Norm(n, 2)
	if length == 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return nil, ErrDegenerateNormal
	}
	n.ScaleVec(1/length, n)

	p := mat.NewVecDense(3, []float64{point[0], point[1], point[2]})
	d := -mat.Dot(n, p)

	outer := mat.NewDense(3, 3, nil)
	outer.Outer(2, n, n)

	r := mat.NewDense(4, 4, nil)
	for i := range 3 {
		for j := range 3 {
			identity := 0.0
			if i == j {
				identity = 1
			}
			r.Set(i, j, identity-outer.At(i, j))
		}
		r.Set(i, 3, -2*d*n.AtVec(i))
	}
	r.Set(3, 3, 1)
	return r, nil
}

// Apply returns R·M for a column-major model matrix.
func Apply(reflection mat.Matrix, model [16]float32) [16]float32 {
	var out mat.Dense
	out.Mul(reflection, object.Unflatten(model))
	return object.Flatten(&out)
}

func ReflectPoint(reflection mat.Matrix, p [3]float64) [3]float64 {
	in := mat.NewVecDense(4, []float64{p[0], p[1], p[2], 1})
	var out mat.VecDense
	out.MulVec(reflection, in)
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// FlipsWinding reports whether the transform mirrors handedness, in which
// case front faces must be reversed when drawing through it.
func FlipsWinding(m *mat.Dense) bool {
	return mat.Det(m.Slice(0, 3, 0, 3)) < 0
}
