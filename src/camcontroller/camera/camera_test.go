package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func transform(m mat.Matrix, p [3]float64) *mat.VecDense {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(4, []float64{p[0], p[1], p[2], 1}))
	return &out
}

func TestViewLooksDownZ(t *testing.T) {
	c := New(60, 1, 0.1, 100)
	c.SetPosition(0, 1, -2)

	p := transform(c.View(), [3]float64{0, 1, 3})
	assert.InDelta(t, 0, p.AtVec(0), 1e-9)
	assert.InDelta(t, 0, p.AtVec(1), 1e-9)
	assert.InDelta(t, 5, p.AtVec(2), 1e-9)
}

func TestProjectionDepthRange(t *testing.T) {
	c := New(90, 2, 1, 10)

	near := transform(c.Projection(), [3]float64{0, 0, 1})
	far := transform(c.Projection(), [3]float64{0, 0, 10})
	assert.InDelta(t, 0, near.AtVec(2)/near.AtVec(3), 1e-6)
	assert.InDelta(t, 1, far.AtVec(2)/far.AtVec(3), 1e-6)

	up := transform(c.Projection(), [3]float64{0, 1, 1})
	assert.Less(t, up.AtVec(1), 0.0, "world up maps to negative clip Y")
	right := transform(c.Projection(), [3]float64{2, 0, 1})
	assert.InDelta(t, 1, right.AtVec(0)/right.AtVec(3), 1e-6)
}

func TestMoveFollowsYaw(t *testing.T) {
	c := New(60, 1, 0.1, 100)
	c.RotateYaw(float64(math32.Pi / 2))
	c.Move(0, 0, 1)

	pos := c.Position()
	assert.InDelta(t, 1, pos[0], 1e-6)
	assert.InDelta(t, 0, pos[2], 1e-6)

	c.Move(1, 2, 0)
	pos = c.Position()
	assert.InDelta(t, 1, pos[0], 1e-6)
	assert.InDelta(t, 2, pos[1], 1e-6)
	assert.InDelta(t, -1, pos[2], 1e-6)
}

func TestPitchIsClamped(t *testing.T) {
	c := New(60, 1, 0.1, 100)
	c.RotatePitch(10)
	pitch, _ := c.Angles()
	assert.Equal(t, float32(MaxPitch), pitch)

	c.RotatePitch(-20)
	pitch, _ = c.Angles()
	assert.Equal(t, float32(-MaxPitch), pitch)
}

func TestUniformIsColumnMajor(t *testing.T) {
	c := New(60, 1, 0.1, 100)
	c.SetPosition(3, 4, 5)
	u := c.Uniform()

	require.Equal(t, [4]float32{3, 4, 5, 1}, u.Position)
	// translation sits in the last column
	assert.InDelta(t, -3, u.View[12], 1e-6)
	assert.InDelta(t, -4, u.View[13], 1e-6)
	assert.InDelta(t, -5, u.View[14], 1e-6)
	assert.InDelta(t, 1, u.View[15], 1e-6)
	assert.InDelta(t, 1, u.Projection[11], 1e-6)
}
