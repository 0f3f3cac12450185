package camera

import (
	"github.com/WowVeryLogin/vulkan_mirrors/src/systems/frame"
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/mat"
)

// MaxPitch keeps the view direction off the world up axis.
const MaxPitch = 89 * math32.Pi / 180

var worldUp = mat.NewVecDense(3, []float64{0, 1, 0})

// Camera is a first person camera looking down +Z at zero yaw, with +Y up.
// Angles are in radians.
type Camera struct {
	fov, far, near float32
	projection     *mat.Dense
	position       *mat.VecDense
	pitch, yaw     float32
}

func New(fov float32, aspect float32, near float32, far float32) *Camera {
	c := &Camera{
		fov:      fov,
		far:      far,
		near:     near,
		position: mat.NewVecDense(3, []float64{0, 0, 0}),
	}
	c.Update(aspect)
	return c
}

// Update rebuilds the projection for a new aspect ratio. Depth maps to
// [0, 1] and Y is flipped for Vulkan clip space.
func (c *Camera) Update(aspect float32) {
	if aspect <= 0 {
		aspect = 1
	}
	s := 1.0 / math32.Tan(c.fov*0.5*math32.Pi/180.0)
	c.projection = mat.NewDense(4, 4, []float64{
		float64(s / aspect), 0, 0, 0,
		0, float64(-s), 0, 0,
		0, 0, float64(c.far / (c.far - c.near)), float64(c.far * c.near / (c.near - c.far)),
		0, 0, 1, 0,
	})
}

func (c *Camera) SetPosition(x, y, z float64) {
	c.position.SetVec(0, x)
	c.position.SetVec(1, y)
	c.position.SetVec(2, z)
}

func (c *Camera) Position() [3]float64 {
	return [3]float64{c.position.AtVec(0), c.position.AtVec(1), c.position.AtVec(2)}
}

// Move translates the camera in its own frame: x to the right, y along
// world up and z forward on the ground plane.
func (c *Camera) Move(x, y, z float64) {
	sin, cos := math32.Sincos(c.yaw)
	forward := mat.NewVecDense(3, []float64{float64(sin), 0, float64(cos)})
	right := mat.NewVecDense(3, []float64{float64(cos), 0, float64(-sin)})

	c.position.AddScaledVec(c.position, x, right)
	c.position.AddScaledVec(c.position, y, worldUp)
	c.position.AddScaledVec(c.position, z, forward)
}

func (c *Camera) RotatePitch(angle float64) {
	c.pitch = math32.Max(-MaxPitch, math32.Min(MaxPitch, c.pitch+float32(angle)))
}

func (c *Camera) RotateYaw(angle float64) {
	c.yaw = math32.Mod(c.yaw+float32(angle), 2*math32.Pi)
}

func (c *Camera) Angles() (pitch, yaw float32) {
	return c.pitch, c.yaw
}

func (c *Camera) axes() (right, up, forward *mat.VecDense) {
	sinP, cosP := math32.Sincos(c.pitch)
	sinY, cosY := math32.Sincos(c.yaw)
	forward = mat.NewVecDense(3, []float64{
		float64(cosP * sinY),
		float64(sinP),
		float64(cosP * cosY),
	})
	right = cross(worldUp, forward)
	right.ScaleVec(1/mat.Norm(right, 2), right)
	up = cross(forward, right)
	return right, up, forward
}

func cross(a, b mat.Vector) *mat.VecDense {
	return mat.NewVecDense(3, []float64{
		a.AtVec(1)*b.AtVec(2) - a.AtVec(2)*b.AtVec(1),
		a.AtVec(2)*b.AtVec(0) - a.AtVec(0)*b.AtVec(2),
		a.AtVec(0)*b.AtVec(1) - a.AtVec(1)*b.AtVec(0),
	})
}

// View is the world to camera transform.
func (c *Camera) View() *mat.Dense {
	right, up, forward := c.axes()
	view := mat.NewDense(4, 4, nil)
	for row, axis := range []*mat.VecDense{right, up, forward} {
		for col := range 3 {
			view.Set(row, col, axis.AtVec(col))
		}
		view.Set(row, 3, -mat.Dot(axis, c.position))
	}
	view.Set(3, 3, 1)
	return view
}

func (c *Camera) Projection() *mat.Dense {
	return c.projection
}

// flatten stores m column-major, the layout GLSL expects.
func flatten(m mat.Matrix) [16]float32 {
	var out [16]float32
	for i := range 4 {
		for j := range 4 {
			out[j*4+i] = float32(m.At(i, j))
		}
	}
	return out
}

func (c *Camera) Uniform() frame.CameraUniform {
	return frame.CameraUniform{
		View:       flatten(c.View()),
		Projection: flatten(c.projection),
		Position: [4]float32{
			float32(c.position.AtVec(0)),
			float32(c.position.AtVec(1)),
			float32(c.position.AtVec(2)),
			1,
		},
	}
}
