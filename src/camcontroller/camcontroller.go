package camcontroller

import (
	"time"

	"github.com/WowVeryLogin/vulkan_mirrors/src/camcontroller/camera"
	"github.com/WowVeryLogin/vulkan_mirrors/src/window"
	"github.com/go-gl/glfw/v3.3/glfw"
	"gonum.org/v1/gonum/mat"
)

const (
	moveSpeed  = 2.0
	mouseSpeed = 0.002
)

// Controller drives a camera from WASD, space/shift and mouse look.
type Controller struct {
	lastUpdateTime  time.Time
	initialPosition mat.VecDense
}

func New(
	window *window.Window,
) *Controller {
	width, height := window.Window.GetSize()
	x := float64(width) / 2.0
	y := float64(height) / 2.0
	window.Window.SetCursorPos(x, y)
	x, y = window.Window.GetCursorPos()
	return &Controller{
		lastUpdateTime:  time.Now(),
		initialPosition: *mat.NewVecDense(2, []float64{x, y}),
	}
}

type keyBinding struct {
	key  glfw.Key
	axis int
	sign float64
}

var bindings = []keyBinding{
	{glfw.KeyW, 2, 1},
	{glfw.KeyS, 2, -1},
	{glfw.KeyD, 0, 1},
	{glfw.KeyA, 0, -1},
	{glfw.KeySpace, 1, 1},
	{glfw.KeyLeftShift, 1, -1},
}

func (c *Controller) Update(
	window *window.Window,
	camera *camera.Camera,
) {
	since := time.Since(c.lastUpdateTime)
	c.lastUpdateTime = time.Now()

	if window.Window.GetKey(glfw.KeyEscape) == glfw.Press {
		window.Window.SetShouldClose(true)
	}

	move := mat.NewVecDense(3, nil)
	for _, b := range bindings {
		if window.Window.GetKey(b.key) == glfw.Press {
			move.SetVec(b.axis, move.AtVec(b.axis)+b.sign)
		}
	}
	move.ScaleVec(since.Seconds()*moveSpeed, move)
	camera.Move(move.AtVec(0), move.AtVec(1), move.AtVec(2))

	x, y := window.Window.GetCursorPos()
	mouseChange := mat.NewVecDense(2, nil)
	mouseChange.SubVec(mat.NewVecDense(2, []float64{x, y}), &c.initialPosition)
	camera.RotateYaw(mouseChange.AtVec(0) * mouseSpeed)
	camera.RotatePitch(-mouseChange.AtVec(1) * mouseSpeed)

	window.Window.SetCursorPos(c.initialPosition.AtVec(0), c.initialPosition.AtVec(1))
}
