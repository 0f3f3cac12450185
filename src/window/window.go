package window

import (
	"github.com/WowVeryLogin/vulkan_mirrors/src/config"
	"github.com/WowVeryLogin/vulkan_mirrors/src/runtime/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/goki/vulkan"
)

type Window struct {
	Window      *glfw.Window
	Extent      gpu.Extent
	SizeChanged bool
}

func New(cfg config.Window) *Window {
	if err := glfw.Init(); err != nil {
		panic("failed to initialize GLFW: " + err.Error())
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		panic("failed to create window: " + err.Error())
	}
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)

	w := &Window{
		Window: window,
		Extent: gpu.Extent{
			Width:  uint32(cfg.Width),
			Height: uint32(cfg.Height),
		},
	}

	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width int, height int) {
		w.Extent.Height = uint32(height)
		w.Extent.Width = uint32(width)
		w.SizeChanged = true
	})

	return w
}

// WaitForExtent blocks on window events while the framebuffer is zero
// sized, e.g. while minimised.
func (w *Window) WaitForExtent() gpu.Extent {
	for w.Extent.Empty() && !w.ShouldClose() {
		glfw.WaitEvents()
	}
	return w.Extent
}

func (w *Window) Close() {
	w.Window.Destroy()
	glfw.Terminate()
}

func (w *Window) ShouldClose() bool {
	return w.Window.ShouldClose()
}

func (w *Window) CreateSurface(instance vulkan.Instance) vulkan.Surface {
	surface, err := w.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		panic("failed to create window surface: " + err.Error())
	}

	return vulkan.SurfaceFromPointer(surface)
}

func (w *Window) GetRequiredInstanceExtensions() []string {
	var result []string
	for _, e := range w.Window.GetRequiredInstanceExtensions() {
		result = append(result, e+"\x00")
	}

	return result
}
