//go:build !js

package window

import (
	"fmt"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	closing bool
}

// glfwKeys maps the GLFW keys the engine reacts to.
var glfwKeys = map[glfw.Key]Key{
	glfw.KeyW:         KeyW,
	glfw.KeyA:         KeyA,
	glfw.KeyS:         KeyS,
	glfw.KeyD:         KeyD,
	glfw.KeySpace:     KeySpace,
	glfw.KeyLeftShift: KeyLeftShift,
	glfw.KeyUp:        KeyUp,
	glfw.KeyDown:      KeyDown,
	glfw.KeyLeft:      KeyLeft,
	glfw.KeyRight:     KeyRight,
	glfw.KeyEscape:    KeyEscape,
}

// newPlatformWindow creates the GLFW window with input callbacks. GLFW and wgpu-native must be driven
// from the thread that created the window, so the calling goroutine is locked to its OS thread.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) (platformWindow, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{parent: w, window: win}

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		k := glfwKeys[key]
		if k == KeyEscape && action == glfw.Press {
			gw.closing = true
			win.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			w.keyDown(k)
		case glfw.Release:
			w.keyUp(k)
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.scroll(float32(yoff))
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft {
			w.mouseButton(action == glfw.Press)
		}
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		w.mouseMove(float32(xpos), float32(ypos))
	})

	// The framebuffer size is in pixels; on high-DPI displays it differs from the window size and it is
	// what the surface must be configured with. A minimized window reports 0x0.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width, w.height = fbWidth, fbHeight
	return gw, nil
}

// target builds the surface descriptor through the wgpuglfw bridge, which has per-platform
// implementations (Windows, X11, Wayland, macOS).
func (g *glfwWindow) target() renderer.Target {
	return renderer.NativeWindowHandle{Descriptor: wgpuglfw.GetSurfaceDescriptor(g.window)}
}

func (g *glfwWindow) running() bool {
	return !g.closing && !g.window.ShouldClose()
}

// loop polls GLFW for pending events without blocking and runs one step per iteration.
func (g *glfwWindow) loop(step func() bool) {
	for g.running() {
		glfw.PollEvents()
		if !g.running() || !step() {
			return
		}
		if g.parent.limit() > 0 {
			time.Sleep(time.Millisecond)
		}
		runtime.Gosched()
	}
}

func (g *glfwWindow) close() error {
	if g.window == nil {
		return fmt.Errorf("window is not initialized")
	}
	g.closing = true
	g.window.Destroy()
	g.window = nil
	glfw.Terminate()
	return nil
}
