package window

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
)

// Key is a platform independent key code for the keys the engine reacts to.
type Key int

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeySpace
	KeyLeftShift
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEscape
)

// Window is the windowing collaborator: it supplies the presentation target, reports size changes and
// input, and drives the per-frame callback from the platform's event source (the glfw event pump on
// desktop, requestAnimationFrame in the browser, a plain loop when headless).
//
// Callbacks run on the goroutine that called Run.
type Window interface {
	// Title returns the window title.
	Title() string

	// Target returns the presentation target to pass to renderer.Initialize.
	//
	// Returns:
	//   - renderer.Target: a NativeWindowHandle, BrowserCanvasHandle or HeadlessTarget
	Target() renderer.Target

	// Size returns the current drawable size in pixels. A minimized window reports zero.
	Size() (width, height int)

	// SetResizeCallback sets the function called when the drawable size changes.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the key
	SetKeyDownCallback(callback func(key Key))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the key
	SetKeyUpCallback(callback func(key Key))

	// SetScrollCallback sets the callback for mouse wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetMouseButtonCallback sets the callback for the drag button (left button) changing state.
	//
	// Parameters:
	//   - callback: function receiving whether the button is now held
	SetMouseButtonCallback(callback func(pressed bool))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in pixels
	SetMouseMoveCallback(callback func(x, y float32))

	// SetFrameLimit caps the frame rate of Run. Zero or a negative value removes the cap.
	//
	// Parameters:
	//   - fps: maximum frames per second
	SetFrameLimit(fps float64)

	// Run drives the frame callback until the window closes, the callback returns false or the
	// configured frame count is reached. It blocks until then.
	//
	// Parameters:
	//   - frame: called once per frame with the time since the previous frame
	Run(frame func(dt time.Duration) bool)

	// IsRunning reports whether the window is open.
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never opened
	Close() error
}

// platformWindow is implemented once per platform.
type platformWindow interface {
	target() renderer.Target
	running() bool
	// loop calls step until it returns false or the window closes.
	loop(step func() bool)
	close() error
}

// engineWindow holds the configuration and callbacks shared by every platform.
type engineWindow struct {
	mu *sync.Mutex

	title     string
	width     int
	height    int
	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int
	canvasID  string

	maxFrames  int
	frameLimit time.Duration
	headless   *renderer.HeadlessBackend

	platform platformWindow

	onResize      func(width, height int)
	onKeyDown     func(key Key)
	onKeyUp       func(key Key)
	onScroll      func(delta float32)
	onMouseButton func(pressed bool)
	onMouseMove   func(x, y float32)
}

var _ Window = &engineWindow{}

func newEngineWindow(options []WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		mu:        &sync.Mutex{},
		title:     "oxy-gfx",
		width:     800,
		height:    600,
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  1,
		minHeight: 1,
		canvasID:  DefaultCanvasID,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// NewWindow opens a window on the current platform: a glfw window on desktop, the canvas named by
// WithCanvasID in the browser.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options)
	p, err := newPlatformWindow(w)
	if err != nil {
		return nil, err
	}
	w.platform = p
	return w, nil
}

func (w *engineWindow) Title() string {
	return w.title
}

func (w *engineWindow) Target() renderer.Target {
	return w.platform.target()
}

func (w *engineWindow) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key Key)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key Key)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(pressed bool)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y float32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) IsRunning() bool {
	return w.platform != nil && w.platform.running()
}

func (w *engineWindow) Close() error {
	return w.platform.close()
}

func (w *engineWindow) SetFrameLimit(fps float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frameLimit = frameInterval(fps)
}

// limit returns the minimum frame duration, zero when uncapped.
func (w *engineWindow) limit() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frameLimit
}

func (w *engineWindow) Run(frame func(dt time.Duration) bool) {
	frames := 0
	last := time.Now()
	w.platform.loop(func() bool {
		now := time.Now()
		dt := now.Sub(last)
		if limit := w.limit(); limit > 0 && dt < limit {
			return true
		}
		last = now

		frames++
		if !frame(dt) {
			return false
		}
		return w.maxFrames <= 0 || frames < w.maxFrames
	})
}

// resized records a new drawable size and notifies the resize callback.
func (w *engineWindow) resized(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

func (w *engineWindow) keyDown(k Key) {
	if k != KeyUnknown && w.onKeyDown != nil {
		w.onKeyDown(k)
	}
}

func (w *engineWindow) keyUp(k Key) {
	if k != KeyUnknown && w.onKeyUp != nil {
		w.onKeyUp(k)
	}
}

func (w *engineWindow) scroll(delta float32) {
	if w.onScroll != nil {
		w.onScroll(delta)
	}
}

func (w *engineWindow) mouseButton(pressed bool) {
	if w.onMouseButton != nil {
		w.onMouseButton(pressed)
	}
}

func (w *engineWindow) mouseMove(x, y float32) {
	if w.onMouseMove != nil {
		w.onMouseMove(x, y)
	}
}
