package window

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
)

// HeadlessWindow is a Window without a display. Its frames run back to back and it renders into a
// renderer.HeadlessBackend, which makes it the target for CI and end-to-end tests. Resizes and input
// can be scripted from a BeforeFrame hook.
type HeadlessWindow struct {
	*engineWindow
	backend     *renderer.HeadlessBackend
	beforeFrame func(frame int)
	frame       int
	closed      bool
}

var _ Window = &HeadlessWindow{}

// NewHeadlessWindow creates a headless window. Without WithMaxFrames it runs until the frame callback
// returns false or Close is called.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - *HeadlessWindow: the window
func NewHeadlessWindow(options ...WindowBuilderOption) *HeadlessWindow {
	w := newEngineWindow(options)
	hw := &HeadlessWindow{engineWindow: w, backend: w.headless}
	if hw.backend == nil {
		hw.backend = renderer.NewHeadlessBackend()
	}
	w.platform = hw
	return hw
}

// Backend returns the backend the window renders into.
func (h *HeadlessWindow) Backend() *renderer.HeadlessBackend {
	return h.backend
}

// BeforeFrame sets a hook called before each frame with the frame number, starting at 1.
func (h *HeadlessWindow) BeforeFrame(hook func(frame int)) {
	h.beforeFrame = hook
}

// Resize simulates the drawable size changing, firing the resize callback.
func (h *HeadlessWindow) Resize(width, height int) {
	h.resized(width, height)
}

// Press simulates a key press.
func (h *HeadlessWindow) Press(k Key) {
	h.keyDown(k)
}

// Release simulates a key release.
func (h *HeadlessWindow) Release(k Key) {
	h.keyUp(k)
}

func (h *HeadlessWindow) target() renderer.Target {
	return renderer.HeadlessTarget{Backend: h.backend}
}

func (h *HeadlessWindow) running() bool {
	return !h.closed
}

func (h *HeadlessWindow) loop(step func() bool) {
	for !h.closed {
		h.frame++
		if h.beforeFrame != nil {
			h.beforeFrame(h.frame)
		}
		if !step() {
			return
		}
	}
}

func (h *HeadlessWindow) close() error {
	if h.closed {
		return errors.New("window is already closed")
	}
	h.closed = true
	return nil
}
