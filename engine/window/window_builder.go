package window

import (
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
)

// DefaultCanvasID is the id of the canvas a browser window draws into.
const DefaultCanvasID = "oxy-gfx"

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar, or the document title in the browser.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial window size. Non-positive values keep the default.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if width > 0 && height > 0 {
			w.width, w.height = width, height
		}
	}
}

// WithSizeLimits bounds the size a desktop window can be resized to.
//
// Parameters:
//   - minWidth: minimum width in pixels
//   - minHeight: minimum height in pixels
//   - maxWidth: maximum width in pixels
//   - maxHeight: maximum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth, w.minHeight = minWidth, minHeight
		w.maxWidth, w.maxHeight = maxWidth, maxHeight
	}
}

// WithCanvasID selects the canvas element a browser window draws into.
//
// Parameters:
//   - id: the element id
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithCanvasID(id string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.canvasID = id
	}
}

// WithMaxFrames stops Run after n frames. Zero runs until the window closes.
//
// Parameters:
//   - n: the number of frames
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxFrames(n int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxFrames = n
	}
}

// WithFrameLimit caps the frame rate. Event pump iterations arriving before the next frame is due do
// not run the frame callback. Pass 0 to uncap (default).
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithFrameLimit(fps float64) WindowBuilderOption {
	return func(w *engineWindow) {
		w.frameLimit = frameInterval(fps)
	}
}

func frameInterval(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}

// WithHeadlessBackend makes a headless window render into a given backend, for fault injection and
// counters.
//
// Parameters:
//   - backend: the headless backend
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeadlessBackend(backend *renderer.HeadlessBackend) WindowBuilderOption {
	return func(w *engineWindow) {
		w.headless = backend
	}
}
