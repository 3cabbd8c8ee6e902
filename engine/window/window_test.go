package window

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlessRunStopsAfterMaxFrames(t *testing.T) {
	w := NewHeadlessWindow(WithMaxFrames(3), WithSize(320, 240))

	var hooks []int
	w.BeforeFrame(func(frame int) { hooks = append(hooks, frame) })
	frames := 0
	w.Run(func(time.Duration) bool {
		frames++
		return true
	})

	assert.Equal(t, 3, frames)
	assert.Equal(t, []int{1, 2, 3}, hooks)
	width, height := w.Size()
	assert.Equal(t, 320, width)
	assert.Equal(t, 240, height)
}

func TestHeadlessRunStopsWhenFrameReturnsFalse(t *testing.T) {
	w := NewHeadlessWindow()
	frames := 0
	w.Run(func(time.Duration) bool {
		frames++
		return frames < 5
	})
	assert.Equal(t, 5, frames)
	assert.True(t, w.IsRunning())

	require.NoError(t, w.Close())
	assert.False(t, w.IsRunning())
	assert.Error(t, w.Close())
}

func TestHeadlessEventsReachCallbacks(t *testing.T) {
	hb := renderer.NewHeadlessBackend()
	w := NewHeadlessWindow(WithHeadlessBackend(hb))
	assert.Same(t, hb, w.Backend())
	assert.Equal(t, renderer.HeadlessTarget{Backend: hb}, w.Target())

	var sizes [][2]int
	var down, up []Key
	w.SetResizeCallback(func(width, height int) { sizes = append(sizes, [2]int{width, height}) })
	w.SetKeyDownCallback(func(k Key) { down = append(down, k) })
	w.SetKeyUpCallback(func(k Key) { up = append(up, k) })

	w.Resize(0, 600)
	w.Resize(1024, 768)
	w.Press(KeyW)
	w.Press(KeyUnknown)
	w.Release(KeyW)

	assert.Equal(t, [][2]int{{0, 600}, {1024, 768}}, sizes)
	assert.Equal(t, []Key{KeyW}, down)
	assert.Equal(t, []Key{KeyW}, up)
	width, height := w.Size()
	assert.Equal(t, 1024, width)
	assert.Equal(t, 768, height)
}

func TestOptions(t *testing.T) {
	w := NewHeadlessWindow(WithTitle("demo"), WithSize(0, 10), WithFrameLimit(50), WithCanvasID("view"))
	assert.Equal(t, "demo", w.Title())
	width, height := w.Size()
	assert.Equal(t, 800, width, "non-positive sizes keep the default")
	assert.Equal(t, 600, height)
	assert.Equal(t, 20*time.Millisecond, w.frameLimit)
	assert.Equal(t, "view", w.canvasID)

	w.SetFrameLimit(0)
	assert.Zero(t, w.limit())
}
