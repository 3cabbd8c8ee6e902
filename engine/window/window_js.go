//go:build js && wasm

package window

import (
	"fmt"
	"syscall/js"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
)

// canvasWindow draws into an existing canvas element and runs frames from requestAnimationFrame.
type canvasWindow struct {
	parent *engineWindow
	canvas js.Value
	funcs  []listener
	done   chan struct{}
	closed bool
}

// listener is a registered DOM event handler.
type listener struct {
	target js.Value
	event  string
	fn     js.Func
}

// domKeys maps KeyboardEvent.code values the engine reacts to.
var domKeys = map[string]Key{
	"KeyW":       KeyW,
	"KeyA":       KeyA,
	"KeyS":       KeyS,
	"KeyD":       KeyD,
	"Space":      KeySpace,
	"ShiftLeft":  KeyLeftShift,
	"ArrowUp":    KeyUp,
	"ArrowDown":  KeyDown,
	"ArrowLeft":  KeyLeft,
	"ArrowRight": KeyRight,
	"Escape":     KeyEscape,
}

// newPlatformWindow finds the canvas, sizes its drawing buffer and listens for input and resizes.
func newPlatformWindow(w *engineWindow) (platformWindow, error) {
	doc := js.Global().Get("document")
	canvas := doc.Call("getElementById", w.canvasID)
	if canvas.IsNull() || canvas.IsUndefined() {
		return nil, fmt.Errorf("canvas #%s not found", w.canvasID)
	}
	doc.Set("title", w.title)
	canvas.Set("width", w.width)
	canvas.Set("height", w.height)

	cw := &canvasWindow{parent: w, canvas: canvas, done: make(chan struct{})}
	cw.listen(js.Global(), "keydown", func(e js.Value) {
		w.keyDown(domKeys[e.Get("code").String()])
	})
	cw.listen(js.Global(), "keyup", func(e js.Value) {
		w.keyUp(domKeys[e.Get("code").String()])
	})
	cw.listen(canvas, "wheel", func(e js.Value) {
		// DOM wheel deltas grow downward.
		w.scroll(float32(-e.Get("deltaY").Float() / 100))
	})
	cw.listen(canvas, "mousedown", func(e js.Value) {
		if e.Get("button").Int() == 0 {
			w.mouseButton(true)
		}
	})
	cw.listen(js.Global(), "mouseup", func(e js.Value) {
		if e.Get("button").Int() == 0 {
			w.mouseButton(false)
		}
	})
	cw.listen(canvas, "mousemove", func(e js.Value) {
		w.mouseMove(float32(e.Get("offsetX").Float()), float32(e.Get("offsetY").Float()))
	})
	cw.listen(js.Global(), "resize", func(js.Value) {
		width, height := canvas.Get("clientWidth").Int(), canvas.Get("clientHeight").Int()
		if width > 0 && height > 0 {
			canvas.Set("width", width)
			canvas.Set("height", height)
		}
		w.resized(width, height)
	})
	return cw, nil
}

func (c *canvasWindow) listen(target js.Value, event string, handler func(js.Value)) {
	fn := js.FuncOf(func(_ js.Value, args []js.Value) any {
		handler(args[0])
		return nil
	})
	target.Call("addEventListener", event, fn)
	c.funcs = append(c.funcs, listener{target: target, event: event, fn: fn})
}

func (c *canvasWindow) target() renderer.Target {
	return renderer.BrowserCanvasHandle{CanvasID: c.parent.canvasID}
}

func (c *canvasWindow) running() bool {
	return !c.closed
}

// loop schedules step on every animation frame and blocks until it returns false. The browser
// presents the canvas when each callback returns.
func (c *canvasWindow) loop(step func() bool) {
	var tick js.Func
	tick = js.FuncOf(func(js.Value, []js.Value) any {
		if c.closed || !step() {
			tick.Release()
			close(c.done)
			return nil
		}
		js.Global().Call("requestAnimationFrame", tick)
		return nil
	})
	js.Global().Call("requestAnimationFrame", tick)
	<-c.done
}

func (c *canvasWindow) close() error {
	if c.closed {
		return fmt.Errorf("window is already closed")
	}
	c.closed = true
	for _, l := range c.funcs {
		l.target.Call("removeEventListener", l.event, l.fn)
		l.fn.Release()
	}
	c.funcs = nil
	return nil
}
