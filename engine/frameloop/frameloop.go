package frameloop

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-gfx/engine/config"
	"github.com/Carmen-Shannon/oxy-gfx/engine/model"
	"github.com/Carmen-Shannon/oxy-gfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
)

// frameLoop is the implementation of the FrameLoop interface.
type frameLoop struct {
	mu *sync.Mutex

	ctx    renderer.GraphicsContext
	layers []*Layer
	state  State

	pendingResize *[2]int
	reloads       <-chan config.Config

	observers      []Observer
	profiler       *profiler.Profiler
	acquireTimeout time.Duration
}

// FrameLoop drives one GraphicsContext through the frame state machine. Every GPU mutation of a frame
// happens inside Tick, on the goroutine that calls it.
type FrameLoop interface {
	// State returns the current state. Between ticks it is always Idle.
	State() State

	// Observe registers a function called on every state transition.
	//
	// Parameters:
	//   - observer: the function to call with the old and the new state
	Observe(observer Observer)

	// AddLayer adds a camera and the models drawn with it. Layers are drawn in the order they are added.
	//
	// Parameters:
	//   - name: the layer name, used in labels and logs
	//   - cam: the camera
	//   - models: the models to draw; the loop does not take ownership
	//
	// Returns:
	//   - *Layer: the layer, to add more models to later
	//   - error: an error if a model's pipeline has no camera layout
	AddLayer(name string, cam camera.Camera, models ...model.Model) (*Layer, error)

	// Layers returns the layers in draw order.
	Layers() []*Layer

	// Resize queues a surface resize. Resizes queued between two ticks are coalesced and only the last
	// one is applied, in Idle at the start of the next tick. Zero dimensions are ignored by the surface
	// and the cameras.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// Tick runs one frame: apply pending resizes and reloads, update the cameras, acquire, record,
	// submit and present.
	//
	// An Outdated or Timeout acquire is retried once after reconfiguring the surface with its current
	// size; a second failure drops the frame. A lost surface is recreated and the frame dropped.
	//
	// Parameters:
	//   - dt: the time since the previous tick
	//
	// Returns:
	//   - error: nil when the frame was presented or dropped for a recreated surface; an
	//     *renderer.AcquireError when the frame was dropped after the retry; an *renderer.InitError
	//     when the surface could not be recreated; a *renderer.DeviceLostError when submission failed
	Tick(dt time.Duration) error

	// Release frees the camera uniforms of every layer.
	Release()
}

var _ FrameLoop = &frameLoop{}

// NewFrameLoop creates a frame loop for a GraphicsContext.
//
// Parameters:
//   - ctx: the GraphicsContext to drive
//   - options: variadic list of FrameLoopBuilderOption functions
//
// Returns:
//   - FrameLoop: the frame loop, in Idle
func NewFrameLoop(ctx renderer.GraphicsContext, options ...FrameLoopBuilderOption) FrameLoop {
	l := &frameLoop{
		mu:    &sync.Mutex{},
		ctx:   ctx,
		state: Idle,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *frameLoop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *frameLoop) Observe(observer Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, observer)
}

func (l *frameLoop) setState(to State) {
	l.mu.Lock()
	from := l.state
	l.state = to
	observers := l.observers
	l.mu.Unlock()

	if from == to {
		return
	}
	slog.Debug("[FrameLoop] transition", "from", from.String(), "to", to.String())
	for _, o := range observers {
		o(from, to)
	}
}

func (l *frameLoop) AddLayer(name string, cam camera.Camera, models ...model.Model) (*Layer, error) {
	layer := newLayer(l.ctx, name, cam)
	for _, m := range models {
		if err := layer.Add(m); err != nil {
			layer.release()
			return nil, err
		}
	}
	l.layers = append(l.layers, layer)
	return layer, nil
}

func (l *frameLoop) Layers() []*Layer {
	return l.layers
}

func (l *frameLoop) Resize(width, height int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pendingResize = &[2]int{width, height}
}

// applyPending runs in Idle: the last queued resize, then every queued config reload.
func (l *frameLoop) applyPending() error {
	l.mu.Lock()
	resize := l.pendingResize
	l.pendingResize = nil
	l.mu.Unlock()

	if resize != nil {
		w, h := resize[0], resize[1]
		if err := l.ctx.Resize(w, h); err != nil {
			return err
		}
		for _, layer := range l.layers {
			layer.resize(w, h)
		}
		if w > 0 && h > 0 {
			slog.Debug("[FrameLoop] surface resized", "width", w, "height", h)
		}
	}

	for l.reloads != nil {
		select {
		case c, ok := <-l.reloads:
			if !ok {
				l.reloads = nil
				continue
			}
			if err := l.ctx.SetPresentMode(c.PresentMode()); err != nil {
				return err
			}
			if err := l.ctx.SetClearColor(c.ClearColor()); err != nil {
				return err
			}
			l.acquireTimeout = time.Duration(c.Renderer.AcquireTimeout)
			slog.Info("[FrameLoop] config applied", "present_mode", c.Renderer.PresentMode)
		default:
			return nil
		}
	}
	return nil
}

func (l *frameLoop) Tick(dt time.Duration) error {
	if s := l.State(); s != Idle {
		return fmt.Errorf("tick while %s", s)
	}
	if err := l.applyPending(); err != nil {
		return err
	}
	for _, layer := range l.layers {
		if err := layer.update(dt); err != nil {
			return err
		}
	}

	start := time.Now()
	l.setState(Acquiring)
	frame, err := l.acquire()
	if err != nil {
		return l.acquireFailed(err, start)
	}

	l.setState(Recording)
	if err := l.record(frame); err != nil {
		l.ctx.Discard(frame)
		l.dropped(start)
		return err
	}

	if err := l.ctx.Submit(frame); err != nil {
		l.dropped(start)
		return err
	}
	l.setState(Submitted)

	if err := l.ctx.Present(frame); err != nil {
		l.dropped(start)
		return err
	}
	l.setState(Presented)
	l.report(profiler.Presented, start)
	l.setState(Idle)
	return nil
}

// acquire obtains a frame, reconfiguring the surface and retrying once on Outdated or Timeout.
func (l *frameLoop) acquire() (*renderer.FrameTarget, error) {
	frame, err := l.timedAcquire()
	var acquireErr *renderer.AcquireError
	if err == nil || !errors.As(err, &acquireErr) || !acquireErr.Retryable() {
		return frame, err
	}

	slog.Debug("[FrameLoop] acquire retry", "reason", acquireErr.Kind.String())
	if l.profiler != nil {
		l.profiler.Retry()
	}
	w, h := l.ctx.Size()
	if err := l.ctx.Resize(w, h); err != nil {
		return nil, errors.Join(acquireErr, err)
	}
	return l.timedAcquire()
}

func (l *frameLoop) timedAcquire() (*renderer.FrameTarget, error) {
	start := time.Now()
	frame, err := l.ctx.AcquireFrame()
	if took := time.Since(start); l.acquireTimeout > 0 && took > l.acquireTimeout {
		slog.Warn("[FrameLoop] slow acquire", "took", took, "limit", l.acquireTimeout)
	}
	return frame, err
}

// acquireFailed handles an acquire that did not recover: a lost surface is recreated, anything else
// drops the frame.
func (l *frameLoop) acquireFailed(err error, start time.Time) error {
	var acquireErr *renderer.AcquireError
	if !errors.As(err, &acquireErr) || acquireErr.Kind != renderer.SurfaceLost {
		slog.Warn("[FrameLoop] frame dropped", "error", err)
		l.dropped(start)
		return err
	}

	l.setState(Reinitializing)
	if rerr := l.ctx.Reinitialize(); rerr != nil {
		slog.Error("[FrameLoop] surface recreation failed", "error", rerr)
		l.setState(Idle)
		return rerr
	}
	slog.Info("[FrameLoop] surface recreated after loss")
	l.report(profiler.Reinitialized, start)
	l.setState(Idle)
	return nil
}

// record flushes the staged uniforms and issues every layer's draws.
func (l *frameLoop) record(frame *renderer.FrameTarget) error {
	for _, layer := range l.layers {
		if err := layer.flush(); err != nil {
			return err
		}
	}
	for _, layer := range l.layers {
		if err := layer.record(frame); err != nil {
			return fmt.Errorf("layer %s: %w", layer.name, err)
		}
	}
	return nil
}

func (l *frameLoop) dropped(start time.Time) {
	l.report(profiler.Dropped, start)
	l.setState(Idle)
}

func (l *frameLoop) report(outcome profiler.Outcome, start time.Time) {
	if l.profiler != nil {
		l.profiler.Frame(outcome, time.Since(start))
	}
}

func (l *frameLoop) Release() {
	for _, layer := range l.layers {
		layer.release()
	}
	l.layers = nil
}
