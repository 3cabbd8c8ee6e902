package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/camera"
	"github.com/Carmen-Shannon/oxy-gfx/engine/config"
	"github.com/Carmen-Shannon/oxy-gfx/engine/frameloop"
	"github.com/Carmen-Shannon/oxy-gfx/engine/loader"
	"github.com/Carmen-Shannon/oxy-gfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gfx/engine/scene"
	"github.com/Carmen-Shannon/oxy-gfx/engine/window"
)

// ErrRunning is returned by Run while the engine is already running.
var ErrRunning = errors.New("engine is already running")

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	config     config.Config
	configPath string

	profilingEnabled bool
	profilerOptions  []profiler.ProfilerBuilderOption
	observer         frameloop.Observer
	frameCallback    func(s scene.Scene, dt time.Duration)

	running bool
	quit    bool
}

// Engine renders an AssetBundle into a window. Everything GPU related happens on the goroutine that
// calls Run, driven by the window's frame callback.
type Engine interface {
	// Config returns the configuration the next Run starts with.
	Config() config.Config

	// Run initializes a GraphicsContext on the window's target, uploads the bundle and drives the frame
	// loop until the window closes, Quit is called or a fatal error occurs. Acquire errors the frame
	// loop could not recover drop their frame and the loop goes on.
	//
	// Parameters:
	//   - bundle: the decoded assets
	//   - target: the window to render into
	//
	// Returns:
	//   - error: an InitError, UploadError or DeviceLostError, or an error wrapping a recovered panic
	Run(bundle *loader.AssetBundle, target window.Window) error

	// Quit stops Run after the current frame. Safe to call from any goroutine and more than once.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the default configuration.
//
// Parameters:
//   - options: functional options for engine configuration (config, profiling, callbacks)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:     &sync.Mutex{},
		config: config.Default(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Run renders bundle into target with the configuration named by the OXY_GFX_CONFIG environment
// variable, watching that file for changes. Without the variable the defaults are used.
//
// Parameters:
//   - bundle: the decoded assets
//   - target: the window to render into
//
// Returns:
//   - error: the config load error or the error returned by Engine.Run
func Run(bundle *loader.AssetBundle, target window.Window) error {
	cfg, path, err := config.FromEnv()
	if err != nil {
		return err
	}
	return NewEngine(WithConfig(cfg), WithConfigWatch(path)).Run(bundle, target)
}

func (e *engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

func (e *engine) Quit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quit = true
}

func (e *engine) quitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quit
}

func (e *engine) Run(bundle *loader.AssetBundle, target window.Window) (err error) {
	if target == nil {
		return errors.New("engine: no window")
	}
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunning
	}
	e.running, e.quit = true, false
	cfg := e.config
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Engine] recovered from panic", "panic", r)
			err = fmt.Errorf("engine: panic: %v", r)
		}
	}()

	slog.SetLogLoggerLevel(logLevel(cfg))
	target.SetFrameLimit(cfg.Renderer.FrameLimit)

	width, height := target.Size()
	ctx, err := renderer.Initialize(target.Target(), width, height, cfg.RendererOptions()...)
	if err != nil {
		return err
	}
	defer ctx.Teardown()
	slog.Info("[Engine] graphics context ready", "backend", ctx.Kind(), "width", width, "height", height)

	s, err := scene.NewScene(ctx, bundle)
	if err != nil {
		return err
	}
	defer s.Release()

	controller := camera.NewCameraController()
	world := camera.NewPerspectiveCamera(width, height, camera.WithController(controller))
	hud := camera.NewOrthographicCamera(width, height)

	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []frameloop.FrameLoopBuilderOption{
		frameloop.WithAcquireTimeout(time.Duration(cfg.Renderer.AcquireTimeout)),
		frameloop.WithReloads(e.watch(watchCtx, target)),
	}
	if cfg.Profiling || e.profilingEnabled {
		opts = append(opts, frameloop.WithProfiler(profiler.NewProfiler(e.profilerOptions...)))
	}
	if e.observer != nil {
		opts = append(opts, frameloop.WithObserver(e.observer))
	}
	loop := frameloop.NewFrameLoop(ctx, opts...)
	defer loop.Release()

	if err := s.Attach(loop, world, hud); err != nil {
		return err
	}
	bindInput(target, loop, controller)

	target.Run(func(dt time.Duration) bool {
		if e.quitting() {
			return false
		}
		if e.frameCallback != nil {
			e.frameCallback(s, dt)
		}
		tickErr := loop.Tick(dt)
		if tickErr == nil {
			return true
		}
		var acquireErr *renderer.AcquireError
		if errors.As(tickErr, &acquireErr) {
			slog.Debug("[Engine] frame dropped", "error", tickErr)
			return true
		}
		slog.Error("[Engine] frame loop stopped", "error", tickErr)
		err = tickErr
		return false
	})
	return err
}

// watch starts the config file watcher and relays reloads to the frame loop. It returns nil when no
// file is configured or the watcher cannot start.
func (e *engine) watch(ctx context.Context, target window.Window) <-chan config.Config {
	if e.configPath == "" {
		return nil
	}
	updates, err := config.Watch(ctx, e.configPath)
	if err != nil {
		slog.Warn("[Engine] config reload disabled", "path", e.configPath, "error", err)
		return nil
	}
	return e.relay(updates, target)
}

// relay applies the parts of a reload that live outside the frame loop and forwards the newest
// config, dropping one the loop has not picked up yet. The returned channel closes with updates.
func (e *engine) relay(updates <-chan config.Config, target window.Window) <-chan config.Config {
	reloads := make(chan config.Config, 1)
	go func() {
		defer close(reloads)
		for c := range updates {
			e.mu.Lock()
			e.config = c
			e.mu.Unlock()

			slog.SetLogLoggerLevel(logLevel(c))
			target.SetFrameLimit(c.Renderer.FrameLimit)
			select {
			case <-reloads:
			default:
			}
			reloads <- c
		}
	}()
	return reloads
}

// bindInput routes window input to the frame loop and the world camera's controller.
func bindInput(target window.Window, loop frameloop.FrameLoop, controller camera.CameraController) {
	target.SetResizeCallback(loop.Resize)

	target.SetKeyDownCallback(func(k window.Key) {
		if dir, ok := keyDirections[k]; ok {
			controller.Press(dir, true)
		}
	})
	target.SetKeyUpCallback(func(k window.Key) {
		if dir, ok := keyDirections[k]; ok {
			controller.Press(dir, false)
		}
	})
	target.SetScrollCallback(controller.Scroll)

	var dragging, seen bool
	var lastX, lastY float32
	target.SetMouseButtonCallback(func(pressed bool) {
		dragging = pressed
		seen = false
	})
	target.SetMouseMoveCallback(func(x, y float32) {
		if dragging && seen {
			controller.Rotate(x-lastX, y-lastY)
		}
		lastX, lastY, seen = x, y, true
	})
}

var keyDirections = map[window.Key]camera.Direction{
	window.KeyW:         camera.MoveForward,
	window.KeyUp:        camera.MoveForward,
	window.KeyS:         camera.MoveBackward,
	window.KeyDown:      camera.MoveBackward,
	window.KeyA:         camera.MoveLeft,
	window.KeyLeft:      camera.MoveLeft,
	window.KeyD:         camera.MoveRight,
	window.KeyRight:     camera.MoveRight,
	window.KeySpace:     camera.MoveUp,
	window.KeyLeftShift: camera.MoveDown,
}
