package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/config"
	"github.com/Carmen-Shannon/oxy-gfx/engine/frameloop"
	"github.com/Carmen-Shannon/oxy-gfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gfx/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the configuration Run starts with.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.config = cfg
	}
}

// WithConfigWatch watches a config file while Run is active. Present mode, clear color, acquire
// timeout, frame limit and log level follow the file; the rest takes effect on the next Run.
// An empty path disables watching.
//
// Parameters:
//   - path: the config file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigWatch(path string) EngineBuilderOption {
	return func(e *engine) {
		e.configPath = path
	}
}

// WithProfiling enables or disables frame statistics regardless of the config's profiling flag.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfilerOptions configures the profiler created when profiling is enabled.
func WithProfilerOptions(options ...profiler.ProfilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.profilerOptions = append(e.profilerOptions, options...)
	}
}

// WithObserver receives every frame loop state transition.
func WithObserver(observer frameloop.Observer) EngineBuilderOption {
	return func(e *engine) {
		e.observer = observer
	}
}

// WithFrameCallback registers the function called before each frame, on the render goroutine.
// Use it to move models or script the scene.
//
// Parameters:
//   - callback: function receiving the uploaded scene and the time since the previous frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameCallback(callback func(s scene.Scene, dt time.Duration)) EngineBuilderOption {
	return func(e *engine) {
		e.frameCallback = callback
	}
}
