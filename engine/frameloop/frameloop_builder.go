package frameloop

import (
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/config"
	"github.com/Carmen-Shannon/oxy-gfx/engine/profiler"
)

// FrameLoopBuilderOption is a functional option for configuring a FrameLoop.
type FrameLoopBuilderOption func(*frameLoop)

// WithObserver registers a state transition observer.
//
// Parameters:
//   - observer: the function to call with the old and the new state
//
// Returns:
//   - FrameLoopBuilderOption: a function that applies the observer option to a frame loop
func WithObserver(observer Observer) FrameLoopBuilderOption {
	return func(l *frameLoop) {
		l.observers = append(l.observers, observer)
	}
}

// WithProfiler reports every frame's outcome and duration to a profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - FrameLoopBuilderOption: a function that applies the profiler option to a frame loop
func WithProfiler(p *profiler.Profiler) FrameLoopBuilderOption {
	return func(l *frameLoop) {
		l.profiler = p
	}
}

// WithAcquireTimeout sets how long an acquire may take before it is logged as slow.
func WithAcquireTimeout(d time.Duration) FrameLoopBuilderOption {
	return func(l *frameLoop) {
		l.acquireTimeout = d
	}
}

// WithReloads applies configurations received on a channel between frames: present mode, clear
// color and acquire timeout.
//
// Parameters:
//   - reloads: the channel, usually from config.Watch
//
// Returns:
//   - FrameLoopBuilderOption: a function that applies the reload option to a frame loop
func WithReloads(reloads <-chan config.Config) FrameLoopBuilderOption {
	return func(l *frameLoop) {
		l.reloads = reloads
	}
}
