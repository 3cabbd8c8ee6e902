package profiler

import "time"

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are reported. Non-positive values keep the default.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option to a profiler
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithSink replaces slog reporting, e.g. to collect statistics in a test or an overlay.
func WithSink(sink func(Stats)) ProfilerBuilderOption {
	return func(p *Profiler) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithMemStats enables or disables reading runtime memory statistics at every report.
func WithMemStats(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.readMem = enabled
	}
}
