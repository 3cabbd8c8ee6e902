package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Outcome is how a frame left the frame loop.
type Outcome int

const (
	// Presented frames reached the compositor.
	Presented Outcome = iota
	// Dropped frames were discarded after an unrecovered acquire error or a failed recording.
	Dropped
	// Reinitialized frames were dropped while the surface was recreated.
	Reinitialized
)

// Stats is one interval's worth of frame statistics.
type Stats struct {
	Interval      time.Duration
	Presented     int
	Dropped       int
	Reinitialized int
	Retries       int
	// FPS counts presented frames only.
	FPS float64
	// AvgFrame is the mean time spent between acquire and the end of the frame.
	AvgFrame time.Duration
	MaxFrame time.Duration
	HeapMB   float64
	GCCount  uint32
}

// Profiler aggregates frame outcomes and timings and logs them once per interval.
type Profiler struct {
	mu *sync.Mutex

	interval time.Duration
	now      func() time.Time
	sink     func(Stats)

	start     time.Time
	current   Stats
	frameTime time.Duration
	frames    int
	memStats  runtime.MemStats
	readMem   bool
}

// NewProfiler creates a Profiler that reports every second through slog at Info.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:       &sync.Mutex{},
		interval: time.Second,
		now:      time.Now,
		sink:     logStats,
		readMem:  true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.start = p.now()
	return p
}

// Retry records an acquire that was retried after an Outdated or Timeout error.
func (p *Profiler) Retry() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current.Retries++
}

// Frame records the outcome and duration of one frame and reports the interval's statistics once the
// interval has elapsed.
//
// Parameters:
//   - outcome: how the frame ended
//   - took: the time from acquire to the end of the frame
//
// Returns:
//   - bool: true if stats were reported by this call
func (p *Profiler) Frame(outcome Outcome, took time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch outcome {
	case Presented:
		p.current.Presented++
	case Dropped:
		p.current.Dropped++
	case Reinitialized:
		p.current.Reinitialized++
	}
	p.frames++
	p.frameTime += took
	p.current.MaxFrame = max(p.current.MaxFrame, took)

	now := p.now()
	elapsed := now.Sub(p.start)
	if elapsed < p.interval {
		return false
	}

	s := p.current
	s.Interval = elapsed
	s.FPS = float64(s.Presented) / elapsed.Seconds()
	s.AvgFrame = p.frameTime / time.Duration(p.frames)
	if p.readMem {
		runtime.ReadMemStats(&p.memStats)
		s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
		s.GCCount = p.memStats.NumGC
	}

	p.current = Stats{}
	p.frameTime = 0
	p.frames = 0
	p.start = now
	p.sink(s)
	return true
}

func logStats(s Stats) {
	slog.Info("[Profiler] frame stats",
		"fps", s.FPS,
		"presented", s.Presented,
		"dropped", s.Dropped,
		"reinitialized", s.Reinitialized,
		"retries", s.Retries,
		"avg_frame", s.AvgFrame,
		"max_frame", s.MaxFrame,
		"heap_mb", s.HeapMB,
		"gc", s.GCCount,
	)
}
