package profiler

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Profiler tracks frame rate, animation update cost and memory statistics.
// Outputs stats to the log at a configurable interval. A Profiler is not safe for concurrent use.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	updateCount int
	updateTotal time.Duration
	updateMax   time.Duration

	last   Stats
	now    func() time.Time
	logger logrus.FieldLogger
}

// Stats is one logged reporting window.
type Stats struct {
	// FPS is the tick rate over the window.
	FPS float64

	// Updates is the number of animation updates observed.
	Updates int

	// AvgUpdate is the mean observed update duration.
	AvgUpdate time.Duration

	// MaxUpdate is the longest observed update duration.
	MaxUpdate time.Duration

	// HeapMB is the live heap size in MiB.
	HeapMB float64
}

// ProfilerOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are logged.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithLogger sets the logger statistics are written to.
func WithLogger(logger logrus.FieldLogger) ProfilerOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock replaces time.Now, for deterministic reporting windows.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: a variadic list of ProfilerOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		now:            time.Now,
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Observe records the wall time one animation update took.
//
// Parameters:
//   - d: the update duration
func (p *Profiler) Observe(d time.Duration) {
	p.updateCount++
	p.updateTotal += d
	p.updateMax = max(p.updateMax, d)
}

// Time runs fn and records its duration with Observe.
//
// Parameters:
//   - fn: the work to measure
//
// Returns:
//   - time.Duration: how long fn took
func (p *Profiler) Time(fn func()) time.Duration {
	start := p.now()
	fn()
	d := p.now().Sub(start)
	p.Observe(d)
	return d
}

// Last returns the statistics of the most recently logged window.
func (p *Profiler) Last() Stats {
	return p.last
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, animation update cost, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	// TotalAlloc only grows, so its delta is the churn over the window.
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	var avg time.Duration
	if p.updateCount > 0 {
		avg = p.updateTotal / time.Duration(p.updateCount)
	}
	p.last = Stats{
		FPS:       fps,
		Updates:   p.updateCount,
		AvgUpdate: avg,
		MaxUpdate: p.updateMax,
		HeapMB:    allocMB,
	}

	p.logger.WithFields(logrus.Fields{
		"fps":           fps,
		"updates":       p.updateCount,
		"avg_update_us": avg.Microseconds(),
		"max_update_us": p.updateMax.Microseconds(),
		"heap_mb":       allocMB,
		"alloc_rate_mb": allocRateMB,
		"gc":            gcCount,
		"gc_last_us":    lastPauseUs,
		"gc_max_us":     maxPauseUs,
		"sys_mb":        sysMB,
	}).Info("[Profiler] frame stats")

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.updateCount = 0
	p.updateTotal = 0
	p.updateMax = 0
	return true
}
