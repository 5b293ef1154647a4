// Package stopwatch measures elapsed wall-clock time using the monotonic
// clock. It backs the latency histograms recorded by the player and search
// subsystems.
package stopwatch

import (
	"sync"
	"time"
)

// Stopwatch measures the time between Start and Stop. The zero value is a
// stopwatch that has never been started. A Stopwatch is safe for concurrent
// use.
type Stopwatch struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	end     time.Time
	running bool
}

// New returns an idle stopwatch.
func New() *Stopwatch {
	return &Stopwatch{}
}

// Start returns a stopwatch that is already running.
func Start() *Stopwatch {
	sw := New()
	sw.Start()
	return sw
}

// Start (re)starts the stopwatch, discarding any previous measurement.
func (s *Stopwatch) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = s.clock()
	s.end = time.Time{}
	s.running = true
}

// Stop freezes the measurement and returns the elapsed time. Stopping an
// idle or already stopped stopwatch returns the last measurement.
func (s *Stopwatch) Stop() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.end = s.clock()
		s.running = false
	}
	return s.elapsedLocked()
}

// Elapsed returns the time since Start while running, the measured interval
// once stopped, and zero if the stopwatch was never started.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

// Running reports whether the stopwatch is currently measuring.
func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Stopwatch) elapsedLocked() time.Duration {
	switch {
	case s.start.IsZero():
		return 0
	case s.running:
		return s.clock().Sub(s.start)
	default:
		return s.end.Sub(s.start)
	}
}

func (s *Stopwatch) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Measure runs fn and returns how long it took.
func Measure(fn func()) time.Duration {
	sw := Start()
	fn()
	return sw.Stop()
}
