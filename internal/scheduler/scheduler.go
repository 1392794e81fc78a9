// Package scheduler coalesces bursts of recomputation requests into a single
// deferred run.
package scheduler

import (
	"sync"
	"time"
)

// DefaultDelay is the debounce window used by New when delay is not positive.
const DefaultDelay = 150 * time.Millisecond

type task struct {
	key string
	fn  func()
}

// Scheduler runs registered tasks once after a quiet period. Registering a
// key that is already pending replaces its function but keeps its place in
// the run order.
type Scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	pending []task
	index   map[string]int
	timer   *time.Timer
	gen     uint64
}

// New returns a scheduler that waits delay after the last Schedule call.
func New(delay time.Duration) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{delay: delay, index: make(map[string]int)}
}

// Schedule registers fn under key and restarts the debounce timer.
func (s *Scheduler) Schedule(key string, fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[key]; ok {
		s.pending[i].fn = fn
	} else {
		s.index[key] = len(s.pending)
		s.pending = append(s.pending, task{key: key, fn: fn})
	}

	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// Pending reports how many distinct keys are waiting.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Cancel drops all pending tasks without running them.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Flush runs every pending task now, in registration order, on the calling
// goroutine.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	tasks := s.reset()
	s.mu.Unlock()
	run(tasks)
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		// superseded by a later Schedule, Cancel or Flush
		s.mu.Unlock()
		return
	}
	tasks := s.reset()
	s.mu.Unlock()
	run(tasks)
}

// reset must be called with mu held.
func (s *Scheduler) reset() []task {
	tasks := s.pending
	s.pending = nil
	s.index = make(map[string]int)
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return tasks
}

func run(tasks []task) {
	for _, t := range tasks {
		t.fn()
	}
}
