package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/adspredia/adspredia-api/internal/pkg/clock"
)

// Scheduler runs at most one pending callback per key.
type Scheduler struct {
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool
}

type entry struct {
	timer clock.Timer
}

// New creates a scheduler on top of the given clock
func New(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.Real()
	}
	return &Scheduler{
		clock:   c,
		entries: make(map[string]*entry),
	}
}

// Schedule runs fn once after delay. An existing schedule for key is replaced.
// It reports false once the scheduler has been stopped.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if prev, ok := s.entries[key]; ok {
		prev.timer.Stop()
	}

	e := &entry{}
	s.entries[key] = e
	e.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.entries[key] != e {
			s.mu.Unlock()
			return
		}
		delete(s.entries, key)
		s.mu.Unlock()
		fn()
	})
	return true
}

// Cancel drops the pending callback for key
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	return e.timer.Stop()
}

// Pending returns the keys that still have a callback scheduled, sorted
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stop cancels every pending callback and rejects new ones
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, key)
	}
	s.stopped = true
}
