package engine

import (
	"math"
	"sort"
	"time"
)

// Scheduler defers continuations. The engine only relies on ordering:
// a continuation runs after the call that scheduled it has returned.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type pendingCall struct {
	at  time.Duration
	seq uint64
	fn  func()
}

// ManualScheduler is a logical clock. Nothing runs until Advance or RunUntilIdle is called.
// It is not safe for concurrent use.
type ManualScheduler struct {
	now     time.Duration
	seq     uint64
	pending []pendingCall
}

// NewManualScheduler returns a scheduler at logical time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After queues fn to run d after the current logical time.
func (s *ManualScheduler) After(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	s.seq++
	s.pending = append(s.pending, pendingCall{at: s.now + d, seq: s.seq, fn: fn})
}

// Now returns the logical time.
func (s *ManualScheduler) Now() time.Duration { return s.now }

// Pending returns the number of queued continuations.
func (s *ManualScheduler) Pending() int { return len(s.pending) }

// Advance moves the clock forward by d, running every continuation due by then
// in (time, scheduling order) order. Continuations scheduled while running are
// honoured if they fall inside the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	until := s.now + d
	for s.runNext(until) {
	}
	s.now = until
}

// RunUntilIdle runs continuations until none remain or limit have run.
// It returns the number that ran.
func (s *ManualScheduler) RunUntilIdle(limit int) int {
	ran := 0
	for ran < limit && s.runNext(time.Duration(math.MaxInt64)) {
		ran++
	}
	return ran
}

func (s *ManualScheduler) runNext(until time.Duration) bool {
	if len(s.pending) == 0 {
		return false
	}
	sort.SliceStable(s.pending, func(i, j int) bool {
		if s.pending[i].at != s.pending[j].at {
			return s.pending[i].at < s.pending[j].at
		}
		return s.pending[i].seq < s.pending[j].seq
	})
	next := s.pending[0]
	if next.at > until {
		return false
	}
	s.pending = s.pending[1:]
	if next.at > s.now {
		s.now = next.at
	}
	next.fn()
	return true
}
