// internal/game/scheduler.go
package game

import (
	"sync"
	"time"
)

// TimerScheduler runs engine continuations on wall-clock timers. Each
// continuation runs with lock held, so it is serialised with session commands.
type TimerScheduler struct {
	lock sync.Locker

	mu     sync.Mutex
	timers map[uint64]*time.Timer
	next   uint64
	closed bool
}

// NewTimerScheduler returns a scheduler that takes lock around every continuation.
func NewTimerScheduler(lock sync.Locker) *TimerScheduler {
	return &TimerScheduler{lock: lock, timers: make(map[uint64]*time.Timer)}
}

// After schedules fn to run after d. It is normally called with lock held,
// so fn cannot start before the caller releases it.
func (s *TimerScheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.next++
	id := s.next
	s.timers[id] = time.AfterFunc(d, func() {
		s.lock.Lock()
		defer s.lock.Unlock()

		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if !live {
			return
		}
		fn()
	})
}

// Pending returns the number of timers that have not fired yet.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending timer and refuses new ones.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
