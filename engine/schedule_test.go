package engine

import (
	"testing"
	"time"
)

// TestManualSchedulerOrder verifies continuations run by due time, then by
// scheduling order.
func TestManualSchedulerOrder(t *testing.T) {
	s := NewManualScheduler()
	var got []string
	s.After(2*time.Second, func() { got = append(got, "c") })
	s.After(time.Second, func() { got = append(got, "a") })
	s.After(time.Second, func() { got = append(got, "b") })

	if len(got) != 0 {
		t.Fatal("After must not run anything synchronously")
	}
	s.Advance(time.Second)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("after 1s: %v, want [a b]", got)
	}
	if s.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", s.Pending())
	}
	s.Advance(time.Second)
	if len(got) != 3 || got[2] != "c" {
		t.Fatalf("after 2s: %v", got)
	}
	if s.Now() != 2*time.Second {
		t.Errorf("Now = %v, want 2s", s.Now())
	}
}

// TestManualSchedulerNested verifies work scheduled from a continuation
// runs inside the same Advance window when it falls due.
func TestManualSchedulerNested(t *testing.T) {
	s := NewManualScheduler()
	var got []time.Duration
	s.After(100*time.Millisecond, func() {
		got = append(got, s.Now())
		s.After(100*time.Millisecond, func() { got = append(got, s.Now()) })
		s.After(time.Second, func() { got = append(got, s.Now()) })
	})
	s.Advance(500 * time.Millisecond)
	if len(got) != 2 || got[0] != 100*time.Millisecond || got[1] != 200*time.Millisecond {
		t.Fatalf("got %v, want [100ms 200ms]", got)
	}
	if n := s.RunUntilIdle(10); n != 1 {
		t.Fatalf("RunUntilIdle ran %d, want 1", n)
	}
	if len(got) != 3 || got[2] != 1100*time.Millisecond {
		t.Errorf("got %v, want the last at 1.1s", got)
	}
}

func TestManualSchedulerLimit(t *testing.T) {
	s := NewManualScheduler()
	var loop func()
	loop = func() { s.After(time.Millisecond, loop) }
	s.After(0, loop)
	if n := s.RunUntilIdle(25); n != 25 {
		t.Fatalf("RunUntilIdle = %d, want 25", n)
	}
}
