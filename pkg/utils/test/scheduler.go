// Package testutils holds fakes shared by the package test suites.
package testutils

import (
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/worldstate/pkg/settings"
)

// ManualScheduler is a settings.Scheduler whose clock only moves when
// Advance is called.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler creates a ManualScheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc registers f to run once the clock has advanced by d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) settings.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward by d and runs every timer that came due,
// in due order. Callbacks run on the calling goroutine.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d

	var due []*manualTimer
	kept := s.timers[:0]
	for _, t := range s.timers {
		switch {
		case t.stopped:
		case t.at <= s.now:
			t.fired = true
			due = append(due, t)
		default:
			kept = append(kept, t)
		}
	}
	s.timers = kept
	s.mu.Unlock()

	slices.SortStableFunc(due, func(a, b *manualTimer) int {
		return int(a.at - b.at)
	})
	for _, t := range due {
		t.f()
	}
}

// Active returns the number of timers that are neither stopped nor fired.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
