// Package schedule runs per-member countdown timers with periodic warning
// ticks and a single terminal expiry callback.
package schedule

import (
	"sync"
	"time"
)

// Callbacks are invoked from the timer's own goroutine. OnTick fires once
// per interval while time remains; OnExpire fires exactly once when the
// countdown reaches zero.
type Callbacks struct {
	OnTick   func(remaining int)
	OnExpire func()
}

// Scheduler manages at most one live countdown per member. Starting a new
// countdown for a member supersedes any prior one: the superseded timer
// checks ownership under the scheduler lock before each callback and exits
// once it observes the swap. A callback that passed that check just as
// Start (or Cancel) returned may still run to completion, so callers that
// must fence off stale callbacks keep their own guard, such as a
// generation counter bumped under the caller's lock.
//
// Ticks are a notification convenience, not the source of truth: remaining
// time is always derived from the reference epoch and wall clock, so a
// delayed tick never desynchronizes the expiry decision from the reported
// remaining time.
type Scheduler struct {
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	timers map[int64]*timer
}

type timer struct {
	memberID int64
	epoch    time.Time
	seconds  int
	cb       Callbacks
	stop     chan struct{}
	lastTick int
}

// New creates a scheduler with the production 1-second cadence.
func New() *Scheduler {
	return NewWithInterval(time.Second)
}

// NewWithInterval creates a scheduler with a custom tick interval. Tests
// use short intervals to simulate seconds without waiting for them.
func NewWithInterval(interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		now:      time.Now,
		timers:   make(map[int64]*timer),
	}
}

// Start begins a countdown of the given number of intervals for a member,
// cancelling any running countdown for that member first.
func (s *Scheduler) Start(memberID int64, seconds int, cb Callbacks) {
	t := &timer{
		memberID: memberID,
		epoch:    s.now(),
		seconds:  seconds,
		cb:       cb,
		stop:     make(chan struct{}),
	}

	s.mu.Lock()
	if old, ok := s.timers[memberID]; ok {
		close(old.stop)
	}
	s.timers[memberID] = t
	s.mu.Unlock()

	go s.run(t)
}

// StartFor begins a countdown spanning the given duration, rounded down to
// whole intervals (at least one). Returns the number of intervals.
func (s *Scheduler) StartFor(memberID int64, d time.Duration, cb Callbacks) int {
	seconds := int(d / s.interval)
	if seconds < 1 {
		seconds = 1
	}
	s.Start(memberID, seconds, cb)
	return seconds
}

// Cancel stops the member's countdown if one is running. Idempotent.
func (s *Scheduler) Cancel(memberID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[memberID]; ok {
		close(t.stop)
		delete(s.timers, memberID)
	}
}

// Remaining reports the whole intervals left on a member's countdown,
// derived from the reference epoch rather than from delivered ticks.
func (s *Scheduler) Remaining(memberID int64) (int, bool) {
	s.mu.Lock()
	t, ok := s.timers[memberID]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	return t.remaining(s.now(), s.interval), true
}

// Shutdown cancels every running countdown.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		close(t.stop)
		delete(s.timers, id)
	}
}

func (t *timer) remaining(now time.Time, interval time.Duration) int {
	elapsed := int(now.Sub(t.epoch) / interval)
	if elapsed >= t.seconds {
		return 0
	}
	return t.seconds - elapsed
}

func (s *Scheduler) run(t *timer) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if !s.owns(t) {
				return
			}
			remaining := t.remaining(s.now(), s.interval)
			if remaining > 0 {
				// Skip duplicate values when a tick arrives early.
				if remaining != t.lastTick && t.cb.OnTick != nil {
					t.lastTick = remaining
					t.cb.OnTick(remaining)
				}
				continue
			}
			s.remove(t)
			if t.cb.OnExpire != nil {
				t.cb.OnExpire()
			}
			return
		}
	}
}

// owns reports whether t is still the member's current timer. Start and
// Cancel swap the map entry under the lock before returning, so a
// superseded timer observes the change on its next tick.
func (s *Scheduler) owns(t *timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[t.memberID] == t
}

func (s *Scheduler) remove(t *timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timers[t.memberID] == t {
		delete(s.timers, t.memberID)
	}
}
