package refresh

import (
	"sync"
	"time"
)

const defaultLeadTime = 5 * time.Minute

// Scheduler arms a single one-shot timer that fires a refresh shortly
// before an access token expires. Arming replaces any pending timer, so at
// most one refresh is ever scheduled.
type Scheduler struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	leadTime   time.Duration
	nowFunc    func() time.Time
}

type SchedulerOption func(*Scheduler)

// WithLeadTime sets how long before expiry the refresh fires
func WithLeadTime(lead time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.leadTime = lead
	}
}

func WithNowFunc(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.nowFunc = now
	}
}

func NewScheduler(options ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		leadTime: defaultLeadTime,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Schedule cancels any pending timer and arms fire to run at exp minus the
// lead time. When that instant has already passed fire runs immediately on
// its own goroutine. It returns the delay that was armed.
func (s *Scheduler) Schedule(exp time.Time, fire func()) time.Duration {
	return s.ScheduleAt(exp.Add(-s.leadTime), fire)
}

// ScheduleAt is Schedule without the lead time: fire runs at the given instant.
func (s *Scheduler) ScheduleAt(at time.Time, fire func()) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	delay := at.Sub(s.nowFunc())
	if delay < 0 {
		delay = 0
	}

	s.generation++
	generation := s.generation
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if generation != s.generation {
			// Replaced or cancelled after the timer fired but before we got the lock.
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fire()
	})
	return delay
}

// Cancel disarms the pending timer, if any. Safe to call repeatedly.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Pending reports whether a refresh is armed and has not fired yet
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// LeadTime returns the configured lead time
func (s *Scheduler) LeadTime() time.Duration {
	return s.leadTime
}

func (s *Scheduler) stopLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
