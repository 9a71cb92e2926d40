// Package renewal arms a single timer that triggers credential renewal
// shortly before expiry.
package renewal

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

const DefaultMinInterval = 10 * time.Second

// Func is invoked when the timer fires. Its error is only logged; the
// renewal itself is responsible for handling failure.
type Func func(ctx context.Context) error

// Scheduler owns at most one pending timer.
type Scheduler struct {
	lead        time.Duration
	minInterval time.Duration
	fn          Func
	now         func() time.Time
	log         logging.Logger

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	lastFire time.Time
	fireAt   time.Time
}

type Option func(*Scheduler)

func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithMinInterval sets the minimum spacing between two consecutive fires.
// Zero disables the guard.
func WithMinInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.minInterval = d }
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New returns a scheduler that calls fn lead before each armed expiry.
func New(lead time.Duration, fn Func, opts ...Option) *Scheduler {
	s := &Scheduler{
		lead:        lead,
		minInterval: DefaultMinInterval,
		fn:          fn,
		now:         time.Now,
		log:         logging.NewDiscard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Arm replaces any pending timer with one firing at expiresAt minus the lead
// time. A fire time already in the past fires immediately, subject to the
// minimum interval since the previous fire.
func (s *Scheduler) Arm(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	now := s.now()
	fireAt := expiresAt.Add(-s.lead)
	if !s.lastFire.IsZero() && s.minInterval > 0 {
		if earliest := s.lastFire.Add(s.minInterval); fireAt.Before(earliest) {
			fireAt = earliest
		}
	}

	delay := fireAt.Sub(now)
	if delay < 0 {
		delay = 0
	}

	s.seq++
	seq := s.seq
	s.fireAt = now.Add(delay)
	s.timer = time.AfterFunc(delay, func() { s.fire(seq) })

	s.log.Debug(context.Background(), "renewal armed", "fire_at", s.fireAt, "delay", delay)
}

// Cancel stops the pending timer, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Pending reports whether a timer is armed and when it fires.
func (s *Scheduler) Pending() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.fireAt, true
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// a callback already running for the old seq becomes a no-op
	s.seq++
	s.fireAt = time.Time{}
}

func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.fireAt = time.Time{}
	s.lastFire = s.now()
	s.mu.Unlock()

	ctx := context.Background()
	s.log.Debug(ctx, "renewal fired")
	if err := s.fn(ctx); err != nil {
		s.log.Warn(ctx, "scheduled renewal failed", "error", err)
	}
}
