package session

import (
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

const (
	DefaultLeadTime       = 5 * time.Minute
	DefaultFallbackTTL    = 5 * time.Minute
	DefaultRequestTimeout = 15 * time.Second
)

type Option func(*Session)

func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithLeadTime sets how long before expiry the credential is renewed.
func WithLeadTime(d time.Duration) Option {
	return func(s *Session) { s.lead = d }
}

// WithFallbackTTL sets the lifetime assumed for a credential whose expiry
// can be learned neither from the token nor from expires_in.
func WithFallbackTTL(d time.Duration) Option {
	return func(s *Session) { s.fallbackTTL = d }
}

// WithRequestTimeout bounds refresh and profile exchanges, which run
// detached from the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) { s.requestTimeout = d }
}

// WithMinRenewalInterval sets the minimum spacing between two scheduled
// renewals.
func WithMinRenewalInterval(d time.Duration) Option {
	return func(s *Session) { s.minRenewalInterval = d }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithEventBuffer sets the channel capacity of each subscriber.
func WithEventBuffer(n int) Option {
	return func(s *Session) { s.eventBuffer = n }
}
