package session

import "context"

// Reason says why an Event was emitted.
type Reason string

const (
	ReasonLogin         Reason = "login"
	ReasonRestored      Reason = "restored"
	ReasonProfileLoaded Reason = "profile_loaded"
	ReasonLogout        Reason = "logout"
	ReasonRefreshFailed Reason = "refresh_failed"
	ReasonSignOut       Reason = "sign_out"
)

// Event is the "authentication changed" signal.
type Event struct {
	Authenticated bool
	State         State
	Reason        Reason
}

const defaultEventBuffer = 8

// Subscribe registers a listener. Delivery never blocks the session: a
// subscriber whose buffer is full misses the event. The returned func
// unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, s.eventBuffer)

	s.subMu.Lock()
	if s.subs == nil {
		close(ch)
		s.subMu.Unlock()
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) emit(ctx context.Context, reason Reason) {
	ev := Event{Authenticated: s.IsAuthenticated(), State: s.State(), Reason: reason}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn(ctx, "session event dropped, subscriber is not keeping up", "subscriber", id, "reason", string(reason))
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subs = nil
}
