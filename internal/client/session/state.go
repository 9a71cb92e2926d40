package session

// State is the externally visible lifecycle state of the session.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
	// StateRefreshing is a sub-state of StateAuthenticated: the current
	// credential stays usable while a renewal is in flight.
	StateRefreshing
	// StateExpired means a credential is held but its expiry has passed.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}
