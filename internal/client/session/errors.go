package session

import "errors"

var (
	// ErrNoRefreshToken is returned by Refresh when no refresh token is held.
	// The session is torn down and no network call is made.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrNotAuthenticated is returned by operations that require a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrRefreshSuperseded is returned to explicit Refresh callers when the
	// session changed (logout, new login) while the exchange was in flight.
	ErrRefreshSuperseded = errors.New("refresh result superseded")
	ErrEmptyAccessToken  = errors.New("server returned an empty access token")
)
