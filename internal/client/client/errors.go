package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned by Login when the server rejects the
	// username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	// ErrUnavailable marks transport failures and gateway/timeout responses.
	ErrUnavailable = errors.New("server unavailable")
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
}

// classify attaches the matching sentinel to an HTTPError. login selects
// ErrInvalidCredentials for 401.
func classify(herr *HTTPError, login bool) error {
	switch herr.StatusCode {
	case http.StatusUnauthorized:
		if login {
			return fmt.Errorf("%w: %w", ErrInvalidCredentials, herr)
		}
		return fmt.Errorf("%w: %w", ErrUnauthorized, herr)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, herr)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", ErrUnavailable, herr)
	default:
		return herr
	}
}
