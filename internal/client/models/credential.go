// Package models defines client-side data models shared by the session,
// the gateway and the credential store.
package models

import "time"

// Credential is the access/refresh token pair plus the access token's expiry.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IsZero reports whether c holds no access token.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// ExpiredAt reports whether the credential is absent or expired at now.
func (c Credential) ExpiredAt(now time.Time) bool {
	return c.IsZero() || !now.Before(c.ExpiresAt)
}
