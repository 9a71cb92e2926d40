package models

import "time"

// RefreshToken is a stored, single-use refresh token row.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the token is no longer usable at now.
func (t RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
