package session

import (
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/client/tokens"
)

func (s *Session) credential() (models.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return models.Credential{}, false
	}
	return *s.cred, true
}

func (s *Session) dueAt(c models.Credential, now time.Time) bool {
	return !c.ExpiredAt(now) && c.ExpiresAt.Sub(now) < s.lead
}

// State reports the lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.cred == nil:
		return StateAnonymous
	case s.cred.ExpiredAt(s.now()):
		return StateExpired
	case s.refreshing:
		return StateRefreshing
	default:
		return StateAuthenticated
	}
}

// IsExpired is true when no credential is held or its expiry has passed.
func (s *Session) IsExpired() bool {
	c, ok := s.credential()
	return !ok || c.ExpiredAt(s.now())
}

// DueForRenewal is true when a valid credential expires within the lead time.
func (s *Session) DueForRenewal() bool {
	c, ok := s.credential()
	return ok && s.dueAt(c, s.now())
}

// IsAuthenticated is true while an unexpired credential is held.
func (s *Session) IsAuthenticated() bool {
	return !s.IsExpired()
}

// AccessToken returns the held access token, expired or not.
func (s *Session) AccessToken() (string, bool) {
	c, ok := s.credential()
	if !ok {
		return "", false
	}
	return c.AccessToken, true
}

// ExpiresAt returns the expiry of the held credential.
func (s *Session) ExpiresAt() (time.Time, bool) {
	c, ok := s.credential()
	if !ok {
		return time.Time{}, false
	}
	return c.ExpiresAt, true
}

// NextRenewal returns when the scheduled renewal fires, if one is armed.
func (s *Session) NextRenewal() (time.Time, bool) {
	return s.scheduler.Pending()
}

// Claims returns the claims decoded from the access token. ok is false when
// no session is held or the token could not be decoded.
func (s *Session) Claims() (tokens.Claims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil || !s.hasClaims {
		return tokens.Claims{}, false
	}
	c := s.claims
	c.Roles = append([]string(nil), s.claims.Roles...)
	return c, true
}

// CurrentUser returns a copy of the profile, or nil before it is fetched.
func (s *Session) CurrentUser() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil
	}
	return s.profile.Clone()
}

// HasRole checks the token's roles and, once loaded, the profile's roles.
func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasRoleLocked(role)
}

func (s *Session) HasAnyRole(roles ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range roles {
		if s.hasRoleLocked(r) {
			return true
		}
	}
	return false
}

func (s *Session) hasRoleLocked(role string) bool {
	if s.cred == nil || role == "" {
		return false
	}
	if s.hasClaims && s.claims.HasRole(role) {
		return true
	}
	return s.profile.HasRole(role)
}

// HasPermission checks the profile's permissions.
func (s *Session) HasPermission(permission string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return false
	}
	return s.profile.HasPermission(permission)
}
