// Package tokens decodes the claims carried by an access token without
// verifying its signature. The result drives scheduling and UI decisions
// only; authorization is the server's job.
package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity recovered from an access token.
type Claims struct {
	SubjectID string
	Username  string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasExpiry reports whether the token carried an exp claim.
func (c Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// HasRole reports whether role is among the decoded roles.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type accessClaims struct {
	jwt.RegisteredClaims
	Username          string   `json:"username,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	Role              string   `json:"role,omitempty"`
}

var parser = jwt.NewParser()

// Decode parses token and returns its claims. ok is false for anything that
// is not a three-segment JWT with a JSON payload of the expected shape.
func Decode(token string) (claims Claims, ok bool) {
	if token == "" {
		return Claims{}, false
	}

	var ac accessClaims
	if _, _, err := parser.ParseUnverified(token, &ac); err != nil {
		return Claims{}, false
	}

	claims.SubjectID = ac.Subject
	claims.Username = ac.Username
	if claims.Username == "" {
		claims.Username = ac.PreferredUsername
	}

	switch {
	case len(ac.Roles) > 0:
		claims.Roles = append([]string(nil), ac.Roles...)
	case ac.Role != "":
		claims.Roles = []string{ac.Role}
	}

	if ac.IssuedAt != nil {
		claims.IssuedAt = ac.IssuedAt.Time
	}
	if ac.ExpiresAt != nil {
		claims.ExpiresAt = ac.ExpiresAt.Time
	}
	return claims, true
}
