// Package common contains shared constants, sentinel errors and small helpers
// used by both the client and the development server.
package common

// Credential store keys. The expiry is stored as a decimal string of epoch
// milliseconds.
const (
	AccessTokenKey    = "access_token"
	RefreshTokenKey   = "refresh_token"
	TokenExpiresAtKey = "token_expires_at"
)

// HTTP headers shared by the gateway client and the development server.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	BearerScheme            = "Bearer"
)
