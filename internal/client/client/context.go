package client

import "context"

type accessTokenKey struct{}

// WithAccessToken returns a context carrying the bearer token used by
// authenticated gateway calls.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFrom extracts the token stored by WithAccessToken.
func AccessTokenFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(accessTokenKey{}).(string)
	return t, ok && t != ""
}
