package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/erpadmin/internal/common"
)

// TokenRefresher hands out access tokens for outgoing requests. The session
// implements it.
type TokenRefresher interface {
	// ValidAccessToken returns the current token, renewing it first when
	// renewal is due.
	ValidAccessToken(ctx context.Context) (string, error)
	// RefreshAccessToken renews unconditionally and returns the new token.
	RefreshAccessToken(ctx context.Context) (string, error)
}

// AuthTransport adds the bearer token to every request. A 401 response
// triggers one renewal and one retry of the request.
type AuthTransport struct {
	tokens TokenRefresher
	base   http.RoundTripper
}

// NewAuthTransport wraps base; nil base means http.DefaultTransport.
func NewAuthTransport(tokens TokenRefresher, base http.RoundTripper) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &AuthTransport{tokens: tokens, base: base}
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	tok, err := t.tokens.ValidAccessToken(ctx)
	if err != nil {
		closeBody(req)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	resp, err := t.base.RoundTrip(authorized(req, tok))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// the body was consumed by the first attempt
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	tok, err = t.tokens.RefreshAccessToken(ctx)
	if err != nil {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	retry := authorized(req, tok)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}

func authorized(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	r.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	return r
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
