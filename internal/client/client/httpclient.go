package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/common"
	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

const (
	DefaultProfileRetries = 3
	defaultRetryBase      = 200 * time.Millisecond
	maxErrorBody          = 64 << 10
)

// HTTPClient implements Gateway over JSON/HTTP.
type HTTPClient struct {
	baseURL        *url.URL
	http           *http.Client
	log            logging.Logger
	profileRetries uint64
	retryBase      time.Duration
}

var _ Gateway = (*HTTPClient)(nil)

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

func WithLogger(l logging.Logger) Option {
	return func(h *HTTPClient) { h.log = l }
}

// WithProfileRetries sets how many times a failed profile fetch is retried.
func WithProfileRetries(n uint64) Option {
	return func(h *HTTPClient) { h.profileRetries = n }
}

// WithRetryBase sets the first backoff step of profile retries.
func WithRetryBase(d time.Duration) Option {
	return func(h *HTTPClient) { h.retryBase = d }
}

// NewHTTPClient returns a gateway rooted at baseURL, e.g. "http://localhost:8080/api".
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	h := &HTTPClient{
		baseURL:        u,
		http:           &http.Client{Timeout: 30 * time.Second},
		log:            logging.NewDiscard(),
		profileRetries: DefaultProfileRetries,
		retryBase:      defaultRetryBase,
	}
	for _, o := range opts {
		o(h)
	}
	return h, nil
}

func (h *HTTPClient) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	var out TokenResponse
	err := h.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: password}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := h.do(ctx, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	return h.do(ctx, http.MethodPost, "/auth/logout", RefreshRequest{RefreshToken: refreshToken}, nil, false)
}

// Profile fetches the current user, retrying transport failures and 5xx
// responses with exponential backoff.
func (h *HTTPClient) Profile(ctx context.Context) (*models.Profile, error) {
	var out models.Profile

	backoff := retry.WithMaxRetries(h.profileRetries, retry.NewExponential(h.retryBase))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := h.do(ctx, http.MethodGet, "/auth/me", nil, &out, false)
		if err == nil {
			return nil
		}
		if retryable(err) {
			h.log.Debug(ctx, "profile fetch failed, retrying", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) ChangePassword(ctx context.Context, current, next, confirm string) error {
	body := ChangePasswordRequest{CurrentPassword: current, NewPassword: next, ConfirmPassword: confirm}
	return h.do(ctx, http.MethodPost, "/auth/change-password", body, nil, false)
}

// Ping checks server liveness.
func (h *HTTPClient) Ping(ctx context.Context) error {
	return h.do(ctx, http.MethodGet, "/healthz", nil, nil, false)
}

func retryable(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var herr *HTTPError
	return errors.As(err, &herr) && herr.StatusCode >= 500
}

func (h *HTTPClient) endpoint(path string) string {
	u := *h.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// do sends one request. in is JSON-encoded when non-nil; out, when non-nil,
// receives the decoded 2xx body.
func (h *HTTPClient) do(ctx context.Context, method, path string, in, out any, login bool) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if tok, ok := AccessTokenFrom(ctx); ok {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+tok)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(readHTTPError(resp), login)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func readHTTPError(resp *http.Response) *HTTPError {
	herr := &HTTPError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return herr
	}

	var er ErrorResponse
	if json.Unmarshal(raw, &er) == nil && er.Detail != "" {
		herr.Detail = er.Detail
		return herr
	}
	herr.Detail = strings.TrimSpace(string(raw))
	return herr
}
