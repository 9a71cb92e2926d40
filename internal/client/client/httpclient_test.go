package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/erpadmin/internal/common"
)

// fakeServer records the last request of every endpoint and answers with
// preset handlers.
type fakeServer struct {
	*httptest.Server
	mu         sync.Mutex
	lastBody   map[string]map[string]string
	lastHeader map[string]http.Header
	calls      map[string]*atomic.Int32
}

func newFakeServer(t *testing.T, handlers map[string]http.HandlerFunc) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		lastBody:   map[string]map[string]string{},
		lastHeader: map[string]http.Header{},
		calls:      map[string]*atomic.Int32{},
	}
	mux := http.NewServeMux()
	for pattern, h := range handlers {
		c := &atomic.Int32{}
		fs.calls[pattern] = c
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			c.Add(1)
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			fs.mu.Lock()
			fs.lastBody[pattern] = body
			fs.lastHeader[pattern] = r.Header.Clone()
			fs.mu.Unlock()
			h(w, r)
		})
	}
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) body(pattern string) map[string]string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lastBody[pattern]
}

func (fs *fakeServer) header(pattern string) http.Header {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lastHeader[pattern]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func tokenHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: "a1", RefreshToken: "r1", TokenType: "bearer", ExpiresIn: 900,
	})
}

func newTestClient(t *testing.T, url string, opts ...Option) *HTTPClient {
	t.Helper()
	opts = append([]Option{WithRetryBase(time.Millisecond)}, opts...)
	c, err := NewHTTPClient(url, opts...)
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com")
	require.Error(t, err)

	_, err = NewHTTPClient("://nope")
	require.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{"POST /auth/login": tokenHandler})
	c := newTestClient(t, fs.URL)

	resp, err := c.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a1", resp.AccessToken)
	assert.Equal(t, "r1", resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	body := fs.body("POST /auth/login")
	assert.Equal(t, "admin", body["username"])
	assert.Equal(t, "secret", body["password"])

	h := fs.header("POST /auth/login")
	assert.NotEmpty(t, h.Get(common.RequestIDHeaderName))
	assert.Empty(t, h.Get(common.AuthorizationHeaderName))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /auth/login": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "Invalid credentials"})
		},
	})
	c := newTestClient(t, fs.URL)

	_, err := c.Login(context.Background(), "admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusUnauthorized, herr.StatusCode)
	assert.Equal(t, "Invalid credentials", herr.Detail)
}

func TestRefresh_Unauthorized(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /auth/refresh": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "refresh token expired"})
		},
	})
	c := newTestClient(t, fs.URL)

	_, err := c.Refresh(context.Background(), "r0")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "r0", fs.body("POST /auth/refresh")["refresh_token"])
}

func TestRefresh_Success(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{"POST /auth/refresh": tokenHandler})
	c := newTestClient(t, fs.URL)

	resp, err := c.Refresh(context.Background(), "r0")
	require.NoError(t, err)
	assert.Equal(t, "a1", resp.AccessToken)
}

func TestLogout_SendsRefreshToken(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /auth/logout": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) },
	})
	c := newTestClient(t, fs.URL)

	require.NoError(t, c.Logout(context.Background(), "r9"))
	assert.Equal(t, "r9", fs.body("POST /auth/logout")["refresh_token"])
}

func TestProfile_UsesBearerFromContext(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /auth/me": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"id": "1", "username": "admin", "roles": []string{"admin"}, "permissions": []string{"users.manage"},
			})
		},
	})
	c := newTestClient(t, fs.URL)

	p, err := c.Profile(WithAccessToken(context.Background(), "tok"))
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Username)
	assert.Equal(t, []string{"users.manage"}, p.Permissions)
	assert.Equal(t, "Bearer tok", fs.header("GET /auth/me").Get(common.AuthorizationHeaderName))
}

func TestProfile_RetriesServerErrors(t *testing.T) {
	var n atomic.Int32
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /auth/me": func(w http.ResponseWriter, _ *http.Request) {
			if n.Add(1) < 3 {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Detail: "warming up"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": "1", "username": "admin"})
		},
	})
	c := newTestClient(t, fs.URL, WithProfileRetries(3))

	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Username)
	assert.Equal(t, int32(3), fs.calls["GET /auth/me"].Load())
}

func TestProfile_GivesUpAfterRetries(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /auth/me": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	})
	c := newTestClient(t, fs.URL, WithProfileRetries(2))

	_, err := c.Profile(context.Background())
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusInternalServerError, herr.StatusCode)
	assert.Equal(t, int32(3), fs.calls["GET /auth/me"].Load())
}

func TestProfile_DoesNotRetryUnauthorized(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /auth/me": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "token expired"})
		},
	})
	c := newTestClient(t, fs.URL, WithProfileRetries(5))

	_, err := c.Profile(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), fs.calls["GET /auth/me"].Load())
}

func TestChangePassword_Body(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /auth/change-password": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) },
	})
	c := newTestClient(t, fs.URL)

	require.NoError(t, c.ChangePassword(WithAccessToken(context.Background(), "tok"), "old", "new", "new"))
	body := fs.body("POST /auth/change-password")
	assert.Equal(t, "old", body["current_password"])
	assert.Equal(t, "new", body["new_password"])
	assert.Equal(t, "new", body["confirm_password"])
}

func TestChangePassword_ValidationErrorIsPlainHTTPError(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /auth/change-password": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "passwords do not match"})
		},
	})
	c := newTestClient(t, fs.URL)

	err := c.ChangePassword(context.Background(), "old", "a", "b")
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "passwords do not match", herr.Detail)
	assert.Equal(t, "http 400: passwords do not match", err.Error())
}

func TestErrorBody_NotJSON(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /healthz": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down\n"))
		},
	})
	c := newTestClient(t, fs.URL)

	err := c.Ping(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "upstream down", herr.Detail)
}

func TestNetworkFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.Login(context.Background(), "u", "p")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCanceledContext_NotUnavailable(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{"GET /healthz": func(w http.ResponseWriter, _ *http.Request) {}})
	c := newTestClient(t, fs.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Ping(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestBaseURLPathIsKept(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{"GET /api/healthz": func(w http.ResponseWriter, _ *http.Request) {}})
	c := newTestClient(t, fs.URL+"/api/")

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, int32(1), fs.calls["GET /api/healthz"].Load())
}

func TestAccessTokenFrom(t *testing.T) {
	_, ok := AccessTokenFrom(context.Background())
	assert.False(t, ok)

	_, ok = AccessTokenFrom(WithAccessToken(context.Background(), ""))
	assert.False(t, ok)

	tok, ok := AccessTokenFrom(WithAccessToken(context.Background(), "x"))
	assert.True(t, ok)
	assert.Equal(t, "x", tok)
}
