package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/erpadmin/internal/client/client"
	"github.com/dmitrijs2005/erpadmin/internal/client/models"
)

// fakeGateway implements client.Gateway, records inputs and returns preset
// outputs. When refreshGate is set, Refresh blocks until it is closed.
type fakeGateway struct {
	mu sync.Mutex

	loginResp   *client.TokenResponse
	loginErr    error
	refreshResp *client.TokenResponse
	refreshErr  error
	refreshGate chan struct{}
	logoutErr   error
	profile     *models.Profile
	profileErr  error
	changeErr   error

	loginCalls   int
	refreshCalls int
	logoutCalls  int
	profileCalls int
	changeCalls  int

	lastLoginUser     string
	lastRefreshToken  string
	lastLogoutToken   string
	lastLogoutAccess  string
	lastProfileAccess string
	lastChangeAccess  string
	lastChange        [3]string
}

var _ client.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) set(fn func(f *fakeGateway)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGateway) get(fn func(f *fakeGateway)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGateway) calls() (login, refresh, logout, profile int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls, f.logoutCalls, f.profileCalls
}

func (f *fakeGateway) Login(ctx context.Context, username, password string) (*client.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	f.lastLoginUser = username
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	r := *f.loginResp
	return &r, nil
}

func (f *fakeGateway) Refresh(ctx context.Context, refreshToken string) (*client.TokenResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.lastRefreshToken = refreshToken
	gate := f.refreshGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	r := *f.refreshResp
	return &r, nil
}

func (f *fakeGateway) Logout(ctx context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	f.lastLogoutToken = refreshToken
	f.lastLogoutAccess, _ = client.AccessTokenFrom(ctx)
	return f.logoutErr
}

func (f *fakeGateway) Profile(ctx context.Context) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	f.lastProfileAccess, _ = client.AccessTokenFrom(ctx)
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile.Clone(), nil
}

func (f *fakeGateway) ChangePassword(ctx context.Context, current, next, confirm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changeCalls++
	f.lastChangeAccess, _ = client.AccessTokenFrom(ctx)
	f.lastChange = [3]string{current, next, confirm}
	return f.changeErr
}

func (f *fakeGateway) Ping(ctx context.Context) error { return nil }

// memStore is an in-memory CredentialStore with error injection.
type memStore struct {
	mu       sync.Mutex
	cred     *models.Credential
	loadErr  error
	saveErr  error
	clearErr error
	saves    int
	clears   int
}

func (m *memStore) Load(ctx context.Context) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.cred == nil {
		return nil, nil
	}
	c := *m.cred
	return &c, nil
}

func (m *memStore) Save(ctx context.Context, c models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.cred = &c
	return nil
}

func (m *memStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cred = nil
	return nil
}

func (m *memStore) stored() *models.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return nil
	}
	c := *m.cred
	return &c
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// signedToken builds an HS256 token with the given identity and expiry.
func signedToken(t *testing.T, sub string, roles []string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      sub,
		"username": "user-" + sub,
		"roles":    roles,
		"iat":      exp.Add(-time.Hour).Unix(),
		"exp":      exp.Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func tokenResponse(access, refresh string) *client.TokenResponse {
	return &client.TokenResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer", ExpiresIn: 3600}
}

type fixture struct {
	s     *Session
	gw    *fakeGateway
	store *memStore
	clock *fakeClock
}

// newFixture builds a session on a fake clock whose login answers with a
// one-hour token for subject "1".
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := newClock()
	exp := clock.Now().Add(time.Hour)

	gw := &fakeGateway{
		loginResp:   tokenResponse(signedToken(t, "1", []string{"admin"}, exp), "r1"),
		refreshResp: tokenResponse(signedToken(t, "1", []string{"admin"}, exp.Add(time.Hour)), "r2"),
		profile: &models.Profile{
			ID: "1", Username: "admin", Roles: []string{"admin", "auditor"},
			Permissions: []string{"inventory.read", "users.manage"},
		},
	}
	store := &memStore{}

	opts = append([]Option{WithNowFunc(clock.Now), WithMetrics(NewMetrics(nil))}, opts...)
	s := New(gw, store, opts...)
	t.Cleanup(s.Close)

	return &fixture{s: s, gw: gw, store: store, clock: clock}
}

// waiting reads the refresh_waiters gauge.
func waiting(s *Session) int {
	return int(testutil.ToFloat64(s.metrics.waiting))
}

func (fx *fixture) login(t *testing.T) models.Credential {
	t.Helper()
	c, err := fx.s.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	return c
}

// waitEvent reads events until one with reason arrives.
func waitEvent(t *testing.T, ch <-chan Event, reason Reason) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "event channel closed before %s", reason)
			if ev.Reason == reason {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", reason)
		}
	}
}

var errBoom = errors.New("boom")
