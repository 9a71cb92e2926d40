package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/client/config"
	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/client/session"
	"github.com/dmitrijs2005/erpadmin/internal/client/tokens"
	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

type fakeSession struct {
	mu sync.Mutex

	authenticated bool
	state         session.State
	expiresAt     time.Time
	renewsAt      time.Time
	claims        *tokens.Claims
	profile       *models.Profile

	initCalls int
	initErr   error

	loginUser string
	loginPass string
	loginCred models.Credential
	loginErr  error

	logoutCalls int
	logoutErr   error
	signOuts    []string

	refreshCalls int
	refreshCred  models.Credential
	refreshErr   error

	change    [3]string
	changeErr error

	events chan session.Event
	closed bool
}

func (f *fakeSession) Init(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initErr
}

func (f *fakeSession) Login(_ context.Context, username, password string) (models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginUser, f.loginPass = username, password
	if f.loginErr != nil {
		return models.Credential{}, f.loginErr
	}
	f.authenticated = true
	return f.loginCred, nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	f.authenticated = false
	return f.logoutErr
}

func (f *fakeSession) SignOut(_ context.Context, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts = append(f.signOuts, reason)
	f.authenticated = false
	return nil
}

func (f *fakeSession) Refresh(context.Context) (models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshCred, f.refreshErr
}

func (f *fakeSession) ChangePassword(_ context.Context, current, next, confirm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.change = [3]string{current, next, confirm}
	return f.changeErr
}

func (f *fakeSession) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSession) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeSession) ExpiresAt() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expiresAt, !f.expiresAt.IsZero()
}

func (f *fakeSession) NextRenewal() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renewsAt, !f.renewsAt.IsZero()
}

func (f *fakeSession) Claims() (tokens.Claims, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claims == nil {
		return tokens.Claims{}, false
	}
	return *f.claims, true
}

func (f *fakeSession) CurrentUser() *models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile.Clone()
}

func (f *fakeSession) Subscribe() (<-chan session.Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = make(chan session.Event, 8)
	}
	return f.events, func() {}
}

func (f *fakeSession) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSession) signOutReasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.signOuts...)
}

// fakeBus records published sign-outs and replays queued ones to watchers.
type fakeBus struct {
	mu        sync.Mutex
	published []string
	incoming  []string
	pubErr    error
}

func (b *fakeBus) PublishSignOut(_ context.Context, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, reason)
	return b.pubErr
}

func (b *fakeBus) WatchSignOut(ctx context.Context, _ logging.Logger, fn func(ctx context.Context, reason string)) error {
	b.mu.Lock()
	incoming := append([]string(nil), b.incoming...)
	b.mu.Unlock()

	for _, r := range incoming {
		fn(ctx, r)
	}
	<-ctx.Done()
	return nil
}

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (p *fakePinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePinger) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func newTestApp(s sessionAPI) *App {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.OnlineCheckInterval = 0
	return &App{config: cfg, log: logging.NewDiscard(), session: s}
}

// capturePrintln collects everything printed through printlnFn.
func capturePrintln(t *testing.T) func() []string {
	t.Helper()
	var (
		mu    sync.Mutex
		lines []string
	)
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintln(a...))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func silencePrintln(t *testing.T) {
	t.Helper()
	orig := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = orig })
}

func stubInputs(t *testing.T, username string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getPassword = func(_ *bufio.Reader, _ string, _ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

// stubPasswords makes successive getPassword calls return pws in order.
func stubPasswords(t *testing.T, pws ...[]byte) {
	t.Helper()
	orig := getPassword
	i := 0
	getPassword = func(_ *bufio.Reader, _ string, _ io.Writer) ([]byte, error) {
		pw := pws[i]
		i++
		return pw, nil
	}
	t.Cleanup(func() { getPassword = orig })
}
