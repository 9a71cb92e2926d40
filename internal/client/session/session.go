package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/erpadmin/internal/client/client"
	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/client/renewal"
	"github.com/dmitrijs2005/erpadmin/internal/client/tokens"
	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

// CredentialStore persists the shadow copy of the credential. Load returns
// (nil, nil) when nothing usable is stored.
type CredentialStore interface {
	Load(ctx context.Context) (*models.Credential, error)
	Save(ctx context.Context, c models.Credential) error
	Clear(ctx context.Context) error
}

// Session is safe for concurrent use.
type Session struct {
	gw    client.Gateway
	store CredentialStore

	log                logging.Logger
	metrics            *Metrics
	now                func() time.Time
	lead               time.Duration
	fallbackTTL        time.Duration
	requestTimeout     time.Duration
	minRenewalInterval time.Duration
	eventBuffer        int

	scheduler *renewal.Scheduler
	flights   singleflight.Group

	// storeMu orders store writes against generation changes, so a stale
	// refresh never writes a credential back after a teardown cleared it.
	storeMu sync.Mutex

	mu         sync.RWMutex
	cred       *models.Credential
	claims     tokens.Claims
	hasClaims  bool
	profile    *models.Profile
	gen        uint64
	// ver changes with every credential installed, within a generation too
	ver        uint64
	refreshing bool

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New builds an anonymous session. Call Init to restore a stored credential.
func New(gw client.Gateway, store CredentialStore, opts ...Option) *Session {
	s := &Session{
		gw:                 gw,
		store:              store,
		log:                logging.NewDiscard(),
		now:                time.Now,
		lead:               DefaultLeadTime,
		fallbackTTL:        DefaultFallbackTTL,
		requestTimeout:     DefaultRequestTimeout,
		minRenewalInterval: renewal.DefaultMinInterval,
		eventBuffer:        defaultEventBuffer,
		subs:               make(map[int]chan Event),
	}
	for _, o := range opts {
		o(s)
	}

	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	s.scheduler = renewal.New(s.lead, s.scheduledRefresh,
		renewal.WithLogger(s.log),
		renewal.WithNowFunc(s.now),
		renewal.WithMinInterval(s.minRenewalInterval),
	)
	return s
}

// Init restores the session from the credential store. A valid credential
// makes the session authenticated without a login. An expired one is set
// as-is and renewed once; if that fails the session ends anonymous with an
// empty store. Only store I/O failures are returned.
func (s *Session) Init(ctx context.Context) error {
	stored, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if stored == nil {
		s.log.Info(ctx, "no stored session")
		return nil
	}

	cred := *stored
	claims, ok := tokens.Decode(cred.AccessToken)
	gen := s.apply(cred, claims, ok)

	if !cred.ExpiredAt(s.now()) {
		s.scheduler.Arm(cred.ExpiresAt)
		s.log.Info(ctx, "session restored", "subject", claims.SubjectID, "expires_at", cred.ExpiresAt)
		s.emit(ctx, ReasonRestored)
		s.fetchProfile(gen, cred.AccessToken)
		return nil
	}

	s.log.Info(ctx, "stored session expired, renewing", "expired_at", cred.ExpiresAt)
	renewed, err := s.Refresh(ctx)
	if err != nil {
		s.log.Warn(ctx, "stored session could not be renewed", "error", err)
		return nil
	}

	s.emit(ctx, ReasonRestored)
	s.fetchProfile(s.generation(), renewed.AccessToken)
	return nil
}

// Close stops the renewal timer and background work and closes every
// subscriber channel.
func (s *Session) Close() {
	s.scheduler.Cancel()
	s.bgCancel()
	s.bg.Wait()
	s.closeSubscribers()
}

// Login authenticates against the gateway. On failure nothing changes and
// the gateway error is returned wrapped.
func (s *Session) Login(ctx context.Context, username, password string) (models.Credential, error) {
	resp, err := s.gw.Login(ctx, username, password)
	if err != nil {
		s.metrics.login(resultError)
		s.log.Info(ctx, "login rejected", "username", username, "error", err)
		return models.Credential{}, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		s.metrics.login(resultError)
		return models.Credential{}, fmt.Errorf("login: %w", ErrEmptyAccessToken)
	}

	cred, claims, ok := s.credentialFrom(ctx, resp)

	s.storeMu.Lock()
	if err := s.store.Save(ctx, cred); err != nil {
		s.storeMu.Unlock()
		s.metrics.login(resultError)
		return models.Credential{}, fmt.Errorf("login: %w", err)
	}
	gen := s.apply(cred, claims, ok)
	s.storeMu.Unlock()

	s.scheduler.Arm(cred.ExpiresAt)
	s.metrics.login(resultSuccess)
	s.log.Info(ctx, "logged in", "username", username, "expires_at", cred.ExpiresAt)

	s.emit(ctx, ReasonLogin)
	s.fetchProfile(gen, cred.AccessToken)
	return cred, nil
}

// Logout invalidates the refresh token on the server when one is held and
// then tears the session down whatever the server answered. Only a
// credential store failure is returned; the in-memory session is cleared
// regardless.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.RLock()
	var access, refresh string
	if s.cred != nil {
		access, refresh = s.cred.AccessToken, s.cred.RefreshToken
	}
	s.mu.RUnlock()

	if refresh != "" {
		lctx, cancel := context.WithTimeout(client.WithAccessToken(ctx, access), s.requestTimeout)
		if err := s.gw.Logout(lctx, refresh); err != nil {
			s.log.Warn(ctx, "server-side logout failed", "error", err)
		}
		cancel()
	}

	return s.teardown(ctx, ReasonLogout)
}

// SignOut ends the session because of an external signal, without
// contacting the server.
func (s *Session) SignOut(ctx context.Context, reason string) error {
	s.log.Info(ctx, "signing out", "reason", reason)
	return s.teardown(ctx, ReasonSignOut)
}

// Refresh renews the credential. Concurrent callers share a single gateway
// exchange and its outcome. A failed exchange tears the session down. Each
// caller stops waiting when its own ctx ends; the exchange itself runs to
// completion bounded by the request timeout.
func (s *Session) Refresh(ctx context.Context) (models.Credential, error) {
	s.mu.RLock()
	gen, ver := s.gen, s.ver
	held := s.cred != nil
	var refreshToken string
	if held {
		refreshToken = s.cred.RefreshToken
	}
	s.mu.RUnlock()

	if refreshToken == "" {
		s.log.Warn(ctx, "refresh requested without a refresh token")
		// with nothing held there is no session to end, and the store may
		// carry a credential Init has not restored yet
		if held {
			if err := s.teardownGen(ctx, gen, ReasonRefreshFailed); err != nil {
				s.log.Error(ctx, "failed to clear credential store", "error", err)
			}
		}
		return models.Credential{}, ErrNoRefreshToken
	}

	key := fmt.Sprintf("refresh-%d-%d", gen, ver)
	detached := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		return s.exchange(detached, key, gen, ver)
	})
	s.metrics.waiterIn()
	defer s.metrics.waiterOut()

	select {
	case res := <-ch:
		if res.Shared {
			s.metrics.coalescedCall()
		}
		if res.Err != nil {
			return models.Credential{}, res.Err
		}
		return res.Val.(models.Credential), nil
	case <-ctx.Done():
		return models.Credential{}, ctx.Err()
	}
}

// exchange is the body of one refresh flight. The flight key is forgotten
// before the result is handed to the waiters.
func (s *Session) exchange(ctx context.Context, key string, gen, ver uint64) (any, error) {
	defer s.flights.Forget(key)

	s.mu.RLock()
	cur, curGen, curVer := s.cred, s.gen, s.ver
	s.mu.RUnlock()
	if curGen != gen || cur == nil {
		s.metrics.refresh(resultSuperseded)
		return nil, ErrRefreshSuperseded
	}
	if curVer != ver {
		// renewed by an exchange that settled after this caller looked
		return *cur, nil
	}
	refreshToken := cur.RefreshToken

	s.setRefreshing(gen, true)
	defer s.setRefreshing(gen, false)

	rctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	resp, err := s.gw.Refresh(rctx, refreshToken)
	if err == nil && resp.AccessToken == "" {
		err = ErrEmptyAccessToken
	}
	if err != nil {
		if s.generation() != gen {
			s.metrics.refresh(resultSuperseded)
			return nil, ErrRefreshSuperseded
		}
		s.metrics.refresh(resultError)
		s.log.Warn(ctx, "refresh failed, ending session", "error", err)
		if cerr := s.teardownGen(ctx, gen, ReasonRefreshFailed); cerr != nil {
			s.log.Error(ctx, "failed to clear credential store", "error", cerr)
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	cred, claims, ok := s.credentialFrom(ctx, resp)
	if cred.RefreshToken == "" {
		// server did not rotate the refresh token
		cred.RefreshToken = refreshToken
	}

	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	if s.generation() != gen {
		s.metrics.refresh(resultSuperseded)
		s.log.Info(ctx, "discarding stale refresh result")
		return nil, ErrRefreshSuperseded
	}
	if err := s.store.Save(ctx, cred); err != nil {
		// the in-memory credential stays authoritative
		s.log.Error(ctx, "failed to persist refreshed credential", "error", err)
	}
	if !s.replace(gen, cred, claims, ok) {
		s.metrics.refresh(resultSuperseded)
		return nil, ErrRefreshSuperseded
	}

	s.scheduler.Arm(cred.ExpiresAt)
	s.metrics.refresh(resultSuccess)
	s.log.Debug(ctx, "credential refreshed", "expires_at", cred.ExpiresAt)
	return cred, nil
}

func (s *Session) scheduledRefresh(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	if errors.Is(err, ErrRefreshSuperseded) {
		return nil
	}
	return err
}

// ChangePassword requires a session. Gateway errors are returned untouched.
func (s *Session) ChangePassword(ctx context.Context, current, next, confirm string) error {
	tok, err := s.ValidAccessToken(ctx)
	if err != nil {
		return err
	}
	return s.gw.ChangePassword(client.WithAccessToken(ctx, tok), current, next, confirm)
}

// ValidAccessToken returns the access token, renewing it first when renewal
// is due or the credential has expired.
func (s *Session) ValidAccessToken(ctx context.Context) (string, error) {
	cred, ok := s.credential()
	if !ok {
		return "", ErrNotAuthenticated
	}
	if !s.dueAt(cred, s.now()) && !cred.ExpiredAt(s.now()) {
		return cred.AccessToken, nil
	}

	renewed, err := s.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return renewed.AccessToken, nil
}

// RefreshAccessToken renews unconditionally and returns the new token.
func (s *Session) RefreshAccessToken(ctx context.Context) (string, error) {
	renewed, err := s.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return renewed.AccessToken, nil
}

var _ client.TokenRefresher = (*Session)(nil)

// credentialFrom turns a token response into a credential. The expiry comes
// from the token's exp claim, else from expires_in, else the fallback TTL.
func (s *Session) credentialFrom(ctx context.Context, resp *client.TokenResponse) (models.Credential, tokens.Claims, bool) {
	claims, ok := tokens.Decode(resp.AccessToken)

	var exp time.Time
	if ok && claims.HasExpiry() {
		exp = claims.ExpiresAt
	} else {
		if !ok {
			s.log.Warn(ctx, "access token is not decodable, using response expiry")
		}
		ttl := time.Duration(resp.ExpiresIn) * time.Second
		if ttl <= 0 {
			ttl = s.fallbackTTL
		}
		exp = s.now().Add(ttl)
	}

	return models.Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    exp,
	}, claims, ok
}

// apply installs a credential as a new session generation.
func (s *Session) apply(cred models.Credential, claims tokens.Claims, ok bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.ver++
	s.cred = &cred
	s.claims, s.hasClaims = claims, ok
	s.profile = nil
	s.metrics.setAuthenticated()
	return s.gen
}

// replace swaps the credential within generation gen and keeps the profile.
func (s *Session) replace(gen uint64, cred models.Credential, claims tokens.Claims, ok bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false
	}
	s.ver++
	s.cred = &cred
	s.claims, s.hasClaims = claims, ok
	return true
}

func (s *Session) teardown(ctx context.Context, reason Reason) error {
	return s.teardownGen(ctx, 0, reason)
}

// teardownGen clears the session. A non-zero gen limits the teardown to that
// generation; a session that already moved on is left alone.
func (s *Session) teardownGen(ctx context.Context, gen uint64, reason Reason) error {
	s.mu.Lock()
	if gen != 0 && s.gen != gen {
		s.mu.Unlock()
		return nil
	}
	held := s.cred != nil
	s.gen++
	s.ver++
	s.cred = nil
	s.claims, s.hasClaims = tokens.Claims{}, false
	s.profile = nil
	s.refreshing = false
	s.mu.Unlock()

	// an exchange arms the scheduler while holding storeMu
	s.storeMu.Lock()
	s.scheduler.Cancel()
	err := s.store.Clear(ctx)
	s.storeMu.Unlock()

	if held {
		s.metrics.teardown()
		s.log.Info(ctx, "session ended", "reason", string(reason))
		s.emit(ctx, reason)
	}
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (s *Session) setRefreshing(gen uint64, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.refreshing = v
	}
}

func (s *Session) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// fetchProfile loads the profile in the background. Failures are logged.
func (s *Session) fetchProfile(gen uint64, accessToken string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		ctx, cancel := context.WithTimeout(s.bgCtx, s.requestTimeout)
		defer cancel()

		p, err := s.gw.Profile(client.WithAccessToken(ctx, accessToken))
		if err != nil {
			s.log.Warn(ctx, "failed to fetch profile", "error", err)
			return
		}

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.profile = p.Clone()
		s.mu.Unlock()

		s.emit(ctx, ReasonProfileLoaded)
	}()
}
