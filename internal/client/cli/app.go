package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/dmitrijs2005/erpadmin/internal/client/client"
	"github.com/dmitrijs2005/erpadmin/internal/client/config"
	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/erpadmin/internal/client/session"
	"github.com/dmitrijs2005/erpadmin/internal/client/tokens"
	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// sessionAPI is the part of *session.Session the CLI drives.
type sessionAPI interface {
	Init(ctx context.Context) error
	Login(ctx context.Context, username, password string) (models.Credential, error)
	Logout(ctx context.Context) error
	SignOut(ctx context.Context, reason string) error
	Refresh(ctx context.Context) (models.Credential, error)
	ChangePassword(ctx context.Context, current, next, confirm string) error
	State() session.State
	IsAuthenticated() bool
	ExpiresAt() (time.Time, bool)
	NextRenewal() (time.Time, bool)
	Claims() (tokens.Claims, bool)
	CurrentUser() *models.Profile
	Subscribe() (<-chan session.Event, func())
	Close()
}

var _ sessionAPI = (*session.Session)(nil)

type pinger interface {
	Ping(ctx context.Context) error
}

// signOutBus is implemented by stores shared between several clients.
type signOutBus interface {
	PublishSignOut(ctx context.Context, reason string) error
	WatchSignOut(ctx context.Context, log logging.Logger, fn func(ctx context.Context, reason string)) error
}

type App struct {
	config  *config.Config
	log     logging.Logger
	session sessionAPI
	gateway pinger
	bus     signOutBus
	reader  *bufio.Reader

	metricsSrv *http.Server
	closers    []io.Closer

	mu       sync.RWMutex
	userName string
	Mode     Mode
}

// NewApp opens the credential store, builds the gateway and the session and,
// when configured, the metrics endpoint.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log, err := logging.New(c.LogBackend, c.LogFormat, c.LogLevel, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &App{config: c, log: log, reader: bufio.NewReader(os.Stdin)}

	store, err := a.openStore(ctx)
	if err != nil {
		log.Error(ctx, "error opening credential store", "driver", c.StoreDriver, "error", err)
		return nil, err
	}

	gw, err := client.NewHTTPClient(c.ServerURL,
		client.WithLogger(log),
		client.WithProfileRetries(c.ProfileRetries),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.gateway = gw

	reg := prometheus.NewRegistry()
	a.session = session.New(gw, store,
		session.WithLogger(log),
		session.WithLeadTime(c.RenewalLeadTime),
		session.WithMinRenewalInterval(c.MinRenewalInterval),
		session.WithRequestTimeout(c.RequestTimeout),
		session.WithFallbackTTL(c.FallbackTokenTTL),
		session.WithMetrics(session.NewMetrics(reg)),
	)

	if c.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		a.metricsSrv = &http.Server{Addr: c.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (session.CredentialStore, error) {
	switch a.config.StoreDriver {
	case config.StoreSQLite:
		s, err := credentials.OpenSQLite(ctx, a.config.StorePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	case config.StoreRedis:
		s, err := credentials.OpenRedis(ctx, a.config.RedisAddr, a.config.RedisKeyPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		a.bus = s
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", a.config.StoreDriver)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed {
		printlnFn(fmt.Sprintf("Switched to %s mode", mode))
	}
}

func (a *App) mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Mode
}

// Run executes the REPL and releases every resource when it returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.metricsSrv != nil {
		go func() {
			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error(ctx, "metrics server failed", "error", err)
			}
		}()
	}

	a.Root(ctx)
	return a.Close()
}

// Close stops the session and closes the metrics server and the store.
func (a *App) Close() error {
	if a.session != nil {
		a.session.Close()
	}

	var err error
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = multierr.Append(err, a.metricsSrv.Shutdown(ctx))
		cancel()
	}
	for _, c := range a.closers {
		err = multierr.Append(err, c.Close())
	}
	a.closers = nil
	return err
}

func (a *App) isLoggedIn() bool {
	return a.session != nil && a.session.IsAuthenticated()
}

// StartOnlineStatusWatcher pings the server every interval and flips Mode
// between online and offline. It returns when ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.gateway.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

// watchAuthEvents reports authentication changes until ctx ends or the
// session closes the channel.
func (a *App) watchAuthEvents(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			a.onAuthEvent(ev)
		}
	}
}

func (a *App) onAuthEvent(ev session.Event) {
	switch ev.Reason {
	case session.ReasonProfileLoaded:
		if u := a.session.CurrentUser(); u != nil {
			a.setUserName(u.Username)
		}
		return
	case session.ReasonLogin, session.ReasonRestored:
		if c, ok := a.session.Claims(); ok {
			a.setUserName(c.Username)
		}
	case session.ReasonRefreshFailed:
		a.setUserName("")
		printlnFn("Session expired, please log in again")
		return
	case session.ReasonSignOut:
		a.setUserName("")
		printlnFn("Signed out by another client")
		return
	default:
		a.setUserName("")
	}
	a.log.Debug(context.Background(), "auth changed", "reason", string(ev.Reason), "state", ev.State.String())
}

// watchSignOut applies sign-outs published by other clients sharing the
// store.
func (a *App) watchSignOut(ctx context.Context) {
	if a.bus == nil {
		return
	}
	err := a.bus.WatchSignOut(ctx, a.log, func(ctx context.Context, reason string) {
		if !a.session.IsAuthenticated() {
			return
		}
		if err := a.session.SignOut(ctx, reason); err != nil {
			a.log.Warn(ctx, "sign-out failed", "error", err)
		}
	})
	if err != nil {
		a.log.Warn(ctx, "sign-out watcher stopped", "error", err)
	}
}

func (a *App) setUserName(name string) {
	a.mu.Lock()
	a.userName = name
	a.mu.Unlock()
}
