// Package httpapi exposes the user service over JSON/HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/erpadmin/internal/logging"
	"github.com/dmitrijs2005/erpadmin/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// Users is the subset of services.UserService the handlers call.
type Users interface {
	Login(ctx context.Context, userName string, password []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, userID string) (*services.Profile, error)
	ChangePassword(ctx context.Context, userID string, current, next, confirm []byte) error
}

var _ Users = (*services.UserService)(nil)

type Server struct {
	address   string
	users     Users
	logger    logging.Logger
	jwtSecret []byte
	registry  *prometheus.Registry
	metrics   *metrics
}

func NewServer(address string, l logging.Logger, us Users, secretKey string) *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		address:   address,
		users:     us,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
		registry:  reg,
		metrics:   newMetrics(reg),
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.metrics.middleware())

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	a := r.Group("/auth")
	a.POST("/login", s.login)
	a.POST("/refresh", s.refresh)
	a.POST("/logout", s.logout)

	protected := a.Group("", s.requireAccessToken())
	protected.GET("/me", s.me)
	protected.POST("/change-password", s.changePassword)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
