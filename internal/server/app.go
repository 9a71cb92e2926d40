// Package server wires the development auth server: it opens the SQLite
// database, applies migrations, seeds the admin account and runs the HTTP API
// until the context is cancelled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/dmitrijs2005/erpadmin/internal/logging"
	"github.com/dmitrijs2005/erpadmin/internal/server/config"
	"github.com/dmitrijs2005/erpadmin/internal/server/httpapi"
	"github.com/dmitrijs2005/erpadmin/internal/server/models"
	"github.com/dmitrijs2005/erpadmin/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/erpadmin/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	httpServer  *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogFormat, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := repomanager.OpenSQLite(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewSQLiteRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	us := services.NewUserService(db, rm, c)
	app := &App{
		config:      c,
		logger:      logger,
		db:          db,
		userService: us,
		httpServer:  httpapi.NewServer(c.ListenAddr, logger, us, c.SecretKey),
	}

	if err := app.seedAdmin(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) seedAdmin(ctx context.Context) error {
	if app.config.AdminUser == "" {
		return nil
	}
	admin := &models.User{
		UserName: app.config.AdminUser,
		FullName: "Administrator",
		Roles:    []string{"admin"},
	}
	created, err := app.userService.EnsureUser(ctx, admin, []byte(app.config.AdminPassword))
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		app.logger.Info(ctx, "Admin account created", "username", admin.UserName)
	}
	return nil
}

// Run serves the HTTP API until ctx is cancelled and then closes the database.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	err := app.httpServer.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
	return multierr.Append(err, app.db.Close())
}
