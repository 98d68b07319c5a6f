// Package server initializes and runs the chestkeeper server: it loads
// configuration, opens the database, runs migrations, selects the credential
// backend, and starts the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chestkeeper/chestkeeper/internal/logging"
	"github.com/chestkeeper/chestkeeper/internal/server/auth"
	"github.com/chestkeeper/chestkeeper/internal/server/config"
	"github.com/chestkeeper/chestkeeper/internal/server/directory"
	"github.com/chestkeeper/chestkeeper/internal/server/httpapi"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/repomanager"
	"github.com/chestkeeper/chestkeeper/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	backend auth.Backend
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	userService := services.NewUserService(db, repos, logger)
	client := directory.NewLDAPClient(cfg.DirectoryTimeout)

	backend, err := auth.New(cfg, db, repos, client, userService, logger)
	if err != nil {
		return nil, fmt.Errorf("backend init error: %w", err)
	}

	return &App{config: cfg, logger: logger, db: db, backend: backend}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewServer(
		app.config.EndpointAddrHTTP,
		app.logger,
		app.backend,
		app.config.SecretKey,
		app.config.SessionTokenValidityDuration,
	)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "auth_mode", app.config.AuthMode)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
}
