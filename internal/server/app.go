// Package server wires the application together: configuration, logging,
// database and migrations, the credential sealer, services, and the HTTP
// server, with graceful shutdown on OS signals.
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

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/cryptox"
	"github.com/dmitrijs2005/walletd/internal/logging"
	"github.com/dmitrijs2005/walletd/internal/server/config"
	"github.com/dmitrijs2005/walletd/internal/server/httpapi"
	"github.com/dmitrijs2005/walletd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/walletd/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	httpServer  *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	key, err := cfg.CredentialKey()
	if err != nil {
		return nil, fmt.Errorf("credential key error: %w", err)
	}
	sealer, err := cryptox.NewSealer(key)
	if err != nil {
		return nil, fmt.Errorf("sealer init error: %w", err)
	}
	// The sealer holds its own cipher state; drop the raw key material.
	common.WipeByteArray(key)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("repository manager init error: %w", err)
	}

	signupService := services.NewSignupService(db, rm, sealer, cfg)
	userService := services.NewUserService(db, rm, cfg)
	walletService := services.NewWalletService(db, rm, sealer)

	httpServer, err := httpapi.NewServer(cfg.EndpointAddr, logger, signupService, userService, walletService, cfg.JWTSecretKey)
	if err != nil {
		return nil, fmt.Errorf("http server init error: %w", err)
	}

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		repomanager: rm,
		httpServer:  httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, "migration error", "error", err.Error())
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
