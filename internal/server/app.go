// Package server wires configuration, storage and services together and runs
// the admin HTTP API until it receives a termination signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/dmitrijs2005/useradmin/internal/server/httpapi"
	"github.com/dmitrijs2005/useradmin/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/useradmin/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// newRepositoryManager is a seam for tests.
var newRepositoryManager = func(db *sql.DB) (repomanager.RepositoryManager, error) {
	return repomanager.NewPostgresRepositoryManager(db)
}

// Core is the storage handle plus the services built on it. Both the HTTP
// server and the admin console run on top of it.
type Core struct {
	DB          *sql.DB
	Accounts    *services.AccountService
	Credentials *services.CredentialService
}

// OpenCore connects to the database, applies migrations and constructs the
// services. The caller owns Core.DB and must close it.
func OpenCore(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := openDB(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm, err := newRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("repository manager error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	creds := services.NewCredentialService(db, rm, cfg)
	accounts := services.NewAccountService(db, rm, creds, cfg, logger)

	return &Core{DB: db, Accounts: accounts, Credentials: creds}, nil
}

type App struct {
	config *config.Config
	logger logging.Logger
	core   *Core
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, true)

	core, err := OpenCore(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	created, err := core.Accounts.EnsureAdmin(ctx, c.BootstrapAdminUser, c.BootstrapAdminPassword)
	if err != nil {
		core.DB.Close()
		return nil, fmt.Errorf("bootstrap admin error: %w", err)
	}
	if created {
		logger.Warn(ctx, "created bootstrap admin account; change its password", "username", c.BootstrapAdminUser)
	}

	return &App{config: c, logger: logger, core: core}, nil
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(app.core.DB, "useradmin"),
	)

	s := httpapi.NewServer(app.config.HTTPAddr, app.logger, app.core.Accounts, app.core.Credentials, app.config.AdminRole, reg)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves the HTTP API until ctx is cancelled or a signal arrives, then
// closes the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.core.DB.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
