package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/opencustody/strongroom/internal/vault/http"
	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/internal/vault/store/drivers/sqlite"
	"github.com/opencustody/strongroom/pkg/cryptox"
	"github.com/opencustody/strongroom/pkg/slogx"
	"github.com/opencustody/strongroom/pkg/tokenx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the strongroom service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *tokenx.Codec

	sessionService      *service.SessionService
	vaultService        *service.VaultService
	userService         *service.UserService
	fileService         *service.FileService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized. The master
// key and signing secret are validated here; a bad key configuration never
// reaches Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "strongroom",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	secret, err := cfg.signingSecret()
	if err != nil {
		return nil, err
	}
	codec, err := tokenx.New(secret, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	masterKey, err := cfg.masterKey()
	if err != nil {
		return nil, err
	}
	wrapper, err := cryptox.NewKeyWrapper(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key wrapper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices(wrapper)
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("strongroom starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down strongroom...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("strongroom stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices(wrapper *cryptox.KeyWrapper) {
	app.sessionService = &service.SessionService{
		Store:           app.db,
		Codec:           app.codec,
		Issuer:          app.cfg.Issuer,
		VerificationTTL: app.cfg.VerificationTTL,
		AccessTTL:       app.cfg.AccessTTL,
		RefreshTTL:      app.cfg.RefreshTTL,
	}

	app.vaultService = &service.VaultService{
		Store:   app.db,
		Wrapper: wrapper,
	}

	app.userService = &service.UserService{Store: app.db}
	app.fileService = &service.FileService{
		Store:   app.db,
		LinkTTL: app.cfg.ShareLinkTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.SessionService = app.sessionService
	router.VaultService = app.vaultService
	router.UserService = app.userService
	router.FileService = app.fileService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
