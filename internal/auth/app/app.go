package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/directory"
	"github.com/aussiebroadwan/bartab-security/internal/auth/events"
	"github.com/aussiebroadwan/bartab-security/internal/auth/events/kafka"
	httpapi "github.com/aussiebroadwan/bartab-security/internal/auth/http"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/bartab-security/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
	goredis "github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the security service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	rdb       *goredis.Client
	blacklist store.Blacklist
	publisher events.Publisher
	codec     *jwtx.Codec

	// Services
	auditor             *service.Auditor
	engine              *service.ValidationEngine
	sessionService      *service.SessionService
	resetLifecycle      *service.ResetTokenLifecycle
	passwordService     *service.PasswordService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "security-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keys, err := InitAuthKeys(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}

	app.codec, err = jwtx.NewCodec(keys, cfg.Issuer)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initBlacklist()
	app.initPublisher()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("security service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones up to the grace
// period and then releases every backing client.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down security service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Let detached reset requests publish before the publisher closes
	app.resetLifecycle.Wait()

	var errs []error

	if c, ok := app.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			app.logger.Error("error closing event publisher", "error", err)
			errs = append(errs, err)
		}
	}

	if err := app.rdb.Close(); err != nil {
		app.logger.Error("error closing redis client", "error", err)
		errs = append(errs, err)
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}

	app.logger.Info("security service stopped")
	return errors.Join(errs...)
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initBlacklist connects lazily; an unreachable Redis shows up in /readyz and
// makes validation report unavailable rather than failing startup.
func (app *Application) initBlacklist() {
	app.rdb = redis.NewClient(redis.Config{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	app.blacklist = redis.NewBlacklist(app.rdb, app.cfg.BlacklistPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := app.blacklist.Ping(ctx); err != nil {
		app.logger.Warn("token blacklist not reachable at startup", "addr", app.cfg.RedisAddr, "error", err)
	}
}

func (app *Application) initPublisher() {
	if len(app.cfg.KafkaBrokers) == 0 {
		app.logger.Warn("no kafka brokers configured, password events are only logged")
		app.publisher = events.LogPublisher{}
		return
	}

	app.publisher = kafka.NewPublisher(kafka.Config{
		Brokers: app.cfg.KafkaBrokers,
		Topic:   app.cfg.KafkaTopic,
	})
	app.logger.Info("publishing password events to kafka", "brokers", app.cfg.KafkaBrokers)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	dir := directory.New(app.db.Users())
	audit := &service.Auditor{Log: app.db.Audit()}
	app.auditor = audit

	app.engine = &service.ValidationEngine{
		Codec:     app.codec,
		Blacklist: app.blacklist,
	}

	issuer := &service.SessionIssuer{
		Codec:      app.codec,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	revoker := &service.RevocationCoordinator{
		Codec:       app.codec,
		Blacklist:   app.blacklist,
		FallbackTTL: app.cfg.RefreshTTL,
	}

	app.sessionService = &service.SessionService{
		Authenticator: &service.CredentialAuthenticator{Directory: dir},
		Issuer:        issuer,
		Rotator: &service.RefreshRotator{
			Engine:         app.engine,
			Issuer:         issuer,
			Directory:      dir,
			Revoker:        revoker,
			RevokePrevious: app.cfg.RotateRevokesPrevious,
		},
		Revoker: revoker,
		Audit:   audit,
	}

	app.resetLifecycle = &service.ResetTokenLifecycle{
		Store:     app.db,
		Emails:    dir,
		Directory: dir,
		Publisher: app.publisher,
		Policy:    app.cfg.PasswordPolicy,
		Audit:     audit,
		TTL:       app.cfg.ResetTokenTTL,
		BaseURL:   app.cfg.ResetBaseURL,
		Detach:    true,
	}

	app.passwordService = &service.PasswordService{
		Directory: dir,
		Policy:    app.cfg.PasswordPolicy,
		Audit:     audit,
	}

	app.bootstrapService = &service.BootstrapService{
		Store:  app.db,
		Token:  app.cfg.BootstrapToken,
		Policy: app.cfg.PasswordPolicy,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.ResetRetention,
	)
	app.housekeepingService.AuditRetention = app.cfg.AuditRetention
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.codec.Keys(),
		BuildVersion,
		app.db,
		app.blacklist,
		app.logger,
	)

	// Wire services to router
	router.Engine = app.engine
	router.SessionService = app.sessionService
	router.ResetLifecycle = app.resetLifecycle
	router.PasswordService = app.passwordService
	router.BootstrapService = app.bootstrapService
	router.Auditor = app.auditor
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
