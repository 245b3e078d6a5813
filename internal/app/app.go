// Package app wires the deployed instance and authority processes together:
// configuration, logging, telemetry, the license startup gate, and the HTTP
// servers with graceful shutdown.
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

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"gateguard/internal/config"
	"gateguard/internal/infrastructure"
	"gateguard/internal/license"
	custommw "gateguard/internal/middleware"
	"gateguard/internal/security"
	"gateguard/internal/services"
	handlers "gateguard/internal/transport/http"
	"gateguard/internal/updater"
	"gateguard/pkg/contracts"
)

// Application is the deployed-instance container.
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	LicenseService services.LicenseService
	UpdateService  services.UpdateService
	OTelProviders  *infrastructure.OTelProviders

	// Grant is the validated-license handle produced by the startup gate.
	// It is set exactly once, before the listener starts.
	Grant *license.Grant
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port))

	if err := cfg.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	if !config.FileExists(cfg.License.PublicKeyFile) {
		return nil, fmt.Errorf("license public key %s not found: generate a key pair with license-keygen and deploy the public key", cfg.License.PublicKeyFile)
	}
	publicKey, err := security.LoadPublicKey(cfg.License.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load license public key: %w", err)
	}

	machineID, err := security.NewFingerprintManager().MachineID()
	if err != nil {
		return nil, fmt.Errorf("failed to compute machine identity: %w", err)
	}

	client := license.NewClient(cfg.License.ServerURL, cfg.License.RequestTimeout, logger)
	cache := license.NewCache(cfg.Paths.CacheFile, logger)
	verifier := license.NewVerifier(client, cache, publicKey, cfg.License.Key, machineID, logger)
	licenseService := services.NewLicenseService(verifier, logger)

	updateSvc, err := updater.NewService(contracts.Version, cfg.Update.ManifestURL,
		cfg.Paths.StagingDir, cfg.Update.RequestTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}
	updateService := services.NewUpdateService(updateSvc, logger)

	app := &Application{
		Config:         cfg,
		Logger:         logger,
		LicenseService: licenseService,
		UpdateService:  updateService,
		OTelProviders:  otelProviders,
	}
	app.Router = app.setupRouter()
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

func (app *Application) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.StructuredLogger(app.Logger))
	r.Use(custommw.Recoverer(app.Logger))
	if app.Config.Security.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(
			app.Config.Security.RateLimit.RPS,
			app.Config.Security.RateLimit.Burst,
			app.Logger)
		r.Use(limiter.Handler)
	}

	adminOnly := custommw.RequireAdmin(app.Config.Security.AdminTokenHash, app.Logger)

	licenseHandler := handlers.NewLicenseHandler(app.LicenseService, app.Logger)
	updateHandler := handlers.NewUpdateHandler(app.UpdateService, app.Logger)
	healthHandler := handlers.NewHealthHandler(app.LicenseService)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/license", licenseHandler.Routes())
		r.Mount("/update", updateHandler.Routes(adminOnly))
		r.Mount("/health", healthHandler.Routes())
	})
	r.Method(http.MethodGet, "/metrics", handlers.NewMetricsHandler(app.OTelProviders.PrometheusHTTP))

	return r
}

// Run validates the license, then serves until interrupted. License
// validation is a blocking gate: the listener does not start until a grant is
// resolved, and any validation failure aborts startup.
func (app *Application) Run() error {
	ctx := infrastructure.EnsureTraceID(context.Background())

	grant, err := app.LicenseService.EnsureValid(ctx)
	if err != nil {
		infrastructure.WithError(app.Logger, err).ErrorContext(ctx, "license validation failed, aborting startup")
		return fmt.Errorf("license validation failed: %w", err)
	}
	app.Grant = grant

	app.Logger.Info("license gate passed",
		slog.String("license_key", grant.LicenseKey()),
		slog.String("source", string(grant.Source())),
		slog.Time("expires_at", grant.ExpiresAt()))

	// A license can demand a newer build before the instance may serve.
	if min := grant.MinimumRequiredVersion(); min != "" {
		cmp, err := updater.CompareVersions(contracts.Version, min)
		if err != nil {
			app.Logger.Warn("unparsable minimum required version in grant",
				slog.String("minimum_version", min))
		} else if cmp < 0 {
			return fmt.Errorf("running version %s is below the license minimum %s: update required before startup",
				contracts.Version, min)
		}
	}

	return app.serve(ctx)
}

func (app *Application) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info("http server listening", slog.String("addr", app.Server.Addr))
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(app.Config.Server.ShutdownTimeout))
		defer cancel()

		app.Logger.Info("shutting down")
		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		if app.OTelProviders != nil {
			if err := app.OTelProviders.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
			}
		}
		infrastructure.CloseLogFile()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// shutdownTimeout guards against configs that zero the timeout.
func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
