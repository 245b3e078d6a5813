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

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"gateguard/internal/authority"
	"gateguard/internal/config"
	"gateguard/internal/infrastructure"
	custommw "gateguard/internal/middleware"
	"gateguard/internal/security"
	handlers "gateguard/internal/transport/http"
	"gateguard/pkg/contracts"
)

// Authority is the license-authority process container. It holds the signing
// key and the operator-maintained record store, and serves the validation
// endpoint used by deployed instances.
type Authority struct {
	Config *config.AuthorityConfig
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger
	Store  *authority.Store
	Signer *authority.Signer
}

func NewAuthority() (*Authority, error) {
	cfg, err := config.LoadAuthority()
	if err != nil {
		return nil, fmt.Errorf("failed to load authority configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = infrastructure.WithComponent(logger, "authority")

	logger.Info("license authority starting",
		slog.String("version", contracts.Version),
		slog.Int("port", cfg.Server.Port),
		slog.String("store_file", cfg.StoreFile))

	if !config.FileExists(cfg.PrivateKeyFile) {
		return nil, fmt.Errorf("signing key %s not found: generate a key pair with license-keygen", cfg.PrivateKeyFile)
	}
	privateKey, err := security.LoadPrivateKey(cfg.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	if !config.FileExists(cfg.StoreFile) {
		return nil, fmt.Errorf("license store %s not found", cfg.StoreFile)
	}

	store, err := authority.NewStore(cfg.StoreFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load license store: %w", err)
	}
	logger.Info("license store loaded", slog.Int("records", store.Len()))

	signer := authority.NewSigner(store, privateKey, cfg.RevalidationInterval, logger)

	a := &Authority{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Signer: signer,
	}
	a.Router = a.setupRouter()
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

func (a *Authority) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	if a.Config.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(a.Config.RateLimit.RPS, a.Config.RateLimit.Burst, a.Logger)
		r.Use(limiter.Handler)
	}

	r.Mount("/api", handlers.NewValidateHandler(a.Signer, a.Logger).Routes())

	return r
}

// Run serves validation requests until interrupted. SIGHUP reloads the
// license store from disk without restarting the process.
func (a *Authority) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("authority listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-reload:
				if err := a.Store.Reload(); err != nil {
					a.Logger.Error("license store reload failed", slog.String("error", err.Error()))
					continue
				}
				a.Logger.Info("license store reloaded", slog.Int("records", a.Store.Len()))
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(a.Config.Server.ShutdownTimeout))
		defer cancel()

		a.Logger.Info("shutting down")
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		infrastructure.CloseLogFile()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
