package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/billo/billo/internal/api"
	"github.com/billo/billo/internal/auth"
	"github.com/billo/billo/internal/config"
	"github.com/billo/billo/internal/metrics"
	"github.com/billo/billo/internal/notify"
	"github.com/billo/billo/internal/service"
	"github.com/billo/billo/internal/storage/sqlstore"
	"github.com/billo/billo/pkg/logging"
)

const devJWTSecret = "billo-development-secret"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	store, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.Database.Driver)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var notifier service.Notifier
	var dispatcher *notify.Dispatcher
	if cfg.NotificationsEnabled() {
		var sender notify.Sender = notify.LogSender{}
		if cfg.Email.ResendAPIKey != "" {
			sender = notify.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From)
		} else {
			slog.Warn("RESEND_API_KEY not set, notification emails will only be logged")
		}
		dispatcher = notify.NewDispatcher(store, sender, m, notify.Options{
			BufferSize: cfg.Notifications.BufferSize,
			AppURL:     cfg.Email.AppURL,
		})
		dispatcher.Start()
		notifier = dispatcher
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Only reachable in development; Validate rejects it elsewhere.
		slog.Warn("JWT_SECRET not set, using an insecure development secret")
		secret = devJWTSecret
	}

	handler := api.NewRouter(api.Deps{
		Assignments: service.NewAssignmentService(store),
		Settlements: service.NewSettlementService(store, notifier, m, cfg.Settlements.Currency),
		Receipts:    service.NewReceiptService(store, cfg.Settlements.Currency),
		Groups:      service.NewGroupService(store),
		Users:       service.NewUserService(store),
		JWT:         auth.NewJWTManager(secret, cfg.TokenTTL()),
		Metrics:     m,
		Gatherer:    reg,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	// h2c serves HTTP/2 without TLS behind a terminating proxy.
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", cfg.Addr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("Server failed", "error", err)
			dispatcher.Shutdown()
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	// Requests are finished, so nothing enqueues anymore.
	dispatcher.Shutdown()
	slog.Info("Server stopped")
}
