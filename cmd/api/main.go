package main

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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrJamesThe3rd/clubledger/internal/config"
	"github.com/MrJamesThe3rd/clubledger/internal/database"
	ledgerHttp "github.com/MrJamesThe3rd/clubledger/internal/http"
	ledgerHandler "github.com/MrJamesThe3rd/clubledger/internal/http/ledger"
	webhookHandler "github.com/MrJamesThe3rd/clubledger/internal/http/webhook"
	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/clubledger/internal/ledger/store"
	"github.com/MrJamesThe3rd/clubledger/internal/linker"
	"github.com/MrJamesThe3rd/clubledger/internal/logging"
	"github.com/MrJamesThe3rd/clubledger/internal/member"
	memberStore "github.com/MrJamesThe3rd/clubledger/internal/member/store"
	"github.com/MrJamesThe3rd/clubledger/internal/metrics"
	"github.com/MrJamesThe3rd/clubledger/internal/webhook"
	webhookStore "github.com/MrJamesThe3rd/clubledger/internal/webhook/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if _, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	if cfg.Stripe.WebhookSecret == "" {
		slog.Error("STRIPE_WEBHOOK_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := metrics.MustNew(reg)

	var (
		ledgerService = ledger.NewService(ledgerStore.New(db))
		memberService = member.NewService(memberStore.New(db))
	)

	chain, err := linker.NewDefault(memberService, cfg.Sync.LinkCacheSize)
	if err != nil {
		slog.Error("failed to build linker", "error", err)
		os.Exit(1)
	}

	var (
		ingester       = ingest.New(ledgerService, chain, ingest.WithMetrics(m))
		webhookService = webhook.NewService(webhookStore.New(db), ingester, cfg.Stripe.WebhookSecret, webhook.WithMetrics(m))
	)

	router := ledgerHttp.New(
		ledgerHandler.NewHandler(ledgerService),
		webhookHandler.NewHandler(webhookService),
		ledgerHttp.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	slog.Info("starting server", "port", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
