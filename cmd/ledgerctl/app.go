package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/clubledger/internal/config"
	"github.com/MrJamesThe3rd/clubledger/internal/database"
	"github.com/MrJamesThe3rd/clubledger/internal/gateway"
	"github.com/MrJamesThe3rd/clubledger/internal/ingest"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/clubledger/internal/ledger/store"
	"github.com/MrJamesThe3rd/clubledger/internal/linker"
	"github.com/MrJamesThe3rd/clubledger/internal/member"
	memberStore "github.com/MrJamesThe3rd/clubledger/internal/member/store"
	"github.com/MrJamesThe3rd/clubledger/internal/metrics"
	"github.com/MrJamesThe3rd/clubledger/internal/repair"
	"github.com/MrJamesThe3rd/clubledger/internal/syncer"
)

// Runs that write to the ledger share one lock so they never overlap.
const runLock = "ledger-run"

type app struct {
	db      *sql.DB
	lock    *database.Lock
	syncer  *syncer.Syncer
	toolkit *repair.Toolkit
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	lock, err := database.TryLock(ctx, db, runLock)
	if err != nil {
		db.Close()
		return nil, err
	}

	m := metrics.MustNew(nil)

	var (
		ledgerService = ledger.NewService(ledgerStore.New(db))
		memberService = member.NewService(memberStore.New(db))
	)

	chain, err := linker.NewDefault(memberService, cfg.Sync.LinkCacheSize)
	if err != nil {
		lock.Release(ctx)
		db.Close()

		return nil, err
	}

	client := gateway.NewStripe(cfg.Stripe.SecretKey,
		gateway.WithURL(cfg.Stripe.APIURL),
		gateway.WithPageSize(cfg.Sync.PageSize),
	)

	ingester := ingest.New(ledgerService, chain, ingest.WithMetrics(m))

	return &app{
		db:      db,
		lock:    lock,
		syncer:  syncer.New(client, ingester, ledgerService, cfg.Sync.HistoricalEpoch, syncer.WithMetrics(m)),
		toolkit: repair.New(ledgerService, memberService, repair.WithMetrics(m)),
	}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.lock.Release(context.WithoutCancel(ctx)); err != nil {
		slog.Error("failed to release run lock", "error", err)
	}

	if err := a.db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

func requireStripeKey(cfg *config.Config) error {
	if cfg.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}

	return nil
}
