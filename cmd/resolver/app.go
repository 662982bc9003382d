package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-pool-resolver/internal/config"
	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/observability"
	"solana-pool-resolver/internal/resolver"
	"solana-pool-resolver/internal/solana"
	"solana-pool-resolver/internal/storage"
	"solana-pool-resolver/internal/storage/memory"
	"solana-pool-resolver/internal/storage/migrations"
	pgstore "solana-pool-resolver/internal/storage/postgres"
	"solana-pool-resolver/internal/tokenapi"
)

// app holds the wired collaborators for one command invocation.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	resolver *resolver.Resolver
	curated  storage.CuratedTokenStore
	closers  []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	metrics := observability.DefaultMetrics

	curated, err := a.openCuratedStore(ctx, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.curated = curated

	native := domain.NativeToken()
	native.ChainID = cfg.ChainID

	rpc := solana.NewHTTPClient(cfg.RPCURL, solana.WithMetrics(metrics))
	api := tokenapi.NewClient(cfg.APIURL, tokenapi.WithMetrics(metrics))

	res, err := resolver.New(resolver.Config{
		TokenListTTL:    &cfg.TokenListTTL,
		RetryInterval:   cfg.RetryInterval,
		MaxListAttempts: cfg.MaxListAttempts,
		CPMMProgramID:   cfg.CPMMProgram,
		Native:          native,
		ListSource:      api,
		API:             api,
		Ledger:          rpc,
		Curated:         curated,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.resolver = res
	return a, nil
}

// openCuratedStore uses Postgres when a DSN is configured and seeds it with
// the config file list. Otherwise the config file list is kept in memory.
func (a *app) openCuratedStore(ctx context.Context, metrics *observability.Metrics) (storage.CuratedTokenStore, error) {
	if a.cfg.PostgresDSN == "" {
		return memory.NewCuratedTokenStore(a.cfg.Curated...), nil
	}

	pool, err := pgstore.NewPool(ctx, a.cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := pgstore.NewCuratedTokenStore(pool, metrics)
	for _, rec := range a.cfg.Curated {
		if err := store.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("seed curated token %s: %w", rec.Address, err)
		}
	}
	a.logger.Info("postgres curated store ready", zap.Int("seeded", len(a.cfg.Curated)))
	return store, nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
