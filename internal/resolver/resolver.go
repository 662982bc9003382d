// Package resolver is the entry point for token and pool lookups. It keeps
// the token table loaded from the external list and the curated store, caches
// upstream responses and decodes pool accounts read from the ledger.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-pool-resolver/internal/clock"
	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/observability"
	"solana-pool-resolver/internal/retry"
	"solana-pool-resolver/internal/solana"
	"solana-pool-resolver/internal/storage"
	"solana-pool-resolver/internal/tokens"
	"solana-pool-resolver/internal/ttlcache"
)

const (
	// DefaultTokenListTTL is how long a fetched external token list is served.
	DefaultTokenListTTL = 5 * time.Minute

	// EpochInfoTTL is how long fetched epoch info is served.
	EpochInfoTTL = 30 * time.Second

	// DefaultRetryInterval is the pause between token list fetch attempts.
	DefaultRetryInterval = retry.DefaultInterval
)

// ErrUpstreamFetchFailed is returned by Load when the token list could not be
// fetched within the configured number of attempts.
var ErrUpstreamFetchFailed = errors.New("upstream fetch failed")

// TokenListSource provides the bulk external token list.
type TokenListSource interface {
	TokenList(ctx context.Context) (domain.TokenList, error)
}

// Ledger reads accounts and epoch info from the chain.
type Ledger interface {
	tokens.AccountFetcher
	GetEpochInfo(ctx context.Context) (*solana.EpochInfo, error)
}

// Config configures a Resolver.
type Config struct {
	// TokenListTTL defaults to DefaultTokenListTTL when nil. Zero refetches
	// the list on every load and ttlcache.NeverExpire fetches it once.
	TokenListTTL *time.Duration

	// RetryInterval defaults to DefaultRetryInterval when zero or negative.
	RetryInterval time.Duration

	// MaxListAttempts bounds token list fetch attempts per load.
	// Zero retries until the fetch succeeds or ctx is cancelled.
	MaxListAttempts int

	// CPMMProgramID owns pool config and pool state accounts.
	// Defaults to CPMMProgramID.
	CPMMProgramID string

	// Native overrides the built-in official entry.
	Native domain.TokenRecord

	ListSource TokenListSource
	API        tokens.MetadataAPI
	Ledger     Ledger
	Curated    storage.CuratedTokenStore

	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// Resolver combines the token registry with cached upstream reads.
type Resolver struct {
	listSource      TokenListSource
	ledger          Ledger
	curated         storage.CuratedTokenStore
	programID       string
	retryInterval   time.Duration
	maxListAttempts int

	clock   clock.Clock
	logger  *zap.Logger
	metrics *observability.Metrics

	registry  *tokens.Registry
	tokenList *ttlcache.Cache[domain.TokenList]
	epochInfo *ttlcache.Cache[solana.EpochInfo]
	loadMu    sync.Mutex
}

// New creates a resolver. The token table holds only the native token until
// Load succeeds.
func New(cfg Config) (*Resolver, error) {
	if cfg.ListSource == nil {
		return nil, errors.New("resolver: token list source is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("resolver: ledger is required")
	}

	listTTL := DefaultTokenListTTL
	if cfg.TokenListTTL != nil {
		listTTL = *cfg.TokenListTTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.CPMMProgramID == "" {
		cfg.CPMMProgramID = CPMMProgramID
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.DefaultMetrics
	}

	r := &Resolver{
		listSource:      cfg.ListSource,
		ledger:          cfg.Ledger,
		curated:         cfg.Curated,
		programID:       cfg.CPMMProgramID,
		retryInterval:   cfg.RetryInterval,
		maxListAttempts: cfg.MaxListAttempts,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		registry: tokens.New(tokens.Config{
			Native:  cfg.Native,
			API:     cfg.API,
			Ledger:  cfg.Ledger,
			Logger:  cfg.Logger.Named("tokens"),
			Metrics: cfg.Metrics,
		}),
	}
	r.tokenList = ttlcache.New[domain.TokenList]("token_list", listTTL,
		ttlcache.WithClock(cfg.Clock), ttlcache.WithMetrics(cfg.Metrics))
	r.epochInfo = ttlcache.New[solana.EpochInfo]("epoch_info", EpochInfoTTL,
		ttlcache.WithClock(cfg.Clock), ttlcache.WithMetrics(cfg.Metrics))

	r.registry.Load(domain.TokenList{}, nil)
	return r, nil
}

// Load fetches the token list (through the cache unless forceRefresh) and
// the curated list, then replaces the token table. Concurrent calls run one
// at a time. On error the previous table stays in place.
func (r *Resolver) Load(ctx context.Context, forceRefresh bool) (tokens.LoadStats, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	var (
		list domain.TokenList
		err  error
	)
	if forceRefresh {
		list, err = r.tokenList.Refresh(ctx, r.fetchTokenList)
	} else {
		list, err = r.tokenList.Get(ctx, r.fetchTokenList)
	}
	if err != nil {
		return tokens.LoadStats{}, fmt.Errorf("load token list: %w", err)
	}

	var curated []domain.TokenRecord
	if r.curated != nil {
		curated, err = r.curated.List(ctx)
		if err != nil {
			return tokens.LoadStats{}, fmt.Errorf("load curated tokens: %w", err)
		}
	}

	return r.registry.Load(list, curated), nil
}

func (r *Resolver) fetchTokenList(ctx context.Context) (domain.TokenList, error) {
	opts := []retry.Option{
		retry.WithInterval(r.retryInterval),
		retry.WithClock(r.clock),
		retry.WithLogger(r.logger),
		retry.WithMetrics(r.metrics),
	}

	if r.maxListAttempts <= 0 {
		return retry.Forever(ctx, "fetch token list", r.listSource.TokenList, opts...)
	}

	list, err := retry.Bounded(ctx, "fetch token list", r.maxListAttempts, r.listSource.TokenList, opts...)
	if errors.Is(err, retry.ErrAttemptsExhausted) {
		return list, fmt.Errorf("%w: %w", ErrUpstreamFetchFailed, err)
	}
	return list, err
}

// EpochInfo returns the current epoch, served from cache for EpochInfoTTL.
func (r *Resolver) EpochInfo(ctx context.Context) (solana.EpochInfo, error) {
	info, err := r.epochInfo.Get(ctx, func(ctx context.Context) (solana.EpochInfo, error) {
		info, err := r.ledger.GetEpochInfo(ctx)
		if err != nil {
			return solana.EpochInfo{}, err
		}
		return *info, nil
	})
	if err != nil {
		return solana.EpochInfo{}, fmt.Errorf("get epoch info: %w", err)
	}
	return info, nil
}

// Resolve returns token metadata for address. See tokens.Registry.Resolve.
func (r *Resolver) Resolve(ctx context.Context, address string) (domain.TokenRecord, error) {
	return r.registry.Resolve(ctx, address)
}

// Tokens returns a copy of the token table.
func (r *Resolver) Tokens() map[string]domain.TokenRecord {
	return r.registry.Tokens()
}

// Token returns the table entry at address without upstream lookups.
func (r *Resolver) Token(address string) (domain.TokenRecord, bool) {
	return r.registry.Token(address)
}

// Addresses returns the sorted addresses that originated from src.
func (r *Resolver) Addresses(src domain.Source) []string {
	return r.registry.Addresses(src)
}

// Snapshot returns the table and provenance sets read together.
func (r *Resolver) Snapshot() tokens.Snapshot {
	return r.registry.Snapshot()
}

// TransferFee returns the transfer fee in effect for the token at address,
// or nil when the token carries no fee configuration.
func (r *Resolver) TransferFee(ctx context.Context, address string) (*domain.TransferFee, error) {
	rec, err := r.Resolve(ctx, address)
	if err != nil {
		return nil, err
	}
	if rec.Extensions.FeeConfig == nil {
		return nil, nil
	}

	info, err := r.EpochInfo(ctx)
	if err != nil {
		return nil, err
	}
	fee := rec.Extensions.FeeConfig.FeeAt(info.Epoch)
	return &fee, nil
}
