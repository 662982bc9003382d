// Package tokens merges token metadata from the native asset, the external
// token list and the curated list into one address-keyed table, and resolves
// unknown addresses on demand.
package tokens

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/observability"
	"solana-pool-resolver/internal/solana"
)

var (
	// ErrEmptyInput is returned by Resolve for an empty address.
	ErrEmptyInput = errors.New("empty token address")

	// ErrUnknownMint is returned when no tier can resolve an address.
	ErrUnknownMint = errors.New("unknown mint")
)

// MetadataAPI looks up token metadata in batches. Result order is not
// guaranteed to follow the input.
type MetadataAPI interface {
	TokenInfo(ctx context.Context, mints []string) ([]domain.TokenRecord, error)
}

// AccountFetcher reads raw ledger accounts. A missing account is nil, nil.
type AccountFetcher interface {
	GetAccount(ctx context.Context, address string) (*solana.Account, error)
}

// Config configures a Registry.
type Config struct {
	// Native is the built-in official entry. Zero value uses domain.NativeToken().
	Native  domain.TokenRecord
	API     MetadataAPI
	Ledger  AccountFetcher
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// LoadStats summarizes a completed Load.
type LoadStats struct {
	Generation  uint64
	Official    int
	External    int
	Curated     int
	Blacklisted int
	Total       int
}

// Registry is the merged token table. Safe for concurrent use.
type Registry struct {
	native  domain.TokenRecord
	api     MetadataAPI
	ledger  AccountFetcher
	logger  *zap.Logger
	metrics *observability.Metrics

	mu   sync.RWMutex
	snap *snapshot
}

// New creates a registry with an empty table.
func New(cfg Config) *Registry {
	native := cfg.Native
	if native.Address == "" {
		native = domain.NativeToken()
	}
	native.Priority = domain.PriorityOfficial

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	return &Registry{
		native:  native,
		api:     cfg.API,
		ledger:  cfg.Ledger,
		logger:  logger,
		metrics: metrics,
		snap:    newSnapshot(0),
	}
}

// Load rebuilds the table from scratch and replaces the current snapshot.
// Merge order is native, then external, then curated; a later source
// overwrites an earlier record at the same address. Provenance sets record
// every source an address appeared in.
func (r *Registry) Load(list domain.TokenList, curated []domain.TokenRecord) LoadStats {
	start := time.Now()

	next := newSnapshot(0)

	native := r.native.Clone()
	next.put(domain.SourceOfficial, native)

	blacklist := make(map[string]struct{}, len(list.Blacklist))
	for _, addr := range list.Blacklist {
		blacklist[addr] = struct{}{}
	}

	stats := LoadStats{Official: 1}
	for _, t := range list.Tokens {
		if t.Address == "" {
			r.logger.Debug("skip external token without address", zap.String("symbol", t.Symbol))
			continue
		}
		if _, banned := blacklist[t.Address]; banned {
			stats.Blacklisted++
			continue
		}
		rec := t.Clone()
		rec.Priority = domain.PriorityListed
		next.put(domain.SourceExternal, rec)
		stats.External++
	}

	for _, t := range curated {
		if t.Address == "" {
			r.logger.Debug("skip curated token without address", zap.String("symbol", t.Symbol))
			continue
		}
		rec := t.Clone()
		rec.Priority = domain.PriorityListed
		next.put(domain.SourceCurated, rec)
		stats.Curated++
	}
	stats.Total = len(next.table)

	r.mu.Lock()
	next.generation = r.snap.generation + 1
	r.snap = next
	r.mu.Unlock()
	stats.Generation = next.generation

	r.metrics.RecordLoad(map[string]int{
		domain.SourceOfficial.String(): stats.Official,
		domain.SourceExternal.String(): len(next.groups[domain.SourceExternal]),
		domain.SourceCurated.String():  len(next.groups[domain.SourceCurated]),
	}, time.Since(start).Seconds(), time.Now().Unix())

	r.logger.Info("token table loaded",
		zap.Uint64("generation", stats.Generation),
		zap.Int("external", stats.External),
		zap.Int("curated", stats.Curated),
		zap.Int("blacklisted", stats.Blacklisted),
		zap.Int("total", stats.Total),
	)

	return stats
}

// Native returns the built-in official record.
func (r *Registry) Native() domain.TokenRecord {
	return r.native.Clone()
}

// Token returns the record stored at address.
func (r *Registry) Token(address string) (domain.TokenRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.snap.table[address]
	if !ok {
		return domain.TokenRecord{}, false
	}
	return rec.Clone(), true
}

// Tokens returns a copy of the whole table.
func (r *Registry) Tokens() map[string]domain.TokenRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.TokenRecord, len(r.snap.table))
	for addr, rec := range r.snap.table {
		out[addr] = rec.Clone()
	}
	return out
}

// Addresses returns the sorted addresses that originated from src.
func (r *Registry) Addresses(src domain.Source) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedKeys(r.snap.groups[src])
}

// Len returns the number of distinct addresses in the table.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snap.table)
}

// Generation returns the number of completed loads.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.generation
}

// Snapshot is a point-in-time copy of the table and provenance sets.
type Snapshot struct {
	Generation uint64
	Table      map[string]domain.TokenRecord
	Groups     map[domain.Source][]string
}

// Snapshot returns the table and provenance sets read under one lock.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Snapshot{
		Generation: r.snap.generation,
		Table:      make(map[string]domain.TokenRecord, len(r.snap.table)),
		Groups:     make(map[domain.Source][]string, len(domain.Sources)),
	}
	for addr, rec := range r.snap.table {
		out.Table[addr] = rec.Clone()
	}
	for _, src := range domain.Sources {
		out.Groups[src] = sortedKeys(r.snap.groups[src])
	}
	return out
}

// addCurated appends a lazily resolved record to the current snapshot.
func (r *Registry) addCurated(rec domain.TokenRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.put(domain.SourceCurated, rec)
}

type snapshot struct {
	generation uint64
	table      map[string]domain.TokenRecord
	groups     map[domain.Source]map[string]struct{}
}

func newSnapshot(generation uint64) *snapshot {
	s := &snapshot{
		generation: generation,
		table:      make(map[string]domain.TokenRecord),
		groups:     make(map[domain.Source]map[string]struct{}, len(domain.Sources)),
	}
	for _, src := range domain.Sources {
		s.groups[src] = make(map[string]struct{})
	}
	return s
}

func (s *snapshot) put(src domain.Source, rec domain.TokenRecord) {
	s.table[rec.Address] = rec
	s.groups[src][rec.Address] = struct{}{}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
