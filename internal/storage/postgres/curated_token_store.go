package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/observability"
	"solana-pool-resolver/internal/storage"
)

// CuratedTokenStore implements storage.CuratedTokenStore using PostgreSQL.
type CuratedTokenStore struct {
	pool    *Pool
	metrics *observability.Metrics
}

// NewCuratedTokenStore creates a new CuratedTokenStore. metrics may be nil.
func NewCuratedTokenStore(pool *Pool, metrics *observability.Metrics) *CuratedTokenStore {
	return &CuratedTokenStore{pool: pool, metrics: metrics}
}

// Compile-time interface check.
var _ storage.CuratedTokenStore = (*CuratedTokenStore)(nil)

// List returns all curated tokens ordered by address.
func (s *CuratedTokenStore) List(ctx context.Context) (out []domain.TokenRecord, err error) {
	defer s.observe("list", time.Now(), &err)

	query := `
		SELECT address, chain_id, program_id, logo_uri, symbol, name, decimals,
		       tags, token_type, extensions
		FROM curated_tokens
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query curated tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanCuratedToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan curated token: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curated tokens: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces the token at rec.Address.
func (s *CuratedTokenStore) Upsert(ctx context.Context, rec domain.TokenRecord) (err error) {
	if rec.Address == "" {
		return storage.ErrInvalidInput
	}
	defer s.observe("upsert", time.Now(), &err)

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	ext, err := json.Marshal(rec.Extensions)
	if err != nil {
		return fmt.Errorf("encode extensions: %w", err)
	}

	query := `
		INSERT INTO curated_tokens (
			address, chain_id, program_id, logo_uri, symbol, name, decimals,
			tags, token_type, extensions, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (address) DO UPDATE SET
			chain_id = EXCLUDED.chain_id,
			program_id = EXCLUDED.program_id,
			logo_uri = EXCLUDED.logo_uri,
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			decimals = EXCLUDED.decimals,
			tags = EXCLUDED.tags,
			token_type = EXCLUDED.token_type,
			extensions = EXCLUDED.extensions,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		rec.Address,
		rec.ChainID,
		rec.ProgramID,
		rec.LogoURI,
		rec.Symbol,
		rec.Name,
		rec.Decimals,
		tags,
		rec.Type,
		ext,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert curated token: %w", err)
	}
	return nil
}

// Delete removes the token at address. Returns ErrNotFound if not exists.
func (s *CuratedTokenStore) Delete(ctx context.Context, address string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `DELETE FROM curated_tokens WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("delete curated token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *CuratedTokenStore) observe(op string, start time.Time, err *error) {
	s.metrics.RecordDBQuery("postgres", op, time.Since(start).Seconds(), *err)
}

// scanCuratedToken scans a single row into a TokenRecord.
func scanCuratedToken(row pgx.Row) (domain.TokenRecord, error) {
	var (
		rec  domain.TokenRecord
		tags []byte
		ext  []byte
	)

	err := row.Scan(
		&rec.Address,
		&rec.ChainID,
		&rec.ProgramID,
		&rec.LogoURI,
		&rec.Symbol,
		&rec.Name,
		&rec.Decimals,
		&tags,
		&rec.Type,
		&ext,
	)
	if err != nil {
		return domain.TokenRecord{}, err
	}

	if err := json.Unmarshal(tags, &rec.Tags); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(ext, &rec.Extensions); err != nil {
		return domain.TokenRecord{}, fmt.Errorf("decode extensions: %w", err)
	}
	rec.Priority = domain.PriorityListed
	return rec, nil
}
