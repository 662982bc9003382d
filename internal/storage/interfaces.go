package storage

import (
	"context"

	"solana-pool-resolver/internal/domain"
)

// CuratedTokenStore provides access to the locally maintained token list.
type CuratedTokenStore interface {
	// List returns all curated tokens ordered by address.
	List(ctx context.Context) ([]domain.TokenRecord, error)

	// Upsert inserts or replaces the token at rec.Address.
	// Returns ErrInvalidInput if the address is empty.
	Upsert(ctx context.Context, rec domain.TokenRecord) error

	// Delete removes the token at address. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, address string) error
}
