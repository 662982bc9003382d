package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/storage"
)

// CuratedTokenStore is an in-memory implementation of storage.CuratedTokenStore.
type CuratedTokenStore struct {
	mu        sync.RWMutex
	byAddress map[string]domain.TokenRecord
}

// NewCuratedTokenStore creates a store seeded with tokens. Later entries
// replace earlier ones at the same address; entries without an address are
// ignored.
func NewCuratedTokenStore(seed ...domain.TokenRecord) *CuratedTokenStore {
	s := &CuratedTokenStore{
		byAddress: make(map[string]domain.TokenRecord, len(seed)),
	}
	for _, rec := range seed {
		if rec.Address == "" {
			continue
		}
		s.byAddress[rec.Address] = rec.Clone()
	}
	return s
}

// List returns all tokens ordered by address.
func (s *CuratedTokenStore) List(_ context.Context) ([]domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TokenRecord, 0, len(s.byAddress))
	for _, rec := range s.byAddress {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address < out[j].Address
	})
	return out, nil
}

// Upsert inserts or replaces the token at rec.Address.
func (s *CuratedTokenStore) Upsert(_ context.Context, rec domain.TokenRecord) error {
	if rec.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byAddress[rec.Address] = rec.Clone()
	return nil
}

// Delete removes the token at address. Returns ErrNotFound if not exists.
func (s *CuratedTokenStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[address]; !exists {
		return storage.ErrNotFound
	}
	delete(s.byAddress, address)
	return nil
}

var _ storage.CuratedTokenStore = (*CuratedTokenStore)(nil)
