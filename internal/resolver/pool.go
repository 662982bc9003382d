package resolver

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/layout"
	"solana-pool-resolver/internal/solana"
)

// CPMMProgramID is the mainnet constant-product AMM program.
const CPMMProgramID = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"

const ammConfigSeed = "amm_config"

// ErrAccountNotFound is returned when a requested pool account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// Pool is a decoded pool state with its fee configuration and both tokens.
type Pool struct {
	Address string             `json:"address"`
	State   *layout.PoolState  `json:"state"`
	Config  *layout.PoolConfig `json:"config"`
	MintA   domain.TokenRecord `json:"mintA"`
	MintB   domain.TokenRecord `json:"mintB"`
}

// AmmConfigAddress derives the pool config account for index under programID.
func AmmConfigAddress(programID string, index uint16) (string, error) {
	idx := make([]byte, 2)
	binary.BigEndian.PutUint16(idx, index)

	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(ammConfigSeed), idx}, programID)
	if err != nil {
		return "", fmt.Errorf("derive amm config %d: %w", index, err)
	}
	return addr, nil
}

// PoolConfig fetches and decodes the pool config account at address.
func (r *Resolver) PoolConfig(ctx context.Context, address string) (*layout.PoolConfig, error) {
	data, err := r.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	cfg, err := layout.DecodePoolConfig(data)
	if err != nil {
		return nil, fmt.Errorf("pool config %s: %w", address, err)
	}
	return cfg, nil
}

// PoolConfigByIndex fetches the pool config derived from index.
// Returns the derived address with the decoded account.
func (r *Resolver) PoolConfigByIndex(ctx context.Context, index uint16) (string, *layout.PoolConfig, error) {
	addr, err := AmmConfigAddress(r.programID, index)
	if err != nil {
		return "", nil, err
	}
	cfg, err := r.PoolConfig(ctx, addr)
	if err != nil {
		return addr, nil, err
	}
	return addr, cfg, nil
}

// PoolState fetches and decodes the pool state account at address.
func (r *Resolver) PoolState(ctx context.Context, address string) (*layout.PoolState, error) {
	data, err := r.accountData(ctx, address)
	if err != nil {
		return nil, err
	}
	st, err := layout.DecodePoolState(data)
	if err != nil {
		return nil, fmt.Errorf("pool state %s: %w", address, err)
	}
	return st, nil
}

// Pool decodes the pool at address together with its config and resolves
// both mints.
func (r *Resolver) Pool(ctx context.Context, address string) (*Pool, error) {
	st, err := r.PoolState(ctx, address)
	if err != nil {
		return nil, err
	}
	cfg, err := r.PoolConfig(ctx, st.ConfigID)
	if err != nil {
		return nil, err
	}

	mintA, err := r.Resolve(ctx, st.MintA)
	if err != nil {
		return nil, fmt.Errorf("pool %s mint a: %w", address, err)
	}
	mintB, err := r.Resolve(ctx, st.MintB)
	if err != nil {
		return nil, fmt.Errorf("pool %s mint b: %w", address, err)
	}

	return &Pool{
		Address: address,
		State:   st,
		Config:  cfg,
		MintA:   mintA,
		MintB:   mintB,
	}, nil
}

func (r *Resolver) accountData(ctx context.Context, address string) ([]byte, error) {
	acct, err := r.ledger.GetAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	if acct.Owner != r.programID {
		r.logger.Debug("account owner differs from pool program",
			zap.String("address", address),
			zap.String("owner", acct.Owner),
			zap.String("program", r.programID),
		)
	}
	return acct.Data, nil
}
