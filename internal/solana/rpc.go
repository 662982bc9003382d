package solana

import "context"

// RPCClient defines the Solana RPC reads used by the resolver.
type RPCClient interface {
	// GetAccount retrieves an account by address. Returns nil, nil if the account does not exist.
	GetAccount(ctx context.Context, address string) (*Account, error)

	// GetEpochInfo retrieves the current epoch.
	GetEpochInfo(ctx context.Context) (*EpochInfo, error)
}
