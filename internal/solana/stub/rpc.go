package stub

import (
	"context"
	"errors"
	"sync"

	"solana-pool-resolver/internal/solana"
)

// ErrUnavailable is returned when the stub is configured to fail.
var ErrUnavailable = errors.New("rpc unavailable")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu       sync.Mutex
	Accounts map[string]*solana.Account
	Epoch    *solana.EpochInfo
	Fail     bool
	calls    map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts: make(map[string]*solana.Account),
		calls:    make(map[string]int),
	}
}

// GetAccount retrieves an account from the stub store. Missing accounts return nil, nil.
func (c *RPCClient) GetAccount(_ context.Context, address string) (*solana.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls["getAccountInfo"]++
	if c.Fail {
		return nil, ErrUnavailable
	}
	acct, ok := c.Accounts[address]
	if !ok {
		return nil, nil
	}
	cp := *acct
	cp.Data = append([]byte(nil), acct.Data...)
	return &cp, nil
}

// GetEpochInfo returns the configured epoch.
func (c *RPCClient) GetEpochInfo(_ context.Context) (*solana.EpochInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls["getEpochInfo"]++
	if c.Fail || c.Epoch == nil {
		return nil, ErrUnavailable
	}
	cp := *c.Epoch
	return &cp, nil
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(acct *solana.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[acct.Address] = acct
}

// SetEpoch sets the epoch returned by GetEpochInfo.
func (c *RPCClient) SetEpoch(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Epoch = &solana.EpochInfo{Epoch: epoch, SlotsInEpoch: 432000}
}

// SetFail toggles failure mode.
func (c *RPCClient) SetFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Fail = fail
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

var _ solana.RPCClient = (*RPCClient)(nil)
