package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pool-resolver/internal/clock"
	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/layout"
	"solana-pool-resolver/internal/observability"
	"solana-pool-resolver/internal/solana"
	"solana-pool-resolver/internal/solana/stub"
	"solana-pool-resolver/internal/storage/memory"
	"solana-pool-resolver/internal/ttlcache"
)

const (
	mintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	mintRAY  = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
	mintFee  = "2b1kV6DkPAnxd5ixfnxCpjxmKwqjjaYmCZfHsFu24GXo"
)

var errListDown = errors.New("list endpoint down")

type fakeListSource struct {
	mu       sync.Mutex
	list     domain.TokenList
	failures int
	calls    int
}

func (f *fakeListSource) TokenList(_ context.Context) (domain.TokenList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return domain.TokenList{}, errListDown
	}
	return f.list, nil
}

func (f *fakeListSource) set(list domain.TokenList, failures int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = list
	f.failures = failures
}

func (f *fakeListSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	res     *Resolver
	list    *fakeListSource
	ledger  *stub.RPCClient
	curated *memory.CuratedTokenStore
	clock   *clock.Fake
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	f := &fixture{
		list: &fakeListSource{list: domain.TokenList{Tokens: []domain.TokenRecord{
			{Address: mintUSDC, Symbol: "USDC", Decimals: 6},
			{Address: mintRAY, Symbol: "RAY", Decimals: 6},
		}}},
		ledger:  stub.NewRPCClient(),
		curated: memory.NewCuratedTokenStore(),
		clock:   clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	cfg := Config{
		ListSource: f.list,
		Ledger:     f.ledger,
		Curated:    f.curated,
		Clock:      f.clock,
		Metrics:    observability.NewMetrics("test", prometheus.NewRegistry()),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	res, err := New(cfg)
	require.NoError(t, err)
	f.res = res
	return f
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{Ledger: stub.NewRPCClient()})
	assert.Error(t, err)

	_, err = New(Config{ListSource: &fakeListSource{}})
	assert.Error(t, err)
}

func TestLoad_PopulatesTable(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.curated.Upsert(context.Background(), domain.TokenRecord{Address: mintUSDC, Symbol: "USDC-LOCAL"}))

	stats, err := f.res.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.External)
	assert.Equal(t, 1, stats.Curated)
	assert.Equal(t, 3, stats.Total)

	usdc, ok := f.res.Token(mintUSDC)
	require.True(t, ok)
	assert.Equal(t, "USDC-LOCAL", usdc.Symbol)
	assert.Len(t, f.res.Tokens(), 3)
	assert.Equal(t, []string{mintUSDC}, f.res.Addresses(domain.SourceCurated))
}

func TestLoad_ServesCachedListWithinTTL(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.res.Load(ctx, false)
	require.NoError(t, err)
	f.clock.Advance(DefaultTokenListTTL)
	_, err = f.res.Load(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.list.Calls())

	f.clock.Advance(time.Millisecond)
	_, err = f.res.Load(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.list.Calls())
}

func TestLoad_ForceRefresh(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.res.Load(ctx, false)
	require.NoError(t, err)

	f.list.set(domain.TokenList{Tokens: []domain.TokenRecord{{Address: mintRAY, Symbol: "RAY"}}}, 0)
	_, err = f.res.Load(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, 2, f.list.Calls())
	_, ok := f.res.Token(mintUSDC)
	assert.False(t, ok, "refreshed load must replace the table")
}

func TestLoad_CuratedChangesApplyOnCachedList(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.res.Load(ctx, false)
	require.NoError(t, err)

	require.NoError(t, f.curated.Upsert(ctx, domain.TokenRecord{Address: mintFee, Symbol: "FEE"}))
	_, err = f.res.Load(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 1, f.list.Calls())
	rec, ok := f.res.Token(mintFee)
	require.True(t, ok)
	assert.Equal(t, domain.PriorityListed, rec.Priority)
}

func TestLoad_NeverExpire(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		ttl := ttlcache.NeverExpire
		cfg.TokenListTTL = &ttl
	})
	ctx := context.Background()

	_, err := f.res.Load(ctx, false)
	require.NoError(t, err)
	f.clock.Advance(365 * 24 * time.Hour)
	_, err = f.res.Load(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 1, f.list.Calls())
}

func TestLoad_ZeroTTLRefetchesEveryLoad(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		var ttl time.Duration
		cfg.TokenListTTL = &ttl
	})
	ctx := context.Background()

	_, err := f.res.Load(ctx, false)
	require.NoError(t, err)
	_, err = f.res.Load(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 2, f.list.Calls())
}

func TestLoad_RetriesUntilSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.list.set(f.list.list, 3)

	_, err := f.res.Load(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 4, f.list.Calls())
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, f.clock.Sleeps())
	_, ok := f.res.Token(mintUSDC)
	assert.True(t, ok)
}

func TestLoad_CustomRetryInterval(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.RetryInterval = 250 * time.Millisecond
	})
	f.list.set(f.list.list, 1)

	_, err := f.res.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, f.clock.Sleeps())
}

func TestLoad_ForeverStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.list.set(domain.TokenList{}, -1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.res.Load(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUpstreamFetchFailed)
}

func TestLoad_BoundedAttempts(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.MaxListAttempts = 3
	})
	ctx := context.Background()

	_, err := f.res.Load(ctx, false)
	require.NoError(t, err)
	gen := f.res.Snapshot().Generation

	f.list.set(domain.TokenList{}, -1)
	_, err = f.res.Load(ctx, true)
	require.ErrorIs(t, err, ErrUpstreamFetchFailed)
	assert.ErrorIs(t, err, errListDown)
	assert.Equal(t, 4, f.list.Calls())

	// Failed refresh keeps the previous table.
	assert.Equal(t, gen, f.res.Snapshot().Generation)
	_, ok := f.res.Token(mintUSDC)
	assert.True(t, ok)
}

func TestLoad_CuratedStoreError(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Curated = failingStore{}
	})

	_, err := f.res.Load(context.Background(), false)
	assert.ErrorIs(t, err, errStoreDown)
	_, ok := f.res.Token(mintUSDC)
	assert.False(t, ok)
}

func TestLoad_Concurrent(t *testing.T) {
	f := newFixture(t, nil)
	before := f.res.Snapshot().Generation

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.res.Load(context.Background(), false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.list.Calls())
	assert.Equal(t, before+10, f.res.Snapshot().Generation)
}

func TestResolve_BeforeLoad(t *testing.T) {
	f := newFixture(t, nil)

	rec, err := f.res.Resolve(context.Background(), "SOL")
	require.NoError(t, err)
	assert.Equal(t, domain.NativeMint, rec.Address)

	rec, err = f.res.Resolve(context.Background(), domain.NativeMint)
	require.NoError(t, err)
	assert.Equal(t, "SOL", rec.Symbol)
}

func TestEpochInfo_Cached(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.ledger.SetEpoch(600)

	info, err := f.res.EpochInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), info.Epoch)

	f.ledger.SetEpoch(601)
	f.clock.Advance(EpochInfoTTL)
	info, err = f.res.EpochInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), info.Epoch)
	assert.Equal(t, 1, f.ledger.Calls("getEpochInfo"))

	f.clock.Advance(time.Millisecond)
	info, err = f.res.EpochInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(601), info.Epoch)
}

func TestEpochInfo_Error(t *testing.T) {
	f := newFixture(t, nil)
	f.ledger.SetFail(true)

	_, err := f.res.EpochInfo(context.Background())
	assert.ErrorIs(t, err, stub.ErrUnavailable)
}

func TestTransferFee(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.curated.Upsert(ctx, domain.TokenRecord{
		Address: mintFee,
		Symbol:  "FEE",
		Extensions: domain.Extensions{FeeConfig: &domain.TransferFeeConfig{
			OlderTransferFee: domain.TransferFee{Epoch: 500, MaximumFee: 1000, TransferFeeBasisPoints: 50},
			NewerTransferFee: domain.TransferFee{Epoch: 610, MaximumFee: 2000, TransferFeeBasisPoints: 100},
		}},
	}))
	_, err := f.res.Load(ctx, false)
	require.NoError(t, err)

	f.ledger.SetEpoch(600)
	fee, err := f.res.TransferFee(ctx, mintFee)
	require.NoError(t, err)
	require.NotNil(t, fee)
	assert.Equal(t, uint16(50), fee.TransferFeeBasisPoints)

	f.ledger.SetEpoch(610)
	f.clock.Advance(EpochInfoTTL + time.Second)
	fee, err = f.res.TransferFee(ctx, mintFee)
	require.NoError(t, err)
	require.NotNil(t, fee)
	assert.Equal(t, uint16(100), fee.TransferFeeBasisPoints)

	fee, err = f.res.TransferFee(ctx, mintUSDC)
	require.NoError(t, err)
	assert.Nil(t, fee)
}

var errStoreDown = errors.New("store down")

type failingStore struct{}

func (failingStore) List(context.Context) ([]domain.TokenRecord, error) {
	return nil, errStoreDown
}

func (failingStore) Upsert(context.Context, domain.TokenRecord) error {
	return errStoreDown
}

func (failingStore) Delete(context.Context, string) error {
	return errStoreDown
}

func addAccount(ledger *stub.RPCClient, address, owner string, data []byte) {
	ledger.AddAccount(&solana.Account{Address: address, Owner: owner, Data: data, Lamports: 1})
}

func encode(t *testing.T, schema *layout.Schema, rec layout.Record) []byte {
	t.Helper()
	buf, err := schema.Encode(rec)
	require.NoError(t, err)
	return buf
}
