package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pool-resolver/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultCPMMProgram, cfg.CPMMProgram)
	assert.Equal(t, domain.MainnetChainID, cfg.ChainID)
	assert.Equal(t, 5*time.Minute, cfg.TokenListTTL)
	assert.Equal(t, time.Second, cfg.RetryInterval)
	assert.Equal(t, 0, cfg.MaxListAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Empty(t, cfg.Curated)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
rpc: http://localhost:8899
token-list-ttl: 30s
max-list-attempts: 3
log-level: debug
curated:
  - address: 2b1kV6DkPAnxd5ixfnxCpjxmKwqjjaYmCZfHsFu24GXo
    symbol: PYUSD
    name: PayPal USD
    decimals: 6
    tags: [stable, stable]
    extensions:
      coingeckoId: paypal-usd
      feeConfig:
        newerTransferFee:
          epoch: "605"
          maximumFee: "1000"
          transferFeeBasisPoints: 10
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8899", cfg.RPCURL)
	assert.Equal(t, 30*time.Second, cfg.TokenListTTL)
	assert.Equal(t, 3, cfg.MaxListAttempts)
	assert.Equal(t, "debug", cfg.LogLevel)

	require.Len(t, cfg.Curated, 1)
	tok := cfg.Curated[0]
	assert.Equal(t, "PYUSD", tok.Symbol)
	assert.Equal(t, 6, tok.Decimals)
	assert.Equal(t, domain.TagSet{"stable"}, tok.Tags)
	require.NotNil(t, tok.Extensions.CoingeckoID)
	assert.Equal(t, "paypal-usd", *tok.Extensions.CoingeckoID)
	require.NotNil(t, tok.Extensions.FeeConfig)
	assert.Equal(t, domain.Uint64String(605), tok.Extensions.FeeConfig.NewerTransferFee.Epoch)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "rpc: http://file:8899\n")
	t.Setenv("RESOLVER_RPC", "http://env:8899")
	t.Setenv("RESOLVER_RETRY_INTERVAL", "250ms")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://env:8899", cfg.RPCURL)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryInterval)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RESOLVER_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("metrics-addr", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level=error", "--metrics-addr=:9090"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoad_UnsetFlagKeepsEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RESOLVER_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "negative attempts", body: "max-list-attempts: -2\n"},
		{name: "zero chain id", body: "chain-id: 0\n"},
		{name: "negative retry interval", body: "retry-interval: -1s\n"},
		{name: "curated without address", body: "curated:\n  - symbol: X\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
