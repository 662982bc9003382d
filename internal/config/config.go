package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"solana-pool-resolver/internal/domain"
)

// Defaults applied when neither flags, env nor the config file set a key.
const (
	DefaultRPCURL          = "https://api.mainnet-beta.solana.com"
	DefaultAPIURL          = "https://api-v3.raydium.io"
	DefaultCPMMProgram     = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	DefaultTokenListTTL    = 5 * time.Minute
	DefaultRetryInterval   = time.Second
	DefaultRefreshInterval = 5 * time.Minute
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	APIURL          string
	CPMMProgram     string
	ChainID         int
	TokenListTTL    time.Duration
	RetryInterval   time.Duration
	MaxListAttempts int
	RefreshInterval time.Duration
	PostgresDSN     string
	MetricsAddr     string
	LogLevel        string

	// Curated tokens listed under "curated" in the config file. With a
	// PostgresDSN they are upserted into the store at startup.
	Curated []domain.TokenRecord
}

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the RESOLVER_ prefix with dashes as underscores.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", DefaultRPCURL)
	v.SetDefault("api", DefaultAPIURL)
	v.SetDefault("cpmm-program", DefaultCPMMProgram)
	v.SetDefault("chain-id", domain.MainnetChainID)
	v.SetDefault("token-list-ttl", DefaultTokenListTTL)
	v.SetDefault("retry-interval", DefaultRetryInterval)
	v.SetDefault("max-list-attempts", 0)
	v.SetDefault("refresh-interval", DefaultRefreshInterval)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	curated, err := curatedTokens(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		APIURL:          v.GetString("api"),
		CPMMProgram:     v.GetString("cpmm-program"),
		ChainID:         v.GetInt("chain-id"),
		TokenListTTL:    v.GetDuration("token-list-ttl"),
		RetryInterval:   v.GetDuration("retry-interval"),
		MaxListAttempts: v.GetInt("max-list-attempts"),
		RefreshInterval: v.GetDuration("refresh-interval"),
		PostgresDSN:     v.GetString("postgres-dsn"),
		MetricsAddr:     v.GetString("metrics-addr"),
		LogLevel:        v.GetString("log-level"),
		Curated:         curated,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c Config) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc url is required"))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("api url is required"))
	}
	if c.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("chain-id must be positive, got %d", c.ChainID))
	}
	if c.TokenListTTL < -1 {
		errs = append(errs, fmt.Errorf("token-list-ttl must be -1ns, 0 or positive, got %s", c.TokenListTTL))
	}
	if c.RetryInterval < 0 {
		errs = append(errs, fmt.Errorf("retry-interval must not be negative, got %s", c.RetryInterval))
	}
	if c.MaxListAttempts < 0 {
		errs = append(errs, fmt.Errorf("max-list-attempts must not be negative, got %d", c.MaxListAttempts))
	}
	return errors.Join(errs...)
}

// curatedTokens decodes the "curated" list through the token JSON codec so
// extensions and tags are handled the same way as API responses.
func curatedTokens(v *viper.Viper) ([]domain.TokenRecord, error) {
	if !v.IsSet("curated") {
		return nil, nil
	}

	raw, err := json.Marshal(v.Get("curated"))
	if err != nil {
		return nil, fmt.Errorf("encode curated tokens: %w", err)
	}

	var out []domain.TokenRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode curated tokens: %w", err)
	}
	for i, rec := range out {
		if rec.Address == "" {
			return nil, fmt.Errorf("curated token %d: address is required", i)
		}
	}
	return out, nil
}
