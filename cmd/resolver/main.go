// Command resolver looks up Solana token metadata and decodes constant-product
// pool accounts.
package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solana-pool-resolver/internal/config"
	"solana-pool-resolver/internal/domain"
)

func main() {
	root := &cobra.Command{
		Use:          "resolver",
		Short:        "Solana token and pool resolver",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Load the token table and print it",
		RunE:  runTokens,
	}
	addCommonFlags(tokensCmd.Flags())
	tokensCmd.Flags().String("source", "", "only print tokens from this source (official, external, curated)")
	tokensCmd.Flags().Bool("force-refresh", false, "bypass the token list cache")
	root.AddCommand(tokensCmd)

	resolveCmd := &cobra.Command{
		Use:   "resolve <address|sol>...",
		Short: "Resolve token metadata for one or more addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runResolve,
	}
	addCommonFlags(resolveCmd.Flags())
	resolveCmd.Flags().Bool("skip-load", false, "skip loading the token list before resolving")
	root.AddCommand(resolveCmd)

	epochCmd := &cobra.Command{
		Use:   "epoch",
		Short: "Print current epoch info",
		Args:  cobra.NoArgs,
		RunE:  runEpoch,
	}
	addCommonFlags(epochCmd.Flags())
	root.AddCommand(epochCmd)

	feeCmd := &cobra.Command{
		Use:   "transfer-fee <address>",
		Short: "Print the transfer fee in effect for a token",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransferFee,
	}
	addCommonFlags(feeCmd.Flags())
	root.AddCommand(feeCmd)

	poolConfigCmd := &cobra.Command{
		Use:   "pool-config [address]",
		Short: "Decode a pool config account by address or index",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPoolConfig,
	}
	addCommonFlags(poolConfigCmd.Flags())
	poolConfigCmd.Flags().Int("index", -1, "derive the config address from this index")
	root.AddCommand(poolConfigCmd)

	poolStateCmd := &cobra.Command{
		Use:   "pool-state <address>",
		Short: "Decode a pool state account",
		Args:  cobra.ExactArgs(1),
		RunE:  runPoolState,
	}
	addCommonFlags(poolStateCmd.Flags())
	root.AddCommand(poolStateCmd)

	poolCmd := &cobra.Command{
		Use:   "pool <address>",
		Short: "Decode a pool with its config and resolve both mints",
		Args:  cobra.ExactArgs(1),
		RunE:  runPool,
	}
	addCommonFlags(poolCmd.Flags())
	root.AddCommand(poolCmd)

	curatedCmd := &cobra.Command{
		Use:   "curated",
		Short: "Manage the curated token list",
	}
	curatedList := &cobra.Command{
		Use:   "list",
		Short: "Print curated tokens",
		Args:  cobra.NoArgs,
		RunE:  runCuratedList,
	}
	addCommonFlags(curatedList.Flags())
	curatedAdd := &cobra.Command{
		Use:   "add <address>",
		Short: "Add or replace a curated token",
		Args:  cobra.ExactArgs(1),
		RunE:  runCuratedAdd,
	}
	addCommonFlags(curatedAdd.Flags())
	curatedAdd.Flags().String("symbol", "", "token symbol")
	curatedAdd.Flags().String("name", "", "token name")
	curatedAdd.Flags().Int("decimals", 0, "token decimals")
	curatedAdd.Flags().String("program-id", domain.TokenProgramID, "owning token program")
	curatedAdd.Flags().String("logo-uri", "", "logo URI")
	curatedAdd.Flags().StringSlice("tags", nil, "tags (comma-separated)")
	curatedDelete := &cobra.Command{
		Use:   "delete <address>",
		Short: "Remove a curated token",
		Args:  cobra.ExactArgs(1),
		RunE:  runCuratedDelete,
	}
	addCommonFlags(curatedDelete.Flags())
	curatedCmd.AddCommand(curatedList, curatedAdd, curatedDelete)
	root.AddCommand(curatedCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the token table loaded and serve lookups over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addCommonFlags(serveCmd.Flags())
	serveCmd.Flags().String("metrics-addr", ":9090", "HTTP address for /health, /metrics and lookups")
	serveCmd.Flags().Duration("refresh-interval", config.DefaultRefreshInterval, "token table reload interval")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", config.DefaultRPCURL, "Solana RPC URL")
	flags.String("api", config.DefaultAPIURL, "token metadata API base URL")
	flags.String("postgres-dsn", "", "Postgres DSN for the curated token store (empty uses the config file list)")
	flags.Duration("token-list-ttl", config.DefaultTokenListTTL, "token list cache TTL (0 refetches on every load, -1ns never expires)")
	flags.Duration("retry-interval", config.DefaultRetryInterval, "pause between token list fetch attempts (0 uses the default)")
	flags.Int("max-list-attempts", 0, "token list fetch attempts per load, 0 retries forever")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
