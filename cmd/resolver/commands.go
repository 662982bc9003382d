package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-pool-resolver/internal/domain"
	"solana-pool-resolver/internal/tokens"
)

// withApp loads config, wires the app and runs fn under a signal-aware context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func runTokens(cmd *cobra.Command, _ []string) error {
	source, _ := cmd.Flags().GetString("source")
	force, _ := cmd.Flags().GetBool("force-refresh")

	src := domain.Source(source)
	if source != "" && !src.IsValid() {
		return fmt.Errorf("unknown source %q", source)
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		stats, err := a.resolver.Load(ctx, force)
		if err != nil {
			return err
		}
		a.logger.Debug("token table loaded", loadSummary(stats)...)

		snap := a.resolver.Snapshot()
		addrs := snap.Groups[src]
		if source == "" {
			addrs = make([]string, 0, len(snap.Table))
			for addr := range snap.Table {
				addrs = append(addrs, addr)
			}
			sort.Strings(addrs)
		}

		out := make([]domain.TokenRecord, 0, len(addrs))
		for _, addr := range addrs {
			out = append(out, snap.Table[addr])
		}
		return printJSON(cmd, out)
	})
}

func runResolve(cmd *cobra.Command, args []string) error {
	skipLoad, _ := cmd.Flags().GetBool("skip-load")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if !skipLoad {
			if _, err := a.resolver.Load(ctx, false); err != nil {
				return err
			}
		}

		out := make([]domain.TokenRecord, 0, len(args))
		var errs []error
		for _, addr := range args {
			rec, err := a.resolver.Resolve(ctx, addr)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				errs = append(errs, err)
				continue
			}
			out = append(out, rec)
		}
		if err := printJSON(cmd, out); err != nil {
			return err
		}
		return errors.Join(errs...)
	})
}

func runEpoch(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		info, err := a.resolver.EpochInfo(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	})
}

func runTransferFee(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if _, err := a.resolver.Load(ctx, false); err != nil {
			return err
		}
		fee, err := a.resolver.TransferFee(ctx, args[0])
		if err != nil {
			return err
		}
		if fee == nil {
			return printJSON(cmd, struct{}{})
		}
		return printJSON(cmd, fee)
	})
}

func runPoolConfig(cmd *cobra.Command, args []string) error {
	index, _ := cmd.Flags().GetInt("index")
	if len(args) == 0 && index < 0 {
		return errors.New("pool config address or --index is required")
	}
	if index > 0xffff {
		return fmt.Errorf("index %d out of range", index)
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if len(args) == 1 {
			cfg, err := a.resolver.PoolConfig(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, cfg)
		}

		addr, cfg, err := a.resolver.PoolConfigByIndex(ctx, uint16(index))
		if err != nil {
			return err
		}
		a.logger.Debug("derived pool config address", zap.String("address", addr), zap.Int("index", index))
		return printJSON(cmd, cfg)
	})
}

func runPoolState(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		st, err := a.resolver.PoolState(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, st)
	})
}

func runPool(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if _, err := a.resolver.Load(ctx, false); err != nil {
			return err
		}
		pool, err := a.resolver.Pool(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, pool)
	})
}

func runCuratedList(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		list, err := a.curated.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, list)
	})
}

func runCuratedAdd(cmd *cobra.Command, args []string) error {
	symbol, _ := cmd.Flags().GetString("symbol")
	name, _ := cmd.Flags().GetString("name")
	decimals, _ := cmd.Flags().GetInt("decimals")
	programID, _ := cmd.Flags().GetString("program-id")
	logoURI, _ := cmd.Flags().GetString("logo-uri")
	tags, _ := cmd.Flags().GetStringSlice("tags")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if a.cfg.PostgresDSN == "" {
			return errors.New("curated add requires --postgres-dsn")
		}
		rec := domain.TokenRecord{
			ChainID:   a.cfg.ChainID,
			Address:   args[0],
			ProgramID: programID,
			LogoURI:   logoURI,
			Symbol:    symbol,
			Name:      name,
			Decimals:  decimals,
			Tags:      domain.NewTagSet(tags...),
			Priority:  domain.PriorityListed,
		}
		if err := a.curated.Upsert(ctx, rec); err != nil {
			return err
		}
		return printJSON(cmd, rec)
	})
}

func runCuratedDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if a.cfg.PostgresDSN == "" {
			return errors.New("curated delete requires --postgres-dsn")
		}
		return a.curated.Delete(ctx, args[0])
	})
}

// loadSummary renders load stats for logs.
func loadSummary(stats tokens.LoadStats) []zap.Field {
	return []zap.Field{
		zap.Uint64("generation", stats.Generation),
		zap.Int("external", stats.External),
		zap.Int("curated", stats.Curated),
		zap.Int("total", stats.Total),
	}
}
