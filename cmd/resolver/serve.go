package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-pool-resolver/internal/observability"
	"solana-pool-resolver/internal/tokens"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if a.cfg.MetricsAddr == "" {
			return errors.New("serve requires --metrics-addr")
		}

		stats, err := a.resolver.Load(ctx, false)
		if err != nil {
			return err
		}
		a.logger.Info("token table loaded", loadSummary(stats)...)

		srv := &http.Server{
			Addr:              a.cfg.MetricsAddr,
			Handler:           a.routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("starting http server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		go a.refreshLoop(ctx)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// refreshLoop reloads the token table until ctx is done. The list cache TTL
// decides whether the external list is fetched again.
func (a *app) refreshLoop(ctx context.Context) {
	interval := a.cfg.RefreshInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := a.resolver.Load(ctx, false)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Error("token table reload failed", zap.Error(err))
				}
				continue
			}
			a.logger.Debug("token table reloaded", loadSummary(stats)...)
		}
	}
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("GET /tokens/{address}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := a.resolver.Resolve(r.Context(), r.PathValue("address"))
		switch {
		case errors.Is(err, tokens.ErrUnknownMint), errors.Is(err, tokens.ErrEmptyInput):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, rec)
	})

	mux.HandleFunc("GET /pools/{address}", func(w http.ResponseWriter, r *http.Request) {
		pool, err := a.resolver.Pool(r.Context(), r.PathValue("address"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, pool)
	})

	mux.HandleFunc("GET /epoch", func(w http.ResponseWriter, r *http.Request) {
		info, err := a.resolver.EpochInfo(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, info)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
