package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"factionwatch/internal/feed"
	"factionwatch/internal/ingest"
	"factionwatch/internal/parser"
	"factionwatch/internal/store"
)

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Consume the live feed and keep the store up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close(context.Background())

			if e.cfg.Feed.URL == "" {
				return fmt.Errorf("feed.url is required")
			}
			source := feed.NewWebsocketSource(e.cfg.Feed.URL, e.cfg.Feed.ReconnectInterval, e.logger)
			defer source.Close()

			return runFeed(ctx, e, source, feed.Inflate)
		},
	}
}

// runFeed wires the reconcilers to a listener over source and runs it until
// ctx is cancelled or the source is exhausted.
func runFeed(ctx context.Context, e *env, source feed.Source, decompress feed.Decompressor) error {
	if err := e.db.EnsureSchema(ctx); err != nil {
		return err
	}

	interest, err := interestSet(ctx, e)
	if err != nil {
		return err
	}
	if len(interest) == 0 {
		e.logger.Warn("no factions of interest configured or tracked; every event will be skipped")
	}

	metrics := feed.NewMetrics()
	if e.cfg.Metrics.Listen != "" {
		shutdown := serveMetrics(e.cfg.Metrics.Listen, metrics, e.logger)
		defer shutdown()
	}

	breaker := ingest.NewBreaker(ingest.DefaultBreakerConfig("store"), e.logger)
	opts := ingest.Options{Breaker: breaker, Logger: e.logger, Observer: metrics}

	listener := feed.NewListener(feed.ListenerConfig{
		Source:         source,
		Interest:       interest,
		Decompress:     decompress,
		ReceiveTimeout: e.cfg.Feed.ReceiveTimeout,
		Workers:        e.cfg.Feed.Workers,
		Metrics:        metrics,
		Logger:         e.logger,
	})
	listener.Register(ingest.NewReconciler(e.db, opts))
	listener.Register(ingest.NewConflictReconciler(e.db, opts))

	e.logger.Info("listening",
		zap.Int("factions", len(interest)),
		zap.Int("workers", e.cfg.Feed.Workers),
	)
	if err := listener.Run(ctx); err != nil {
		return err
	}
	e.logger.Info("listener stopped")
	return nil
}

// interestSet merges the configured factions with every faction a guild
// tracks. It is read once when the listener starts.
func interestSet(ctx context.Context, e *env) (parser.InterestSet, error) {
	names := append([]string{}, e.cfg.Factions...)
	err := e.db.WithTx(ctx, store.TxOptions{ReadOnly: true}, func(tx store.Tx) error {
		tracked, err := tx.ListTrackedFactions(ctx)
		if err != nil {
			return err
		}
		names = append(names, tracked...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading tracked factions: %w", err)
	}
	return parser.NewInterestSet(names...), nil
}

func serveMetrics(addr string, metrics *feed.Metrics, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
