package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fanworks/storygraph/internal/api"
	"github.com/fanworks/storygraph/internal/ingest"
	"github.com/fanworks/storygraph/internal/normalize"
	"github.com/fanworks/storygraph/internal/seed"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the record intake HTTP service",
		Long: `Starts the HTTP intake, the ingest worker pool, and the configured
document store backend, then blocks until interrupted.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := seed.Apply(ctx, store, logger); err != nil {
		return fmt.Errorf("apply seed data: %w", err)
	}

	router := normalize.NewRouter(store, logger)
	queue := ingest.NewQueue(cfg.Ingest.QueueDepth)
	pool := ingest.NewPool(cfg.Ingest.Workers, queue, router, logger)

	// The pool runs on its own context: a signal closes the queue and the
	// workers drain what was already accepted instead of dying mid-batch.
	poolCtx, poolCancel := context.WithCancel(context.Background())
	defer poolCancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pool.Run(poolCtx)
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(router, queue, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("intake listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		stop()
		return fmt.Errorf("http server: %w", err)
	}

	queue.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	// Give the drain a bounded budget before forcing the workers out.
	drainDeadline := time.AfterFunc(15*time.Second, poolCancel)
	wg.Wait()
	drainDeadline.Stop()
	logger.Info("shutdown complete")
	return nil
}
