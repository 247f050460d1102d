package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"landmarks/internal/api"
	"landmarks/internal/memory"
	"landmarks/internal/observability"
)

const shutdownTimeout = 15 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the research HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.address)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Address = serveAddr
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("configuration loaded", zap.String("path", path), zap.String("vector_store", cfg.VectorStore.Type))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(cfg, logger)
	if err != nil {
		return err
	}
	if len(cfg.Ingest.Paths) > 0 && app.indexer != nil {
		res, err := app.ingest(ctx, cfg.Ingest.Paths)
		if err != nil {
			return err
		}
		logger.Info("startup ingest finished", zap.Int("documents", res.Documents), zap.Int("chunks", res.Chunks))
	}

	janitor, err := memory.NewJanitor(app.memory, cfg.Memory.SweepSchedule, logger)
	if err != nil {
		return err
	}
	janitor.Start()

	var opts []api.Option
	if app.documents != nil {
		opts = append(opts, api.WithDocuments(app.documents))
	}
	router := api.NewRouter(app.research, app.landmarks, api.AppInfo{Name: cfg.App.Name, Version: cfg.App.Version}, app.metrics, logger, opts...)
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.Setup(),
		ReadTimeout:  seconds(cfg.Server.ReadTimeoutSecs),
		WriteTimeout: seconds(cfg.Server.WriteTimeoutSecs),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			janitor.Stop(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	janitor.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}
