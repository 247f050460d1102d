package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"landmarks/internal/observability"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Index local .txt designation reports into the memory or qdrant store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		paths := args
		if len(paths) == 0 {
			paths = cfg.Ingest.Paths
		}
		if len(paths) == 0 {
			return fmt.Errorf("no paths given and ingest.paths is empty")
		}
		logger, err := observability.NewLogger(cfg.Logging)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		app, err := newApplication(cfg, logger)
		if err != nil {
			return err
		}
		res, err := app.ingest(cmd.Context(), paths)
		if err != nil {
			return err
		}
		logger.Info("ingest complete", zap.Duration("elapsed", res.Elapsed))
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Indexed %d documents into %d chunks.\n\n%s\n", res.Documents, res.Chunks, res.Summary)
		return nil
	},
}
