package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"landmarks/internal/observability"
	"landmarks/internal/tui"
)

var chatStyle string

var chatCmd = &cobra.Command{
	Use:   "chat [paths...]",
	Short: "Research landmarks in an interactive terminal session",
	Long: `Open a terminal chat backed by the research service. With a memory or
qdrant vector store, the given .txt paths (or ingest.paths) are indexed first.
Logging is off unless --log is set.`,
	RunE: runChat,
}

var chatLogToStderr bool

func init() {
	chatCmd.Flags().StringVar(&chatStyle, "style", "auto", "Markdown style: auto, dark, light or notty")
	chatCmd.Flags().BoolVar(&chatLogToStderr, "log", false, "Write logs to stderr while the UI runs")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger := zap.NewNop()
	if chatLogToStderr {
		if logger, err = observability.NewLogger(cfg.Logging); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	app, err := newApplication(cfg, logger)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Ingest.Paths
	}
	summary := "Connected to the " + cfg.VectorStore.Type + " passage index."
	if len(paths) > 0 && app.indexer != nil {
		res, err := app.ingest(cmd.Context(), paths)
		if err != nil {
			return err
		}
		summary = res.Summary
	}

	m := tui.New(app.research, summary, chatStyle, cfg.Research.RequestTimeout())
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
