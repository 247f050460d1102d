// Command landmarks serves the NYC landmarks research agent over HTTP and in
// the terminal, and indexes local designation reports.
package main

import (
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"landmarks/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "landmarks",
	Short: "NYC landmarks research agent",
	Long: heredoc.Doc(`
		Research New York City landmarks with retrieval-augmented reports.

		Reports combine designation-report passages from the vector store,
		landmark metadata and photos, and a chat completion model. Conversations
		are kept in memory so follow-up questions see earlier turns.
	`),
	SilenceUsage: true,
}

func init() {
	rootCmd.SetHelpTemplate(`{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}
Quick Start:
  1. Write a config:   landmarks config init
  2. Start the API:    landmarks serve
  3. Or chat locally:  landmarks chat
`)
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML config file (defaults to ./config.yaml, then ~/.config/landmarks/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.AppConfig, string, error) {
	if cfgPath == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(cfgPath)
	return cfg, cfgPath, err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
