package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"redacted/config"
	"redacted/internal/adapter/store"
)

var (
	cfgFile    string
	cfg        *config.Config
	rootDir    string
	agentID    string
	agentModel string
)

var rootCmd = &cobra.Command{
	Use:   "redacted",
	Short: "Redacted - citable, redaction-safe evidence pipeline for document archives",
	Long: `Redacted ingests OCR'd source documents, detects redaction spans, indexes
offset-addressed chunks, extracts entities without leaking redacted content,
and validates evidence packets whose citations must match source text exactly.

Example usage:
  redacted ingest ./intake              # Register documents for processing
  redacted process --agent human-1      # Claim and analyze pending documents
  redacted evidence submit -f claim.json
  redacted activity --limit 20`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		setupLogging(cfg.Logging.Level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./redacted.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "archive directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&agentID, "agent", "human-contributor", "agent identity for attribution")
	rootCmd.PersistentFlags().StringVar(&agentModel, "model", "", "agent model, if any")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// openStore opens the archive database under the root directory.
func openStore() (*store.BoltStore, error) {
	if err := config.EnsureDataDir(rootDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.NewBoltStore(config.ArchiveDBPath(rootDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive store: %w", err)
	}
	return st, nil
}
