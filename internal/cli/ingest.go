package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"redacted/internal/adapter/fs"
	"redacted/internal/adapter/textsource"
	"redacted/internal/domain"
	"redacted/internal/usecase"
)

var ingestInvestigation string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Register source documents for processing",
	Long: `Ingest registers OCR'd text documents found under the given path. Each
document is fingerprinted and stored immutably with status pending; content
already in the archive is skipped.

Examples:
  redacted ingest ./intake
  redacted ingest report.txt --investigation inv-1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestInvestigation, "investigation", "i", "", "investigation to attach documents to")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ingest := usecase.NewIngestUseCase(st, textsource.NewFileSource())
	agent := domain.AgentIdentity{ID: agentID, Model: agentModel}

	var paths []string
	if info.IsDir() {
		walker := fs.NewWalker(cfg.Intake.Includes, cfg.Intake.Excludes)
		files, err := walker.Walk(path)
		if err != nil {
			return fmt.Errorf("failed to walk intake directory: %w", err)
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	} else {
		paths = []string{path}
	}

	if len(paths) == 0 {
		fmt.Println("No documents found to ingest.")
		return nil
	}

	bar := progressbar.Default(int64(len(paths)), "ingesting")
	ingested, skipped, failed := 0, 0, 0
	for _, p := range paths {
		result, err := ingest.Ingest(cmd.Context(), p, ingestInvestigation, agent)
		bar.Add(1)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "failed to ingest %s: %v\n", p, err)
			continue
		}
		if result.Skipped {
			skipped++
		} else {
			ingested++
		}
	}

	fmt.Printf("\nIngested %d document(s), skipped %d duplicate(s), %d failed\n", ingested, skipped, failed)
	return nil
}
