package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"redacted/internal/adapter/fs"
	"redacted/internal/adapter/textsource"
	"redacted/internal/domain"
	"redacted/internal/usecase"
)

var (
	watchInvestigation string
	watchProcess       bool
)

// settleDelay lets upstream OCR finish writing a file before it is read.
const settleDelay = 200 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch an intake directory and ingest new documents",
	Long: `Watch monitors the intake directory and ingests documents as they appear.
With --process each new document is also claimed and analyzed immediately.

Example:
  redacted watch ./intake --process --agent watcher-1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchInvestigation, "investigation", "i", "", "investigation to attach documents to")
	watchCmd.Flags().BoolVar(&watchProcess, "process", false, "analyze documents immediately after ingesting")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", path)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ingest := usecase.NewIngestUseCase(st, textsource.NewFileSource())
	proc := newProcessUseCase(st)
	walker := fs.NewWalker(cfg.Intake.Includes, cfg.Intake.Excludes)
	agent := domain.AgentIdentity{ID: agentID, Model: agentModel}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Printf("Watching %s for new documents (ctrl-c to stop)\n", path)
	ctx := cmd.Context()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			rel, err := filepath.Rel(path, event.Name)
			if err != nil || !walker.Matches(rel) {
				continue
			}

			time.Sleep(settleDelay)
			result, err := ingest.Ingest(ctx, event.Name, watchInvestigation, agent)
			if err != nil {
				slog.Error("failed to ingest", "path", event.Name, "err", err)
				continue
			}
			if result.Skipped {
				continue
			}
			fmt.Printf("ingested %s as %s\n", rel, result.Document.ID)

			if watchProcess {
				report, found, err := proc.ProcessNext(ctx, agent)
				if err != nil {
					slog.Error("processing failed", "err", err)
					continue
				}
				if found {
					fmt.Printf("analyzed %s: %d spans, %d chunks, %d entities\n",
						report.DocumentID, report.Spans, report.Chunks, report.Entities)
				}
			}
		}
	}
}
