package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"redacted/internal/adapter/chunker"
	"redacted/internal/adapter/extractor"
	"redacted/internal/adapter/redaction"
	"redacted/internal/adapter/store"
	"redacted/internal/domain"
	"redacted/internal/usecase"
)

var processMax int

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Claim pending documents and run the analysis pipeline",
	Long: `Process claims pending documents one at a time under a lease and runs
redaction detection, chunking, and entity extraction. Multiple agents can run
process concurrently against the same archive; the lease guarantees each
document is analyzed by exactly one of them.

Examples:
  redacted process --agent claude-background --model claude-sonnet-4
  redacted process --max 10`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().IntVar(&processMax, "max", 0, "maximum documents to process (0 = until none pending)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := checkChunkingConfig(st); err != nil {
		return err
	}

	proc := newProcessUseCase(st)
	agent := domain.AgentIdentity{ID: agentID, Model: agentModel}

	processed, failures := 0, 0
	for processMax == 0 || processed < processMax {
		report, found, err := proc.ProcessNext(cmd.Context(), agent)
		if err != nil {
			// the failure is on the ledger; stop before spinning on a
			// document that fails deterministically
			slog.Error("processing attempt failed", "err", err)
			failures++
			if failures >= cfg.Processing.ClaimRetries {
				break
			}
			continue
		}
		if !found {
			break
		}
		processed++
		fmt.Printf("analyzed %s: %d spans, %d chunks, %d entities (%d redacted)\n",
			report.DocumentID, report.Spans, report.Chunks, report.Entities, report.Redacted)
	}

	if processed == 0 {
		fmt.Println("No pending documents.")
	}
	return nil
}

func newProcessUseCase(st *store.BoltStore) *usecase.ProcessUseCase {
	return usecase.NewProcessUseCase(
		st,
		redaction.NewDetector(),
		chunker.NewSentenceChunker(cfg.Chunking.Budget, cfg.Chunking.ChunksPerPage),
		extractor.NewPatternExtractor(),
		time.Duration(cfg.Processing.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Processing.LeaseTTLSeconds)*time.Second,
		cfg.Processing.ClaimRetries,
		slog.Default(),
	)
}

// checkChunkingConfig requeues analyzed documents when the chunking
// parameters changed: stored offsets would no longer match what the chunker
// produces, and citations depend on them.
func checkChunkingConfig(st *store.BoltStore) error {
	fp := store.ChunkingFingerprint(cfg.Chunking.Budget, cfg.Chunking.ChunksPerPage)
	stale, reason, err := st.CheckChunking(fp)
	if err != nil {
		return err
	}
	if stale {
		n, err := st.RequeueAnalyzed()
		if err != nil {
			return err
		}
		slog.Warn("requeued analyzed documents", "reason", reason, "count", n)
	}
	return st.SetChunkingFingerprint(fp)
}
