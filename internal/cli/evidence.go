package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"redacted/internal/domain"
	"redacted/internal/usecase"
)

var (
	evidenceFile          string
	evidenceInvestigation string
	voteToken             string
	voteDown              bool
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Submit, list, and vote on evidence packets",
}

var evidenceSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a claim with citations for validation",
	Long: `Submit reads a claim request from a JSON file and validates it: every
citation must name a real document range whose text equals the excerpt
exactly, and redacted ranges may only be cited as their marker text.

The JSON shape:
  {
    "investigation_id": "...",
    "document_id": "...",
    "statement": "...",
    "claim_type": "Observed" | "Corroborated" | "Unknown",
    "confidence": 0.9,
    "citations": [{"document_id": "...", "start": 10, "end": 42, "excerpt": "..."}],
    "uncertainty_notes": ["..."]
  }`,
	RunE: runEvidenceSubmit,
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence packets, newest first",
	RunE:  runEvidenceList,
}

var evidenceVoteCmd = &cobra.Command{
	Use:   "vote <packet-id>",
	Short: "Cast a community vote on an evidence packet",
	Long: `Vote increments (or with --down decrements) a packet's vote count.
Supply --token to make retries idempotent; without a token a repeated call
counts again.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvidenceVote,
}

func init() {
	evidenceSubmitCmd.Flags().StringVarP(&evidenceFile, "file", "f", "", "claim request JSON file (required)")
	evidenceSubmitCmd.MarkFlagRequired("file")
	evidenceListCmd.Flags().StringVarP(&evidenceInvestigation, "investigation", "i", "", "filter by investigation")
	evidenceVoteCmd.Flags().StringVar(&voteToken, "token", "", "idempotency token for this vote")
	evidenceVoteCmd.Flags().BoolVar(&voteDown, "down", false, "vote down instead of up")

	evidenceCmd.AddCommand(evidenceSubmitCmd, evidenceListCmd, evidenceVoteCmd)
	rootCmd.AddCommand(evidenceCmd)
}

func runEvidenceSubmit(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(evidenceFile)
	if err != nil {
		return fmt.Errorf("failed to read claim file: %w", err)
	}

	var req usecase.ClaimRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("invalid claim JSON: %w", err)
	}
	req.Agent = domain.AgentIdentity{ID: agentID, Model: agentModel}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ev := usecase.NewEvidenceUseCase(st, cfg.Evidence.MinObservedConfidence)
	packet, err := ev.Submit(req)
	if err != nil {
		return fmt.Errorf("claim rejected: %w", err)
	}

	fmt.Printf("accepted packet %s (%s, confidence %.2f, %d citation(s))\n",
		packet.ID, packet.ClaimType, packet.Confidence, len(packet.Citations))
	return nil
}

func runEvidenceList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	packets, err := st.ListPackets(evidenceInvestigation, cfg.Evidence.ListLimit)
	if err != nil {
		return err
	}
	if len(packets) == 0 {
		fmt.Println("No evidence packets.")
		return nil
	}
	for _, p := range packets {
		fmt.Printf("%s  [%s %.2f] votes=%d  %s\n", p.ID, p.ClaimType, p.Confidence, p.Votes, p.Statement)
		for _, c := range p.Citations {
			fmt.Printf("    cites %s [%d,%d): %q\n", c.DocumentID, c.Start, c.End, c.Excerpt)
		}
		for _, note := range p.UncertaintyNotes {
			fmt.Printf("    caveat: %s\n", note)
		}
	}
	return nil
}

func runEvidenceVote(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	delta := 1
	if voteDown {
		delta = -1
	}

	ev := usecase.NewEvidenceUseCase(st, cfg.Evidence.MinObservedConfidence)
	votes, err := ev.Vote(args[0], voteToken, delta, domain.AgentIdentity{ID: agentID, Model: agentModel})
	if err != nil {
		return err
	}
	fmt.Printf("packet %s now has %d vote(s)\n", args[0], votes)
	return nil
}
