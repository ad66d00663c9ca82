package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"redacted/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archive contents and document pipeline state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("Documents: %d\n", stats.TotalDocuments)
	for _, status := range []domain.DocumentStatus{
		domain.StatusPending, domain.StatusProcessing, domain.StatusAnalyzed, domain.StatusError,
	} {
		if n := stats.ByStatus[status]; n > 0 {
			fmt.Printf("  %-12s %d\n", status, n)
		}
	}
	fmt.Printf("Chunks:    %d\n", stats.TotalChunks)
	fmt.Printf("Entities:  %d\n", stats.TotalEntities)
	fmt.Printf("Packets:   %d\n", stats.TotalPackets)

	docs, err := st.ListDocuments("")
	if err != nil {
		return err
	}
	for _, doc := range docs {
		lease := ""
		if doc.LeaseAgent != "" {
			lease = fmt.Sprintf("  leased by %s until %s", doc.LeaseAgent, doc.LeaseExpires.Format("15:04:05"))
		}
		fmt.Printf("%s  %-10s %3d redaction(s)  %s%s\n",
			doc.ID, doc.Status, doc.RedactionCount, doc.Source, lease)
	}
	return nil
}
