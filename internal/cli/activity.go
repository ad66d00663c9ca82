package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"redacted/internal/usecase"
)

var (
	activityInvestigation string
	activityLimit         int
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show the agent activity ledger, newest first",
	RunE:  runActivity,
}

func init() {
	activityCmd.Flags().StringVarP(&activityInvestigation, "investigation", "i", "", "filter by investigation")
	activityCmd.Flags().IntVar(&activityLimit, "limit", 50, "maximum events to show")
	rootCmd.AddCommand(activityCmd)
}

func runActivity(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ledger := usecase.NewLedgerUseCase(st)
	events, err := ledger.Feed(activityInvestigation, activityLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No activity recorded.")
		return nil
	}
	for _, ev := range events {
		fmt.Printf("%s  %-18s %-20s %s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Action, ev.AgentID, ev.Description)
	}
	return nil
}
