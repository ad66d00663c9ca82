package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"redacted/internal/usecase"
)

var (
	invDescription string
	invPriority    string
	invTags        []string
)

var investigationCmd = &cobra.Command{
	Use:   "investigation",
	Short: "Manage investigations",
}

var investigationCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Open a new investigation",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvestigationCreate,
}

var investigationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List investigations",
	RunE:  runInvestigationList,
}

func init() {
	investigationCreateCmd.Flags().StringVar(&invDescription, "description", "", "what this investigation covers")
	investigationCreateCmd.Flags().StringVar(&invPriority, "priority", "medium", "critical, high, medium, or low")
	investigationCreateCmd.Flags().StringSliceVar(&invTags, "tag", nil, "tags (repeatable)")

	investigationCmd.AddCommand(investigationCreateCmd, investigationListCmd)
	rootCmd.AddCommand(investigationCmd)
}

func runInvestigationCreate(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ledger := usecase.NewLedgerUseCase(st)
	inv, err := ledger.CreateInvestigation(args[0], invDescription, invPriority, invTags)
	if err != nil {
		return err
	}
	fmt.Printf("created investigation %s: %s\n", inv.ID, inv.Title)
	return nil
}

func runInvestigationList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ledger := usecase.NewLedgerUseCase(st)
	invs, err := ledger.ListInvestigations()
	if err != nil {
		return err
	}
	if len(invs) == 0 {
		fmt.Println("No investigations.")
		return nil
	}
	for _, inv := range invs {
		tags := ""
		if len(inv.Tags) > 0 {
			tags = "  [" + strings.Join(inv.Tags, ", ") + "]"
		}
		fmt.Printf("%s  %-8s %-8s %s%s\n", inv.ID, inv.Status, inv.Priority, inv.Title, tags)
	}
	return nil
}
