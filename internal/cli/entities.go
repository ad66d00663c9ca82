package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	entitiesInvestigation string
	entitiesQuery         string
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List extracted entities, most-mentioned first",
	RunE:  runEntities,
}

func init() {
	entitiesCmd.Flags().StringVarP(&entitiesInvestigation, "investigation", "i", "", "filter by investigation")
	entitiesCmd.Flags().StringVarP(&entitiesQuery, "query", "q", "", "name substring filter")
	rootCmd.AddCommand(entitiesCmd)
}

func runEntities(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entities, err := st.SearchEntities(entitiesInvestigation, entitiesQuery)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Println("No entities found.")
		return nil
	}
	for _, e := range entities {
		flag := ""
		if e.IsRedacted {
			flag = "  (redacted)"
		}
		fmt.Printf("%-14s %4dx  %s%s\n", e.Type, e.MentionCount, e.Name, flag)
	}
	return nil
}
