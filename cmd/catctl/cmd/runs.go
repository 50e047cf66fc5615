package cmd

import (
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	var (
		entity string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			runs, err := c.ListRuns(cmd.Context(), entity, limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(runs)
			}
			return printRunsTable(runs)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "filter by entity kind (product, category, trademark)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}
