package cmd

import (
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:       "sync [full|products|categories|trademarks]",
		Short:     "Trigger a catalog sync",
		Long:      "Trigger a full catalog sync, or a sync of a single entity kind.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"full", "products", "categories", "trademarks"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "full"
			if len(args) > 0 {
				target = args[0]
			}

			c := newClient()
			ctx := cmd.Context()

			if target == "full" {
				resp, err := c.FullSync(ctx)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return outputJSON(resp)
				}
				return printReport(resp.Report)
			}

			resp, err := c.SyncEntity(ctx, target, since)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(resp)
			}
			return printResult(resp.Result)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only sync products modified on or after this date (YYYY-MM-DD)")
	return cmd
}
