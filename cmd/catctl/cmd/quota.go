package cmd

import (
	"github.com/spf13/cobra"
)

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show provider rate-limit quota usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			q, err := c.GetQuota(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(q)
			}
			return printQuota(q)
		},
	}
}
