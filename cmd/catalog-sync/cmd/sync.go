package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/avelichko/catalog-sync/internal/config"
)

var syncSince string

var syncCmd = &cobra.Command{
	Use:       "sync [full|products|categories|trademarks]",
	Short:     "Run a one-shot sync without starting the server",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"full", "products", "categories", "trademarks"},
	RunE:      runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncSince, "since", "", "only sync products modified on or after this date (YYYY-MM-DD)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := "full"
	if len(args) > 0 {
		target = args[0]
	}

	ctx := context.Background()
	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.store.Close()

	var out any
	switch target {
	case "products":
		var since *time.Time
		if syncSince != "" {
			t, parseErr := time.Parse("2006-01-02", syncSince)
			if parseErr != nil {
				return fmt.Errorf("invalid --since date %q: %w", syncSince, parseErr)
			}
			since = &t
		}
		out, err = svc.engine.SyncProducts(ctx, since)
	case "categories":
		out, err = svc.engine.SyncCategories(ctx)
	case "trademarks":
		out, err = svc.engine.SyncTrademarks(ctx)
	default:
		out, err = svc.engine.FullSync(ctx)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
