package cmd

import (
	"context"
	"fmt"

	"syncstore/feature/furniture"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// syncCmd runs a single reconciliation round.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the furniture cache with the gamedata once",
	Long: `Runs one reconciliation round of the furniture catalogue: the gamedata object is
fetched, compared with the local cache and the differences are persisted.`,
	RunE: runSync,
}

var warmPages int

func init() {
	syncCmd.Flags().IntVar(&warmPages, "pages", 0, "Fetch the first N gamedata pages before the full round")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rt.Close()) }()

	settings := rt.cfg.Sync
	settings.Triggers = "none"
	svc, err := furniture.NewService(rt.cfg.Furniture, settings, rt.furnitureDeps())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, svc.Close()) }()

	if warmPages > 0 {
		n, err := svc.Warm(ctx, warmPages)
		if err != nil {
			return fmt.Errorf("page warm-up failed: %w", err)
		}
		rt.log.Info("Pages fetched", zap.Int("pages", warmPages), zap.Int("items", n))
	}

	summary, err := svc.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	count, err := svc.Count(ctx)
	if err != nil {
		return err
	}

	rt.log.Info("Reconciliation complete",
		zap.Int("inserts", summary.Inserts),
		zap.Int("updates", summary.Updates),
		zap.Int("deletes", summary.Deletes),
		zap.Int("cached", count))
	return nil
}
