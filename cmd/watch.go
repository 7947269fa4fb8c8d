package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"syncstore/core/provider"
	"syncstore/core/reconcile"
	"syncstore/feature/furniture"
	"syncstore/feature/furniture/models"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var watchAll bool

// watchCmd logs every change of the furniture catalogue.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log furniture catalogue changes until interrupted",
	Long: `Subscribes to the furniture catalogue and logs every change. The catalogue is
reconciled on start and then every sync.refresh_interval.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchAll, "all", false, "Also log rounds without changes and failures")
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rt.Close()) }()

	svc, err := furniture.NewService(rt.cfg.Furniture, rt.cfg.Sync, rt.furnitureDeps())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, svc.Close()) }()

	log := rt.log.With(zap.String("command", "watch"))
	opts := rt.cfg.Sync.ObserverOptions()
	opts.AlwaysNotifyOnRefresh = opts.AlwaysNotifyOnRefresh || watchAll

	err = svc.Subscribe(ctx, provider.NewToken(), opts,
		func(changes provider.Changes[models.Item]) {
			if len(changes) == 0 {
				log.Info("No changes")
				return
			}
			for _, c := range changes {
				fields := []zap.Field{zap.String("kind", c.Kind.String()), zap.String("classname", c.ID)}
				if c.Kind != reconcile.Delete {
					fields = append(fields, zap.String("name", c.Item.Name), zap.Int("sprite_id", c.Item.SpriteID))
				}
				log.Info("Furniture changed", fields...)
			}
		},
		func(err error) {
			log.Warn("Sync failed", zap.Error(err))
		})
	if err != nil {
		return err
	}

	refreshLoop(ctx, log, rt.cfg.Sync.RefreshInterval, svc)
	<-ctx.Done()
	return nil
}
