package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncstore/core/loader"
	"syncstore/core/logger"
	"syncstore/core/middleware/auth"
	"syncstore/core/middleware/rayid"
	"syncstore/core/reconcile"
	"syncstore/feature/furniture"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the syncstore server",
	Long:  `Starts the HTTP server, initializes all enabled features and refreshes them periodically.`,
	RunE:  runStart,
}

func init() {
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	logg := rt.log

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true, // We log our own startup message
	})

	// RayID must be first to trace everything
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		start := time.Now()
		err := c.Next()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil {
			l.Error("Request error", append(fields, zap.Error(err))...)
			return err
		}
		l.Info("Request handled", fields...)
		return nil
	})

	app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey, Skip: []string{"/metrics"}}))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{})))

	furn := furniture.NewFeature(rt.cfg.Furniture, rt.cfg.Sync, rt.furnitureDeps())
	mgr := loader.NewManager()
	mgr.Register(furn)
	if err := mgr.LoadAll(app); err != nil {
		return multierr.Append(err, rt.Close())
	}
	logg.Info("Features loaded", zap.Strings("features", mgr.Enabled()))

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	if svc, err := furn.Service(); err == nil {
		go refreshLoop(loopCtx, logg, rt.cfg.Sync.RefreshInterval, svc)
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("address", rt.cfg.Server.Address()))
		serveErr <- app.Listen(rt.cfg.Server.Address())
	}()

	select {
	case err = <-serveErr:
		logg.Error("Server stopped", zap.Error(err))
	case <-ctx.Done():
		logg.Info("Shutting down server...")
		err = app.ShutdownWithTimeout(rt.cfg.Server.ShutdownTimeout)
	}

	stopLoop()
	err = multierr.Append(err, furn.Close())
	return multierr.Append(err, rt.Close())
}

// refresher is the part of a feature service refreshLoop drives.
type refresher interface {
	Refresh(ctx context.Context) (reconcile.Summary, error)
}

// refreshLoop reconciles svc every interval until ctx is done.
func refreshLoop(ctx context.Context, log *zap.Logger, interval time.Duration, svc refresher) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := svc.Refresh(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("Periodic refresh failed", zap.Error(err))
				}
				continue
			}
			log.Debug("Periodic refresh done",
				zap.Int("inserts", summary.Inserts),
				zap.Int("updates", summary.Updates),
				zap.Int("deletes", summary.Deletes))
		}
	}
}
