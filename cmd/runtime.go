package cmd

import (
	"context"
	"fmt"

	"syncstore/core/config"
	"syncstore/core/database"
	"syncstore/core/logger"
	"syncstore/core/metrics"
	"syncstore/core/scheduler"
	"syncstore/core/storage"
	"syncstore/feature/furniture"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// runtime holds the components shared by the commands.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	engine   *database.Engine
	store    storage.Client
	sched    *scheduler.Scheduler
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// newRuntime loads the configuration and opens the cache store and the bucket client.
func newRuntime(ctx context.Context) (*runtime, error) {
	rt, err := newStorageRuntime()
	if err != nil {
		return nil, err
	}

	rt.engine = database.Open(rt.cfg.Database, rt.log)
	if err := rt.engine.Ready(ctx); err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	if rt.cfg.Database.SkipMigrate {
		if err := rt.engine.CheckSchema(ctx); err != nil {
			_ = rt.engine.Close()
			return nil, err
		}
	}
	rt.log.Info("Cache store ready", zap.String("driver", rt.cfg.Database.Driver))
	rt.sched = scheduler.New(rt.cfg.Sync.PoolSize, rt.log)
	return rt, nil
}

// newStorageRuntime loads the configuration and creates the bucket client only.
func newStorageRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	store, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		log:      log,
		store:    store,
		registry: registry,
		metrics:  m,
	}, nil
}

// furnitureDeps returns the dependencies of the furniture feature.
func (r *runtime) furnitureDeps() furniture.Dependencies {
	return furniture.Dependencies{
		Engine:    r.engine,
		Storage:   r.store,
		Bucket:    r.cfg.Storage.Bucket,
		Scheduler: r.sched,
		Metrics:   r.metrics,
		Logger:    r.log,
	}
}

// Close stops the scheduler and closes the cache store. Providers must be closed first.
func (r *runtime) Close() error {
	var err error
	if r.sched != nil {
		r.sched.Close()
	}
	if r.engine != nil {
		err = r.engine.Close()
	}
	_ = r.log.Sync()
	return err
}
