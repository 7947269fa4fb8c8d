package furniture

import (
	"context"
	"errors"
	"fmt"

	"syncstore/core/database"
	"syncstore/core/listcalc"
	"syncstore/core/metrics"
	"syncstore/core/provider"
	"syncstore/core/reconcile"
	"syncstore/core/repository"
	"syncstore/core/scheduler"
	"syncstore/core/storage"
	"syncstore/feature/furniture/models"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dependencies are the shared components a Service runs on.
type Dependencies struct {
	Engine    *database.Engine
	Storage   storage.Client
	Bucket    string
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Service keeps the local furniture cache in sync with the gamedata object and
// maintains a sorted in-memory listing of it.
type Service struct {
	logger   *zap.Logger
	repo     *repository.Repository[models.Item]
	provider *provider.Provider[models.Item]
	list     *listcalc.Calculator[models.Item]
	token    provider.Token
	stop     context.CancelFunc
}

// NewService creates the service and subscribes its listing to the provider.
func NewService(cfg Config, settings provider.Settings, deps Dependencies) (*Service, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("feature", "furniture"))

	triggers, err := settings.TriggerSet()
	if err != nil {
		return nil, fmt.Errorf("invalid sync triggers: %w", err)
	}

	repo := repository.New[models.Item](deps.Engine, cfg.Domain, repository.JSONMapper[models.Item]{
		SortKey: func(i models.Item) string { return i.ClassName },
	})
	source := NewGamedataSource(deps.Storage, deps.Bucket, cfg.Object, cfg.PageSize, logger)

	s := &Service{
		logger: logger,
		repo:   repo,
		list:   listcalc.New(byClassName, cfg.ListLimit, nil),
		token:  provider.NewToken(),
	}
	s.provider = provider.New(provider.Config[models.Item]{
		Name:       cfg.Domain,
		Repository: repo,
		Source:     source,
		Triggers:   triggers,
		Scheduler:  deps.Scheduler,
		Metrics:    deps.Metrics,
		Logger:     logger,
	})

	ctx, stop := context.WithCancel(context.Background())
	s.stop = stop
	if err := s.Subscribe(ctx, s.token, settings.ObserverOptions(), s.onChanges, s.onError); err != nil {
		stop()
		return nil, multierr.Append(err, s.provider.Close())
	}
	return s, nil
}

func byClassName(a, b models.Item) bool {
	return a.ClassName < b.ClassName
}

func (s *Service) onChanges(changes provider.Changes[models.Item]) {
	diffs := s.list.Apply(changes)
	summary := reconcile.Summarize[models.Item](changes)
	if summary.Empty() {
		s.logger.Debug("Furniture catalogue unchanged")
		return
	}
	s.logger.Info("Furniture catalogue changed",
		zap.Int("inserts", summary.Inserts),
		zap.Int("updates", summary.Updates),
		zap.Int("deletes", summary.Deletes),
		zap.Int("listing_changes", len(diffs)),
		zap.Int("listed", s.list.Len()))
}

func (s *Service) onError(err error) {
	s.logger.Error("Furniture sync failed", zap.Error(err))
}

// Subscribe registers callbacks for catalogue changes for as long as ctx is live.
func (s *Service) Subscribe(ctx context.Context, token provider.Token, opts provider.ObserverOptions, onUpdate func(provider.Changes[models.Item]), onError func(error)) error {
	return s.provider.AddObserver(ctx, token, provider.Observer[provider.Changes[models.Item]]{
		OnUpdate: onUpdate,
		OnError:  onError,
		Options:  opts,
	})
}

// Unsubscribe removes the registration of token.
func (s *Service) Unsubscribe(token provider.Token) error {
	return s.provider.RemoveObserver(token)
}

// List returns the sorted listing of the catalogue.
func (s *Service) List() []models.Item {
	return s.list.AllItems()
}

// Count returns the number of cached items.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Cached returns the cached item with the given classname.
func (s *Service) Cached(ctx context.Context, classname string) (models.Item, error) {
	return s.repo.FetchByID(ctx, classname)
}

// Get fetches one item from the gamedata and stores it.
func (s *Service) Get(ctx context.Context, classname string) (models.Item, error) {
	return s.provider.FetchByID(ctx, classname)
}

// Page fetches one gamedata page and stores it.
func (s *Service) Page(ctx context.Context, page int) ([]models.Item, error) {
	return s.provider.FetchPage(ctx, page)
}

// Warm fetches the first pages of the gamedata concurrently and returns the number
// of items they held.
func (s *Service) Warm(ctx context.Context, pages int) (int, error) {
	counts := make([]int, pages)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < pages; i++ {
		g.Go(func() error {
			items, err := s.provider.FetchPage(ctx, i)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			counts[i] = len(items)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// Refresh reconciles the cache with the gamedata and returns what changed.
func (s *Service) Refresh(ctx context.Context) (reconcile.Summary, error) {
	changes, err := s.provider.Refresh().Wait(ctx)
	if err != nil {
		return reconcile.Summary{}, err
	}
	return reconcile.Summarize[models.Item](changes), nil
}

// LastError returns the failure of the latest round, if any.
func (s *Service) LastError() error {
	return s.provider.LastError()
}

// Close stops the listing subscription and the provider.
func (s *Service) Close() error {
	s.stop()
	err := s.provider.RemoveObserver(s.token)
	if errors.Is(err, provider.ErrObserverNotFound) {
		err = nil
	}
	return multierr.Append(err, s.provider.Close())
}
