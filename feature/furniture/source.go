package furniture

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"syncstore/core/storage"
	"syncstore/feature/furniture/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// GamedataSource reads the furniture catalogue from the gamedata object in the bucket.
// The decoded catalogue is kept until the object's ETag changes.
type GamedataSource struct {
	client   storage.Client
	bucket   string
	object   string
	pageSize int
	logger   *zap.Logger

	mu    sync.Mutex
	etag  string
	items []models.Item
	index map[string]int
}

// NewGamedataSource creates a source for object in bucket.
func NewGamedataSource(client storage.Client, bucket, object string, pageSize int, logger *zap.Logger) *GamedataSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &GamedataSource{
		client:   client,
		bucket:   bucket,
		object:   object,
		pageSize: pageSize,
		logger:   logger.With(zap.String("object", object)),
	}
}

// Fetch returns the whole catalogue.
func (s *GamedataSource) Fetch(ctx context.Context) ([]models.Item, error) {
	items, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]models.Item(nil), items...), nil
}

// FetchByID returns the item with the given classname.
func (s *GamedataSource) FetchByID(ctx context.Context, id string) (models.Item, error) {
	items, index, err := s.load(ctx)
	if err != nil {
		return models.Item{}, err
	}
	i, ok := index[id]
	if !ok {
		return models.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return items[i], nil
}

// FetchPage returns the page-th slice of the catalogue ordered by classname, starting at 0.
// Pages past the end are empty.
func (s *GamedataSource) FetchPage(ctx context.Context, page int) ([]models.Item, error) {
	items, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, fmt.Errorf("invalid page %d", page)
	}
	start := page * s.pageSize
	if start >= len(items) {
		return []models.Item{}, nil
	}
	end := start + s.pageSize
	if end > len(items) {
		end = len(items)
	}
	return append([]models.Item(nil), items[start:end]...), nil
}

func (s *GamedataSource) load(ctx context.Context) ([]models.Item, map[string]int, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.object, minio.StatObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat gamedata %s: %w", s.object, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items != nil && info.ETag != "" && info.ETag == s.etag {
		return s.items, s.index, nil
	}

	reader, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get gamedata %s: %w", s.object, err)
	}
	defer reader.Close()

	var data models.FurnitureData
	if err := json.NewDecoder(reader).Decode(&data); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidGamedata, err)
	}

	items, rejected := data.Items()
	for _, r := range rejected {
		s.logger.Warn("Skipping furniture definition",
			zap.String("classname", r.ClassName),
			zap.Int("sprite_id", r.SpriteID),
			zap.String("reason", r.Reason))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ClassName < items[j].ClassName })

	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ClassName] = i
	}

	s.etag, s.items, s.index = info.ETag, items, index
	s.logger.Debug("Gamedata loaded", zap.Int("items", len(items)), zap.String("etag", info.ETag))
	return items, index, nil
}
