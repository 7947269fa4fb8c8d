package furniture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"syncstore/core/database"
	"syncstore/core/provider"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testBucket = "assets"
	testObject = "gamedata/FurnitureData.json"
	waitFor    = 2 * time.Second
	tick       = 5 * time.Millisecond
)

// memoryBucket is a storage.Client serving one gamedata object from memory.
type memoryBucket struct {
	mu      sync.Mutex
	version int
	body    string
	err     error
	gets    int
}

func newMemoryBucket(body string) *memoryBucket {
	return &memoryBucket{version: 1, body: body}
}

func (b *memoryBucket) set(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version++
	b.body = body
	b.err = nil
}

func (b *memoryBucket) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *memoryBucket) downloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

func (b *memoryBucket) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return bucketName == testBucket, nil
}

func (b *memoryBucket) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return nil
}

func (b *memoryBucket) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	b.set(string(data))
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func (b *memoryBucket) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.gets++
	return io.NopCloser(bytes.NewBufferString(b.body)), nil
}

func (b *memoryBucket) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return minio.ObjectInfo{}, b.err
	}
	return minio.ObjectInfo{Key: objectName, ETag: fmt.Sprintf("v%d", b.version)}, nil
}

// gamedata renders a FurnitureData.json with one floor item per classname=name pair.
func gamedata(pairs ...string) string {
	var defs []string
	for i, pair := range pairs {
		classname, name, _ := strings.Cut(pair, "=")
		defs = append(defs, fmt.Sprintf(
			`{"id": %d, "classname": %q, "name": %q, "category": "misc"}`, i+1, classname, name))
	}
	return fmt.Sprintf(`{"roomitemtypes": {"furnitype": [%s]}, "wallitemtypes": {"furnitype": []}}`,
		strings.Join(defs, ","))
}

func openEngine(t *testing.T) *database.Engine {
	t.Helper()
	e := database.Open(database.Config{Driver: database.DriverSQLite, Name: ":memory:"}, zap.NewNop())
	require.NoError(t, e.Ready(context.Background()))
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func testConfig() Config {
	return Config{Enabled: true, Object: testObject, Domain: "furniture", PageSize: 2}
}

func testSettings() provider.Settings {
	return provider.Settings{PoolSize: 2, WaitsOnAdd: true, Triggers: "init"}
}

func newTestService(t *testing.T, bucket *memoryBucket) *Service {
	t.Helper()
	svc, err := NewService(testConfig(), testSettings(), Dependencies{
		Engine:  openEngine(t),
		Storage: bucket,
		Bucket:  testBucket,
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func listed(s *Service) []string {
	items := s.List()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ClassName)
	}
	return out
}
