// Package mocks provides testify mocks for the storage package.
package mocks

import (
	"context"
	"io"

	"syncstore/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
)

var _ storage.Client = (*Client)(nil)

// Client records calls made against storage.Client.
type Client struct {
	mock.Mock
}

func (m *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ret := m.Called(ctx, bucket)
	return ret.Bool(0), ret.Error(1)
}

func (m *Client) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucket, opts).Error(0)
}

func (m *Client) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	ret := m.Called(ctx, bucket, object, reader, size, opts)
	info, _ := ret.Get(0).(minio.UploadInfo)
	return info, ret.Error(1)
}

// GetObject returns nil for the reader unless the first return value is an io.ReadCloser.
func (m *Client) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	ret := m.Called(ctx, bucket, object, opts)
	body, _ := ret.Get(0).(io.ReadCloser)
	return body, ret.Error(1)
}

func (m *Client) StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	ret := m.Called(ctx, bucket, object, opts)
	info, _ := ret.Get(0).(minio.ObjectInfo)
	return info, ret.Error(1)
}
