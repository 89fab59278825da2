// Package object provides the MinIO-backed media file store.
package object

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/scanlab/scanlab/core"
	"github.com/scanlab/scanlab/core/media"
)

type minioStore struct {
	client *minio.Client
	bucket string
}

var _ media.FileStore = (*minioStore)(nil) // interface compliance check

// NewMinioStore connects to the object store and ensures the media bucket
// exists.
func NewMinioStore(ctx context.Context, conf *core.Config) (*minioStore, error) {
	client, err := minio.New(conf.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Minio.AccessKey, conf.Minio.SecretKey, ""),
		Secure: conf.Minio.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to object store")
	}

	exists, err := client.BucketExists(ctx, conf.Minio.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "checking media bucket")
	}
	if !exists {
		if err = client.MakeBucket(ctx, conf.Minio.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "creating media bucket")
		}
	}

	return &minioStore{client: client, bucket: conf.Minio.Bucket}, nil
}

func (s *minioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, "storing object")
	}
	return nil
}

func (s *minioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "getting object")
	}
	return obj, nil
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, "removing object")
	}
	return nil
}
