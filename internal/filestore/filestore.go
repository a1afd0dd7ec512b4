// Package filestore keeps original and preview media in S3-compatible
// object storage, keyed by md5.
package filestore

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Store struct {
	client *minio.Client
	bucket string
}

func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &Store{client: client, bucket: bucket}, nil
}

func originalKey(md5, fileExt string) string {
	return fmt.Sprintf("original/%s.%s", md5, fileExt)
}

func previewKey(md5 string) string {
	return fmt.Sprintf("preview/%s.jpg", md5)
}

// Remove deletes both the original and the preview. Missing objects are not
// an error, removal runs during expunge and must be idempotent.
func (s *Store) Remove(ctx context.Context, md5, fileExt string) error {
	for _, key := range []string{originalKey(md5, fileExt), previewKey(md5)} {
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return nil
}
