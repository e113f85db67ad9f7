// Package minio provides a BlobStore adapter backed by a MinIO (or any
// S3-compatible) object store.
package minio

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/notelm/notelm/internal/core/ports/driven"
)

// Ensure BlobStore implements the interface.
var _ driven.BlobStore = (*BlobStore)(nil)

// DefaultBucket is used when no bucket is configured.
const DefaultBucket = "notelm-files"

// Config holds connection settings for the object store.
type Config struct {
	// Endpoint is the host:port of the MinIO server (required).
	Endpoint string

	// AccessKey and SecretKey authenticate the client (required).
	AccessKey string
	SecretKey string

	// Bucket is the bucket holding uploads (default: notelm-files).
	// It is created on startup if absent.
	Bucket string

	// UseSSL enables TLS to the endpoint.
	UseSSL bool
}

// BlobStore stores original uploaded files as objects.
type BlobStore struct {
	client *minio.Client
	bucket string
}

// NewBlobStore connects to the object store and ensures the bucket exists.
func NewBlobStore(ctx context.Context, cfg Config) (*BlobStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio: endpoint is required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: creating client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: checking bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio: creating bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the file at localPath under key and returns the object key.
func (s *BlobStore) Put(ctx context.Context, localPath, key string) (string, error) {
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("minio: uploading %s: %w", key, err)
	}
	return key, nil
}

// Delete removes a previously stored object. Deleting an absent object
// is not an error.
func (s *BlobStore) Delete(ctx context.Context, storedPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storedPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: deleting %s: %w", storedPath, err)
	}
	return nil
}
