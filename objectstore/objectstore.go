// Package objectstore holds uploaded file bytes in S3-compatible storage.
// Database rows in the store package keep the metadata; this package keeps
// the payloads and hands out short-lived presigned URLs for reads.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"personahub/logging"
)

// Store is the object storage surface the rest of the system depends on.
type Store interface {
	// Put streams an object under key and returns its size.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// PresignedGetURL returns a time-limited download URL for key.
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Get streams the object back for server-side processing.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// MinIOOptions configure the MinIO-backed store.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Logger    logging.Logger
}

// MinIOStore implements Store on a MinIO (or any S3-compatible) server.
type MinIOStore struct {
	client *minio.Client
	bucket string
	log    logging.Logger
}

// NewMinIO builds the object store client and ensures the bucket exists.
// An unreachable server at startup is logged and tolerated so the host
// process can come up before MinIO does; operations fail until it arrives.
// Bucket creation tolerates races with concurrent instances creating the
// same bucket.
func NewMinIO(ctx context.Context, opts MinIOOptions) (*MinIOStore, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNoOpLogger()
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	s := &MinIOStore{client: client, bucket: opts.Bucket, log: log}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		log.Warn("object store unreachable, file operations will fail until it is available",
			"endpoint", opts.Endpoint, "error", err)
		return s, nil
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			if exists, checkErr := client.BucketExists(ctx, opts.Bucket); checkErr != nil || !exists {
				return nil, fmt.Errorf("bucket create: %w", err)
			}
		}
		log.Info("object store bucket created", "bucket", opts.Bucket)
	}

	return s, nil
}

// ObjectKey derives a unique storage key for an upload, preserving the
// filename extension for content-type sniffing on download.
func ObjectKey(filename string) string {
	return uuid.NewString() + path.Ext(filename)
}

// Put implements Store.
func (s *MinIOStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// PresignedGetURL implements Store.
func (s *MinIOStore) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return u.String(), nil
}

// Get implements Store.
func (s *MinIOStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	return obj, nil
}

// Delete implements Store.
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}
