package blobstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mrlokans/elibrary/internal/apperr"
)

// MinioStore keeps blobs in a MinIO or other S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the endpoint and ensures the bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	if endpoint == "" || bucket == "" {
		return nil, fmt.Errorf("s3 endpoint and bucket are required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return newMinioStore(ctx, client, bucket)
}

// newMinioStore creates the bucket when it is missing.
func newMinioStore(ctx context.Context, client *minio.Client, bucket string) (*MinioStore, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Ping checks that the bucket is reachable.
func (m *MinioStore) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket: %v", apperr.ErrStorageIO, err)
	}
	if !exists {
		return fmt.Errorf("%w: bucket %q does not exist", apperr.ErrStorageIO, m.bucket)
	}
	return nil
}

// Save uploads r under a fresh key. The size is unknown up front, so the
// client streams it as a multipart upload.
func (m *MinioStore) Save(ctx context.Context, originalName string, r io.Reader) (Object, error) {
	filename, key := newObjectKey(originalName)

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := m.client.PutObject(ctx, m.bucket, key, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Object{}, fmt.Errorf("%w: put object: %v", apperr.ErrStorageIO, err)
	}
	return Object{Filename: filename, Path: key, Size: info.Size}, nil
}

// Open fetches an object. A missing key yields apperr.ErrFileMissing.
func (m *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("blob %q: %w", key, apperr.ErrFileMissing)
	}
	// GetObject is lazy; Stat surfaces a missing key before streaming starts.
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("blob %q: %w", key, apperr.ErrFileMissing)
		}
		return nil, fmt.Errorf("%w: stat object: %v", apperr.ErrStorageIO, err)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get object: %v", apperr.ErrStorageIO, err)
	}
	return obj, nil
}

// Delete removes an object. S3 treats deleting a missing key as success.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: invalid key %q", apperr.ErrStorageIO, key)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("%w: delete object: %v", apperr.ErrStorageIO, err)
	}
	return nil
}

// List enumerates every object in the bucket.
func (m *MinioStore) List(ctx context.Context) ([]Entry, error) {
	// Cancelling stops the lister goroutine when we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var entries []Entry
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list objects: %v", apperr.ErrStorageIO, obj.Err)
		}
		entries = append(entries, Entry{
			Path:       obj.Key,
			Size:       obj.Size,
			ModifiedAt: obj.LastModified,
		})
	}
	return entries, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
