// Package blobstore keeps uploaded book files. The database stores only the
// key returned by Save; the bytes live on local disk or in an S3-compatible
// bucket.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/utils"
)

// Object describes a stored upload.
type Object struct {
	// Filename is the sanitised original name, offered on download.
	Filename string
	// Path is the unique storage key.
	Path string
	Size int64
}

// Entry is a key found while listing the store.
type Entry struct {
	Path       string
	Size       int64
	ModifiedAt time.Time
}

// Store saves, opens and deletes blobs.
//
// Open returns an error matching apperr.ErrFileMissing when the key does not
// exist. Delete of a missing key succeeds.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader) (Object, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context) ([]Entry, error)
}

// Pinger is implemented by stores that can report whether their backend is
// reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New builds the store selected by cfg.Backend.
func New(cfg config.Storage) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.StorageBackendLocal:
		return NewLocalStore(cfg.UploadDir)
	case config.StorageBackendS3:
		return NewMinioStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newObjectKey returns the sanitised filename and a collision-free key for it.
func newObjectKey(originalName string) (filename, key string) {
	filename = utils.SecureFilename(originalName)
	return filename, uuid.NewString() + "_" + filename
}

// validKey rejects keys that could address anything outside the store root.
func validKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`)
}
