package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/elibrary/internal/apperr"
)

const tempPrefix = ".upload-"

// LocalStore saves uploads as files under a base directory.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates the base directory if missing.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{basePath: abs}, nil
}

// Ping checks that the base directory still exists.
func (s *LocalStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorageIO, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", apperr.ErrStorageIO, s.basePath)
	}
	return nil
}

// Save streams r into a temp file and renames it into place, so a failed
// upload never leaves a partial blob under its final key.
func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader) (Object, error) {
	filename, key := newObjectKey(originalName)

	tmp, err := os.CreateTemp(s.basePath, tempPrefix+"*")
	if err != nil {
		return Object{}, fmt.Errorf("%w: create temp file: %v", apperr.ErrStorageIO, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	size, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		cleanup()
		return Object{}, fmt.Errorf("%w: write file: %v", apperr.ErrStorageIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Object{}, fmt.Errorf("%w: close file: %v", apperr.ErrStorageIO, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.basePath, key)); err != nil {
		os.Remove(tmpName)
		return Object{}, fmt.Errorf("%w: move file: %v", apperr.ErrStorageIO, err)
	}

	return Object{Filename: filename, Path: key, Size: size}, nil
}

// Open opens a stored blob for reading.
func (s *LocalStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("blob %q: %w", key, apperr.ErrFileMissing)
	}
	f, err := os.Open(filepath.Join(s.basePath, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("blob %q: %w", key, apperr.ErrFileMissing)
		}
		return nil, fmt.Errorf("%w: open %q: %v", apperr.ErrStorageIO, key, err)
	}
	return f, nil
}

// Delete removes a blob. Missing blobs are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: invalid key %q", apperr.ErrStorageIO, key)
	}
	err := os.Remove(filepath.Join(s.basePath, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %q: %v", apperr.ErrStorageIO, key, err)
	}
	return nil
}

// List returns every stored blob. In-progress temp files are skipped.
func (s *LocalStore) List(_ context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", apperr.ErrStorageIO, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasPrefix(de.Name(), tempPrefix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Path:       de.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	return entries, nil
}

// ctxReader stops a copy once the request is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
