package measure

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ImageStore defines the write-once blob storage for meter photos.
type ImageStore interface {
	// Save writes the image bytes under filename.
	Save(ctx context.Context, filename string, data []byte) error

	// Get retrieves an image by filename, or ErrFileNotFound.
	Get(ctx context.Context, filename string) ([]byte, error)

	// Delete removes an image. Used to clean up orphaned blobs when record
	// creation fails after the image was written.
	Delete(ctx context.Context, filename string) error
}

// LocalImageStore implements ImageStore on the local filesystem.
type LocalImageStore struct {
	basePath string
}

// NewLocalImageStore creates the storage directory if needed.
func NewLocalImageStore(basePath string) (*LocalImageStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalImageStore{basePath: basePath}, nil
}

// Save writes an image to local storage.
func (l *LocalImageStore) Save(ctx context.Context, filename string, data []byte) error {
	path := filepath.Join(l.basePath, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// Get retrieves an image from local storage.
func (l *LocalImageStore) Get(ctx context.Context, filename string) ([]byte, error) {
	path := filepath.Join(l.basePath, filepath.Base(filename))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes an image from local storage.
func (l *LocalImageStore) Delete(ctx context.Context, filename string) error {
	path := filepath.Join(l.basePath, filepath.Base(filename))
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
