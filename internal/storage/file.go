package storage

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
)

type fileStorage struct {
	directory string
}

type FileConfig struct {
	Directory string
}

// NewFileStorage creates a storage backend rooted at the configured
// directory. An empty directory means the working directory.
func NewFileStorage(ctx context.Context, f FileConfig) (Storage, error) {
	if f.Directory == "" {
		f.Directory = "."
	}

	return &fileStorage{
		directory: f.Directory,
	}, nil
}

func (f *fileStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(f.directory, key)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", xerrors.Errorf("failed to create artifact directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", xerrors.Errorf("failed to write artifact: %w", err)
	}

	return path, nil
}

func (f *fileStorage) Get(ctx context.Context, url string) ([]byte, error) {
	data, err := os.ReadFile(url)
	if err != nil {
		return nil, xerrors.Errorf("failed to read artifact: %w", err)
	}

	return data, nil
}
