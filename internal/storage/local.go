package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dump-analysis/pkg/errors"
)

// LocalStorage implements Storage for the local filesystem.
// Keys are slash-separated paths below basePath.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./storage"
	}

	// Ensure base directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "failed to create storage directory", err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

// Put writes data from reader to the specified key.
// The object is written to a temporary file and renamed into place.
func (s *LocalStorage) Put(ctx context.Context, key string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.CodeStorageError, "put canceled", err)
	}

	fullPath := s.getFullPath(key)

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to create directory", err)
	}

	tmp := fullPath + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to create file", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(tmp)
		return errors.Wrap(errors.CodeStorageError, "failed to write file", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.CodeStorageError, "failed to close file", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.CodeStorageError, "failed to rename file", err)
	}
	return nil
}

// Get opens the object at the specified key.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "get canceled", err)
	}

	file, err := os.Open(s.getFullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.CodeNotFound, "snapshot not found: "+key, err)
		}
		return nil, errors.Wrap(errors.CodeStorageError, "failed to open file", err)
	}
	return file, nil
}

// Exists checks if an object exists at the specified key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.Wrap(errors.CodeStorageError, "exists canceled", err)
	}

	_, err := os.Stat(s.getFullPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(errors.CodeStorageError, "failed to stat file", err)
}

// List returns every key under prefix in lexical order.
// The prefix is matched against whole keys, not directory names.
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "failed to list "+prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// URL returns the absolute file path for the specified key.
func (s *LocalStorage) URL(key string) string {
	abs, err := filepath.Abs(s.getFullPath(key))
	if err != nil {
		return s.getFullPath(key)
	}
	return abs
}

// GetBasePath returns the base path of the local storage.
func (s *LocalStorage) GetBasePath() string {
	return s.basePath
}

func (s *LocalStorage) getFullPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}
