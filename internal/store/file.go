package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const fileExt = ".json"

// FileStore maps each key to a file under a base directory:
// "conflicts:acme" is stored at <base>/conflicts/acme.json.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a FileStore rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BaseDir returns the directory the store writes to.
func (s *FileStore) BaseDir() string { return s.baseDir }

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.keyToPath(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) error {
	path, err := s.keyToPath(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return atomicWriteFile(path, value, 0644)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	path, err := s.keyToPath(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, fileExt) || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		key := strings.ReplaceAll(strings.TrimSuffix(filepath.ToSlash(rel), fileExt), "/", KeySeparator)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) keyToPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	segs := strings.Split(key, KeySeparator)
	segs[len(segs)-1] += fileExt
	return filepath.Join(append([]string{s.baseDir}, segs...)...), nil
}

// atomicWriteFile writes data to a temp file in the target directory and
// renames it into place, so readers never observe a partial value.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	ok = true
	return nil
}
