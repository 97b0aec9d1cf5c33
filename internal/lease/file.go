package lease

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// File admits keys with flock(2) lock files in a directory, so processes on
// the same host exclude each other.
type File struct {
	dir   string
	local *Memory
}

// NewFile creates a File admitter rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lease dir: %w", err)
	}
	return &File{dir: dir, local: NewMemory()}, nil
}

// Dir returns the lock file directory.
func (f *File) Dir() string { return f.dir }

// lockPath maps a key to a fixed-length file name.
func (f *File) lockPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:16])+".lock")
}

// TryAcquire takes an exclusive non-blocking flock on the key's lock file.
func (f *File) TryAcquire(ctx context.Context, key string) (Release, bool, error) {
	releaseLocal, ok, err := f.local.TryAcquire(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}

	fh, err := os.OpenFile(f.lockPath(key), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		_ = releaseLocal()
		return nil, false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(fh.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = fh.Close()
		_ = releaseLocal()
		if err == syscall.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("flock: %w", err)
	}
	// Record the key for operators inspecting the directory.
	_ = fh.Truncate(0)
	_, _ = fh.WriteAt([]byte(key+"\n"), 0)

	return onceRelease(func() error {
		defer func() { _ = releaseLocal() }()
		if err := syscall.Flock(int(fh.Fd()), syscall.LOCK_UN); err != nil {
			_ = fh.Close()
			return fmt.Errorf("funlock: %w", err)
		}
		return fh.Close()
	}), true, nil
}

// Close rejects further acquisitions.
func (f *File) Close() error {
	return f.local.Close()
}
