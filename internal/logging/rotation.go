package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotationConfig holds configuration for log rotation.
type RotationConfig struct {
	// MaxSizeMB is the size threshold in megabytes. 0 disables rotation.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept as conflux.log.N.
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated files.
	Compress bool `mapstructure:"compress"`
}

// DefaultRotationConfig returns the rotation settings used when none are configured.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{MaxSizeMB: 10, MaxBackups: 3}
}

// RotatingWriter is an io.WriteCloser that rotates its file once it grows
// past the configured size. It is safe for concurrent use.
type RotatingWriter struct {
	mu sync.Mutex

	path       string
	maxBytes   int64
	maxBackups int
	compress   bool

	file *os.File
	size int64
}

// NewRotatingWriter opens (or creates) path for appending.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	rw := &RotatingWriter{
		path:       path,
		maxBytes:   int64(cfg.MaxSizeMB) * 1024 * 1024,
		maxBackups: cfg.MaxBackups,
		compress:   cfg.Compress,
	}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(rw.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(rw.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rw.file = f
	rw.size = info.Size()
	return nil
}

// Write appends p, rotating first if p would push the file past the limit.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return 0, fmt.Errorf("log file is closed")
	}
	if rw.maxBytes > 0 && rw.size > 0 && rw.size+int64(len(p)) > rw.maxBytes {
		if err := rw.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: log rotation failed: %v\n", err)
		}
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// rotate shifts conflux.log.N up by one and moves the live file to .1.
// Caller holds mu.
func (rw *RotatingWriter) rotate() error {
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rw.file = nil

	for i := rw.maxBackups; i >= 1; i-- {
		src := rw.backupPath(i)
		if i == rw.maxBackups {
			os.Remove(src)
			os.Remove(src + ".gz")
			continue
		}
		dst := rw.backupPath(i + 1)
		if _, err := os.Stat(src + ".gz"); err == nil {
			os.Rename(src+".gz", dst+".gz")
		} else if _, err := os.Stat(src); err == nil {
			os.Rename(src, dst)
		}
	}

	if rw.maxBackups > 0 {
		first := rw.backupPath(1)
		if err := os.Rename(rw.path, first); err != nil {
			if openErr := rw.open(); openErr != nil {
				return fmt.Errorf("failed to rename log file and reopen: %w", openErr)
			}
			return fmt.Errorf("failed to rename log file: %w", err)
		}
		if rw.compress {
			go gzipFile(first)
		}
	} else {
		os.Remove(rw.path)
	}

	return rw.open()
}

func (rw *RotatingWriter) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", rw.path, n)
}

// gzipFile replaces path with path.gz. Failures leave the original in place.
func gzipFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	zw := gzip.NewWriter(dst)
	_, copyErr := io.Copy(zw, src)
	closeErr := zw.Close()
	dst.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(path + ".gz")
		return
	}
	os.Remove(path)
}

// Close syncs and closes the live file.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	if err := rw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	err := rw.file.Close()
	rw.file = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// Size returns the current size of the live file in bytes.
func (rw *RotatingWriter) Size() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.size
}
