package lease

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by TryAcquire after Close.
var ErrClosed = errors.New("lease: admitter closed")

// Release gives up an admitted key. It is safe to call more than once.
type Release func() error

// Admitter grants exclusive, non-blocking admission per key.
type Admitter interface {
	// TryAcquire admits key. ok is false, with a nil error, when the key is
	// already held.
	TryAcquire(ctx context.Context, key string) (release Release, ok bool, err error)
	// Close releases backend resources. Outstanding leases stay valid
	// until released.
	Close() error
}

// Memory is an in-process Admitter.
type Memory struct {
	mu     sync.Mutex
	held   map[string]struct{}
	closed bool
}

// NewMemory creates an empty Memory admitter.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]struct{})}
}

// TryAcquire admits key if no one in this process holds it.
func (m *Memory) TryAcquire(_ context.Context, key string) (Release, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, ErrClosed
	}
	if _, busy := m.held[key]; busy {
		return nil, false, nil
	}
	m.held[key] = struct{}{}

	return onceRelease(func() error {
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
		return nil
	}), true, nil
}

// Held reports whether key is currently admitted.
func (m *Memory) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}

// Len returns the number of keys currently admitted.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}

// Close rejects further acquisitions.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// onceRelease wraps fn so only the first call runs.
func onceRelease(fn func() error) Release {
	var (
		once sync.Once
		err  error
	)
	return func() error {
		once.Do(func() { err = fn() })
		return err
	}
}
