package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("store: key not found")

// ErrInvalidKey is returned for keys with empty or unsafe segments.
var ErrInvalidKey = errors.New("store: invalid key")

// Store is a minimal key/value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// List returns all keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// KeySeparator separates key segments.
const KeySeparator = ":"

var segmentRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateKey checks that every ":"-separated segment of key is non-empty
// and contains only letters, digits, hyphens, or underscores.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	for _, seg := range strings.Split(key, KeySeparator) {
		if !segmentRegex.MatchString(seg) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// ValidateSegment checks that seg can stand alone as one key segment.
func ValidateSegment(seg string) error {
	if !segmentRegex.MatchString(seg) {
		return fmt.Errorf("%w: segment %q", ErrInvalidKey, seg)
	}
	return nil
}

// Key joins segments into a store key.
func Key(segments ...string) string {
	return strings.Join(segments, KeySeparator)
}
