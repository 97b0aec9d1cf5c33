package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/conflux/internal/config"
)

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "conflicts:acme", []byte(`[]`)))

	_, err = os.Stat(filepath.Join(dir, "conflicts", "acme.json"))
	require.NoError(t, err, "expected conflicts/acme.json")

	entries, err := os.ReadDir(filepath.Join(dir, "conflicts"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not linger")
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0644))
	require.NoError(t, s.Set(context.Background(), "history:acme", []byte(`[]`)))

	keys, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"history:acme"}, keys)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"conflicts:acme", true},
		{"history:acme-corp_1", true},
		{"single", true},
		{"", false},
		{":acme", false},
		{"conflicts::acme", false},
		{"conflicts:ac/me", false},
		{"conflicts:..", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidKey)
			}
		})
	}
	assert.Equal(t, "conflicts:acme", Key("conflicts", "acme"))
}

func TestValidateSegment(t *testing.T) {
	assert.NoError(t, ValidateSegment("acme-corp_1"))
	for _, seg := range []string{"", "a:b", "ac/me", ".."} {
		assert.ErrorIs(t, ValidateSegment(seg), ErrInvalidKey, "segment %q", seg)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StoreConfig
		want any
	}{
		{"memory", config.StoreConfig{Driver: "memory"}, &Memory{}},
		{"file", config.StoreConfig{Driver: "file", Path: filepath.Join(dir, "kv")}, &FileStore{}},
		{"sqlite", config.StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "kv.db"), Table: "kv"}, &SQLite{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.cfg)
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}

	_, err := Open(ctx, config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
