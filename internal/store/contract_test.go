package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runContract exercises the behavior every Store backend must share.
func runContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "conflicts:missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "conflicts:acme", []byte(`[{"id":"c-1"}]`)))
		got, err := s.Get(ctx, "conflicts:acme")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"c-1"}]`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "conflicts:acme", []byte(`[]`)))
		got, err := s.Get(ctx, "conflicts:acme")
		require.NoError(t, err)
		assert.Equal(t, "[]", string(got))
	})

	t.Run("list by prefix", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "workflows:acme", []byte(`[]`)))
		require.NoError(t, s.Set(ctx, "conflicts:globex", []byte(`[]`)))

		keys, err := s.List(ctx, "conflicts:")
		require.NoError(t, err)
		assert.Equal(t, []string{"conflicts:acme", "conflicts:globex"}, keys)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "workflows:acme"))
		require.ErrorIs(t, s.Delete(ctx, "workflows:acme"), ErrNotFound)
		_, err := s.Get(ctx, "workflows:acme")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid keys", func(t *testing.T) {
		for _, key := range []string{"", "conflicts:", "conflicts:../etc", "a b"} {
			require.ErrorIs(t, s.Set(ctx, key, []byte("x")), ErrInvalidKey, "key %q", key)
		}
	})

	t.Run("concurrent writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("history:t%d", i)
				assert.NoError(t, s.Set(ctx, key, []byte(fmt.Sprintf("%d", i))))
			}(i)
		}
		wg.Wait()

		keys, err := s.List(ctx, "history:")
		require.NoError(t, err)
		assert.Len(t, keys, 10)
	})
}

func TestMemory(t *testing.T) {
	runContract(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'z'

	again, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	runContract(t, s)
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:", "conflux_kv")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	runContract(t, s)
}

func TestSQLite_Persists(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/nested/conflux.db"

	s, err := OpenSQLite(ctx, path, "conflux_kv")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "conflicts:acme", []byte(`[1]`)))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path, "conflux_kv")
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "conflicts:acme")
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(got))
}
