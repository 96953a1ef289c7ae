package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replichat/internal/config"
)

type testDoc struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		var out testDoc
		err := s.Get(ctx, "courses", "missing", &out)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put then get round-trips", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "courses", "go-101", testDoc{Title: "Intro to Go", Count: 3}))

		var out testDoc
		require.NoError(t, s.Get(ctx, "courses", "go-101", &out))
		assert.Equal(t, "Intro to Go", out.Title)
		assert.Equal(t, 3, out.Count)
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "courses", "go-101", testDoc{Title: "Intro to Go", Count: 4}))

		var out testDoc
		require.NoError(t, s.Get(ctx, "courses", "go-101", &out))
		assert.Equal(t, 4, out.Count)
	})

	t.Run("list is sorted and collection-scoped", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "courses", "a-course", testDoc{}))
		require.NoError(t, s.Put(ctx, "users", "u1", testDoc{}))

		keys, err := s.List(ctx, "courses")
		require.NoError(t, err)
		assert.Equal(t, []string{"a-course", "go-101"}, keys)
	})

	t.Run("delete removes", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "courses", "go-101"))
		var out testDoc
		assert.ErrorIs(t, s.Get(ctx, "courses", "go-101", &out), ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	runStoreContract(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)
}

func TestNew(t *testing.T) {
	t.Run("memory driver", func(t *testing.T) {
		s, err := New(config.StoreConfig{Driver: "memory"})
		require.NoError(t, err)
		defer s.Close()
	})

	t.Run("sqlite requires path", func(t *testing.T) {
		_, err := New(config.StoreConfig{Driver: "sqlite"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unknown driver rejected", func(t *testing.T) {
		_, err := New(config.StoreConfig{Driver: "cassandra"})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
