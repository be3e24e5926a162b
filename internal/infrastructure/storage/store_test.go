package storage

import (
	"context"
	"testing"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	s, err := NewFileStore(fsys, "/data/carts")
	require.NoError(t, err)
	return s, fsys
}

// exerciseStore runs the behaviour every KeyValueStore shares
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing key is not found", func(t *testing.T) {
		_, err := s.Get(ctx, "cart:nobody")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "cart:alice", []byte(`{"lines":[]}`)))
		got, err := s.Get(ctx, "cart:alice")
		require.NoError(t, err)
		assert.Equal(t, `{"lines":[]}`, string(got))
	})

	t.Run("put replaces", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "cart:alice", []byte("v2")))
		got, err := s.Get(ctx, "cart:alice")
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("keys by prefix", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "cart:bob", []byte("x")))
		require.NoError(t, s.Put(ctx, "offline:bob", []byte("y")))

		keys, err := s.Keys(ctx, "cart:")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"cart:alice", "cart:bob"}, keys)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "cart:bob"))
		require.NoError(t, s.Delete(ctx, "cart:bob"))
		_, err := s.Get(ctx, "cart:bob")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestFileStore(t *testing.T) {
	s, _ := newTestFileStore(t)
	exerciseStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	v := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", v))
	v[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStore_KeysWithUnsafeCharacters(t *testing.T) {
	s, fsys := newTestFileStore(t)
	ctx := context.Background()

	key := "cart:../../etc/passwd"
	require.NoError(t, s.Put(ctx, key, []byte("x")))

	entries, err := afero.ReadDir(fsys, "/data/carts")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")

	keys, err := s.Keys(ctx, "cart:")
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	s, fsys := newTestFileStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "cart:alice", []byte("saved")))

	reopened, err := NewFileStore(fsys, "/data/carts")
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "cart:alice")
	require.NoError(t, err)
	assert.Equal(t, "saved", string(got))
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	s, fsys := newTestFileStore(t)
	require.NoError(t, afero.WriteFile(fsys, "/data/carts/README", []byte("hi"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/data/carts/!!!.json", []byte("hi"), 0o644))

	keys, err := s.Keys(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStore_CanceledContext(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "k", []byte("v")), context.Canceled)
}

func TestNewFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore(afero.NewMemMapFs(), "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestNewStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s, err := NewStore(config.CartConfig{Storage: "memory"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)
	})

	t.Run("file", func(t *testing.T) {
		s, err := NewStore(config.CartConfig{Storage: "file", Dir: t.TempDir()}, nil)
		require.NoError(t, err)
		assert.IsType(t, &FileStore{}, s)
	})

	t.Run("redis without client", func(t *testing.T) {
		_, err := NewStore(config.CartConfig{Storage: "redis"}, nil)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewStore(config.CartConfig{Storage: "s3"}, nil)
		assert.Error(t, err)
	})
}
