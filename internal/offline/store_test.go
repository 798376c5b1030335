package offline

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	dbPath := "./test_offline_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := NewSQLStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	})
	return store
}

func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sql":    func(t *testing.T) Store { return setupSQLStore(t) },
		"redis":  func(t *testing.T) Store { return setupRedisStore(t) },
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Put(ctx, "a/2", []byte("two")))
			require.NoError(t, store.Put(ctx, "a/1", []byte("one")))
			require.NoError(t, store.Put(ctx, "a_1", []byte("underscore")))
			require.NoError(t, store.Put(ctx, "A/3", []byte("upper")))
			require.NoError(t, store.Put(ctx, "a*/x", []byte("star")))
			require.NoError(t, store.Put(ctx, "b/1", []byte("other")))

			v, err := store.Get(ctx, "a/1")
			require.NoError(t, err)
			assert.Equal(t, "one", string(v))

			require.NoError(t, store.Put(ctx, "a/1", []byte("uno")))
			v, err = store.Get(ctx, "a/1")
			require.NoError(t, err)
			assert.Equal(t, "uno", string(v))

			keys, err := store.List(ctx, "a/")
			require.NoError(t, err)
			assert.Equal(t, []string{"a/1", "a/2"}, keys)

			keys, err = store.List(ctx, "a*")
			require.NoError(t, err)
			assert.Equal(t, []string{"a*/x"}, keys)

			require.NoError(t, store.Delete(ctx, "a/1"))
			require.NoError(t, store.Delete(ctx, "never-there"))
			keys, err = store.List(ctx, "a/")
			require.NoError(t, err)
			assert.Equal(t, []string{"a/2"}, keys)

			keys, err = store.List(ctx, "zzz/")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	buf := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", buf))
	buf[0] = 'x'

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestRedisStore_Prefix(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)

	store, err := NewRedisStore("redis://"+s.Addr(), "reader1:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, "mutation/1", []byte("x")))
	assert.True(t, s.Exists("reader1:mutation/1"))

	require.NoError(t, store.Ping(ctx))

	_, err = NewRedisStore("not a url", "")
	assert.Error(t, err)
}
