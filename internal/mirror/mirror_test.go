package mirror_test

import (
	"fmt"
	"testing"

	"etalase/internal/mirror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func storages(t *testing.T) map[string]mirror.Storage {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlStorage, err := mirror.NewSQLStorage(db)
	require.NoError(t, err)
	return map[string]mirror.Storage{
		"memory": mirror.NewMemoryStorage(),
		"sql":    sqlStorage,
	}
}

func TestStorage_SetGetRemove(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.GetItem("user")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetItem("user", "one"))
			require.NoError(t, s.SetItem("user", "two"))
			v, ok, err := s.GetItem("user")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "two", v)

			require.NoError(t, s.RemoveItem("user"))
			_, ok, _ = s.GetItem("user")
			assert.False(t, ok)

			require.NoError(t, s.SetItem("cart", "[]"))
			require.NoError(t, s.Clear())
			_, ok, _ = s.GetItem("cart")
			assert.False(t, ok)
		})
	}
}

func TestCache_RoundTrip(t *testing.T) {
	type snapshot struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			c := mirror.NewCache(s)
			c.Save(mirror.KeyCart, snapshot{ID: "a", Count: 3})

			var got snapshot
			assert.True(t, c.Load(mirror.KeyCart, &got))
			assert.Equal(t, snapshot{ID: "a", Count: 3}, got)

			c.Remove(mirror.KeyCart)
			assert.False(t, c.Load(mirror.KeyCart, &got))
		})
	}
}

func TestCache_DiscardsUndecodable(t *testing.T) {
	s := mirror.NewMemoryStorage()
	require.NoError(t, s.SetItem(mirror.KeyUser, "{not json"))

	var v map[string]interface{}
	assert.False(t, mirror.NewCache(s).Load(mirror.KeyUser, &v))
}
