package store

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestRedisStoreRequiresAddr(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{})
	require.Error(t, err)
}

func TestRedisStorePutLoadClear(t *testing.T) {
	s := newTestRedisStore(t)

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.Put("2:0:hint", "try label A"))
	require.NoError(t, s.Put("3:1:prelabel", `{"label":"cat"}`))
	require.NoError(t, s.Put("2:0:hint", "try label B"))

	entries, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"2:0:hint":     "try label B",
		"3:1:prelabel": `{"label":"cat"}`,
	}, entries)

	require.NoError(t, s.Clear())

	entries, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
