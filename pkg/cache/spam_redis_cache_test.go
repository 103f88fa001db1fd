package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

type entry struct {
	Spam int64 `json:"spam"`
}

func TestRedisCache_JSON(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	var got entry
	found, err := c.GetJSON(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetJSON(ctx, "k", entry{Spam: 3}, time.Minute))
	found, err = c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(3), got.Spam)
}

func TestRedisCache_MultiAndPrefix(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.SetMultiJSON(ctx, map[string]interface{}{
		"w:a": entry{Spam: 1},
		"w:b": entry{Spam: 2},
		"x:c": entry{Spam: 3},
	}, time.Minute))

	values, err := c.GetMulti(ctx, []string{"w:a", "w:b", "w:z"})
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.JSONEq(t, `{"spam":2}`, values["w:b"])

	deleted, err := c.DeleteByPrefix(ctx, "w:")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.False(t, mr.Exists("w:a"))
	assert.True(t, mr.Exists("x:c"))

	require.NoError(t, c.DeleteMulti(ctx, []string{"x:c"}))
	assert.False(t, mr.Exists("x:c"))
}

func TestRedisCache_Close(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	require.NoError(t, c.Close())
	_, err := c.GetJSON(context.Background(), "k", &entry{})
	assert.ErrorIs(t, err, redis.ErrClosed)
}
