package cache_test

import (
	"context"
	"testing"
	"time"

	"achievement-service/internal/cache"
	"achievement-service/testing/testredis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONCacheIntegration(t *testing.T) {
	redisContainer := testredis.SetupSharedRedis(t)
	defer redisContainer.Cleanup(t)

	ctx := context.Background()

	t.Run("MissThenHit", func(t *testing.T) {
		c := cache.NewJSON(redisContainer.Client(t), "test:")

		var got payload
		hit, err := c.Get(ctx, "k", &got)
		require.NoError(t, err)
		assert.False(t, hit)

		require.NoError(t, c.Set(ctx, "k", payload{Name: "dashboard", Count: 3}, time.Minute))

		hit, err = c.Get(ctx, "k", &got)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, payload{Name: "dashboard", Count: 3}, got)
	})

	t.Run("DeleteDropsKeys", func(t *testing.T) {
		c := cache.NewJSON(redisContainer.Client(t), "test:")
		require.NoError(t, c.Set(ctx, "a", payload{}, time.Minute))
		require.NoError(t, c.Set(ctx, "b", payload{}, time.Minute))

		require.NoError(t, c.Delete(ctx, "a", "b"))

		var got payload
		hit, err := c.Get(ctx, "a", &got)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("PrefixIsolatesNamespaces", func(t *testing.T) {
		client := redisContainer.Client(t)
		one := cache.NewJSON(client, "one:")
		two := cache.NewJSON(client, "two:")
		require.NoError(t, one.Set(ctx, "k", payload{Count: 1}, time.Minute))

		var got payload
		hit, err := two.Get(ctx, "k", &got)
		require.NoError(t, err)
		assert.False(t, hit)
	})
}
