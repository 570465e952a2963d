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

type cachedUser struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestAside(t *testing.T) {
	mr := miniredis.RunT(t)
	client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		client = nil
	})

	ctx := context.Background()

	t.Run("miss fetches and populates cache", func(t *testing.T) {
		fetched := 0
		var out cachedUser
		err := Aside(ctx, "user:1", &out, time.Minute, func() error {
			fetched++
			out = cachedUser{ID: 1, Name: "Ada"}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, fetched)
		assert.Equal(t, "Ada", out.Name)

		// Second read comes from cache
		var out2 cachedUser
		err = Aside(ctx, "user:1", &out2, time.Minute, func() error {
			fetched++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, fetched)
		assert.Equal(t, "Ada", out2.Name)
	})

	t.Run("invalidate forces refetch", func(t *testing.T) {
		fetched := 0
		var out cachedUser
		_ = Aside(ctx, "user:2", &out, time.Minute, func() error {
			fetched++
			out = cachedUser{ID: 2, Name: "Grace"}
			return nil
		})

		Invalidate(ctx, "user:2")

		_ = Aside(ctx, "user:2", &out, time.Minute, func() error {
			fetched++
			out = cachedUser{ID: 2, Name: "Grace"}
			return nil
		})
		assert.Equal(t, 2, fetched)
	})

	t.Run("nil client degrades to fetch", func(t *testing.T) {
		saved := client
		client = nil
		defer func() { client = saved }()

		var out cachedUser
		err := Aside(ctx, "user:3", &out, time.Minute, func() error {
			out = cachedUser{ID: 3, Name: "Linus"}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "Linus", out.Name)
	})
}
