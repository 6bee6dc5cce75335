package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("nil client", func(t *testing.T) {
		allowed, err := CheckRateLimit(ctx, nil, "create_post", "ip:1", 1, time.Minute)
		assert.ErrorIs(t, err, ErrNoRateLimitStore)
		assert.False(t, allowed)
	})

	t.Run("counts within window", func(t *testing.T) {
		mr, rdb := newTestRedis(t)

		for i := 0; i < 2; i++ {
			allowed, err := CheckRateLimit(ctx, rdb, "create_post", "ip:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d", i+1)
		}

		allowed, err := CheckRateLimit(ctx, rdb, "create_post", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		assert.True(t, mr.Exists("rl:create_post:ip:1"))
		assert.Equal(t, time.Minute, mr.TTL("rl:create_post:ip:1"))
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		mr, rdb := newTestRedis(t)

		allowed, err := CheckRateLimit(ctx, rdb, "create_post", "ip:2", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = CheckRateLimit(ctx, rdb, "create_post", "ip:2", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		mr.FastForward(time.Minute + time.Second)

		allowed, err = CheckRateLimit(ctx, rdb, "create_post", "ip:2", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("restores a missing expiry", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		key := "rl:create_post:ip:4"
		require.NoError(t, mr.Set(key, "5"))
		require.Equal(t, time.Duration(0), mr.TTL(key))

		allowed, err := CheckRateLimit(ctx, rdb, "create_post", "ip:4", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, time.Minute, mr.TTL(key))

		mr.FastForward(time.Minute + time.Second)

		allowed, err = CheckRateLimit(ctx, rdb, "create_post", "ip:4", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("keys are per resource", func(t *testing.T) {
		_, rdb := newTestRedis(t)

		allowed, err := CheckRateLimit(ctx, rdb, "a", "ip:3", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = CheckRateLimit(ctx, rdb, "b", "ip:3", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	newApp := func(cfg RateLimitConfig) *fiber.App {
		app := fiber.New()
		app.Post("/posts", RateLimit(cfg), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusCreated)
		})
		return app
	}

	do := func(t *testing.T, app *fiber.App) int {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/posts", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("bypassed when disabled", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := newApp(RateLimitConfig{Client: rdb, Limit: 1, Window: time.Minute, Name: "create_post"})

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusCreated, do(t, app))
		}
	})

	t.Run("zero limit disables", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := newApp(RateLimitConfig{Client: rdb, Limit: 0, Window: time.Minute, Enabled: true})

		assert.Equal(t, http.StatusCreated, do(t, app))
		assert.Equal(t, http.StatusCreated, do(t, app))
	})

	t.Run("enforced with redis", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := newApp(RateLimitConfig{Client: rdb, Limit: 1, Window: time.Minute, Name: "create_post", Enabled: true})

		assert.Equal(t, http.StatusCreated, do(t, app))
		assert.Equal(t, http.StatusTooManyRequests, do(t, app))
	})

	t.Run("custom limit response", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := newApp(RateLimitConfig{
			Client: rdb, Limit: 1, Window: time.Minute, Name: "create_post", Enabled: true,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).SendString(TooManyRequestsMessage)
			},
		})

		assert.Equal(t, http.StatusCreated, do(t, app))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/posts", nil))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, TooManyRequestsMessage, string(body))
	})

	t.Run("fails open without redis", func(t *testing.T) {
		app := newApp(RateLimitConfig{Limit: 1, Window: time.Minute, Enabled: true})

		assert.Equal(t, http.StatusCreated, do(t, app))
		assert.Equal(t, http.StatusCreated, do(t, app))
	})

	t.Run("fails open when redis goes away", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		app := newApp(RateLimitConfig{Client: rdb, Limit: 1, Window: time.Minute, Enabled: true})
		mr.Close()

		assert.Equal(t, http.StatusCreated, do(t, app))
		assert.Equal(t, http.StatusCreated, do(t, app))
	})
}
