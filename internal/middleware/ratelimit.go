package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ErrNoRateLimitStore is returned by CheckRateLimit when no Redis client is configured.
var ErrNoRateLimitStore = errors.New("rate limit store is not configured")

// TooManyRequestsMessage is the body sent to throttled clients.
const TooManyRequestsMessage = "Too many requests, please try again later."

// RateLimitConfig configures a Redis-backed fixed-window limiter.
type RateLimitConfig struct {
	Client  *redis.Client
	Limit   int
	Window  time.Duration
	Name    string
	Enabled bool

	// LimitReached answers rejected requests. Defaults to a JSON 429.
	LimitReached fiber.Handler
}

// CheckRateLimit checks if a resource has exceeded its rate limit.
// Returns true if allowed, false if limit exceeded.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, ErrNoRateLimitStore
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	}); err != nil {
		return false, err
	}

	// Re-apply a missing expiry, e.g. after an earlier EXPIRE failed.
	if ttl.Val() < 0 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return incr.Val() <= int64(limit), nil
}

// RateLimit returns a Fiber middleware enforcing cfg.Limit requests per cfg.Window per client IP.
// It is a no-op when disabled or when the limit is zero, and fails open when Redis is unavailable.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled || cfg.Limit <= 0 {
			return c.Next()
		}

		resource := cfg.Name
		if resource == "" {
			resource = c.Path()
		}

		allowed, err := CheckRateLimit(c.UserContext(), cfg.Client, resource, "ip:"+c.IP(), cfg.Limit, cfg.Window)
		if err != nil {
			if !errors.Is(err, ErrNoRateLimitStore) {
				observability.Logger.WarnContext(c.UserContext(), "rate limit check failed, allowing request",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
			}
			return c.Next()
		}

		if !allowed {
			if cfg.LimitReached != nil {
				return cfg.LimitReached(c)
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": TooManyRequestsMessage,
			})
		}
		return c.Next()
	}
}
