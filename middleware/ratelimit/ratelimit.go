// Package ratelimit throttles unauthenticated auth endpoints with a fixed
// window counter kept in Redis, so every replica shares the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"

	auth "github.com/yapyap/go-auth"
)

const (
	DefaultMax    = 10
	DefaultWindow = time.Minute
	DefaultPrefix = "yapyap:ratelimit:"
)

type Config struct {
	// Filter skips the limiter when it returns true.
	Filter func(router.Context) bool
	// KeyGenerator identifies the client. Defaults to IP plus route path.
	KeyGenerator func(router.Context) string
	// ErrorHandler receives auth.ErrRateLimited or a Redis failure.
	ErrorHandler router.ErrorHandler
	Max          int64
	Window       time.Duration
	Prefix       string
	// FailOpen lets requests through when Redis is unreachable.
	FailOpen bool
	Logger   auth.Logger
}

func GetDefaultConfig(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = func(ctx router.Context) string {
			return ctx.IP() + ":" + ctx.Path()
		}
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = auth.NewErrorHandler(cfg.Logger)
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return cfg
}

type Limiter struct {
	redis redis.UniversalClient
	cfg   Config
}

func NewLimiter(client redis.UniversalClient, config ...Config) *Limiter {
	return &Limiter{redis: client, cfg: GetDefaultConfig(config...)}
}

// Allow counts a hit for key and reports whether it is within budget.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, int64, error) {
	key = l.cfg.Prefix + key

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit incr: %w", err)
	}

	// first hit opens the window
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.cfg.Window).Err(); err != nil {
			return false, count, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	return count <= l.cfg.Max, count, nil
}

func (l *Limiter) Handler() router.MiddlewareFunc {
	cfg := l.cfg
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			ok, count, err := l.Allow(ctx.Context(), cfg.KeyGenerator(ctx))
			if err != nil {
				if cfg.FailOpen {
					if cfg.Logger != nil {
						cfg.Logger.Warn("rate limiter unavailable, allowing request", "error", err)
					}
					return next(ctx)
				}
				return cfg.ErrorHandler(ctx, err)
			}

			remaining := cfg.Max - count
			if remaining < 0 {
				remaining = 0
			}
			ctx.SetHeader("X-RateLimit-Limit", strconv.FormatInt(cfg.Max, 10))
			ctx.SetHeader("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !ok {
				ctx.SetHeader("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				return cfg.ErrorHandler(ctx, auth.ErrRateLimited)
			}

			return next(ctx)
		}
	}
}

// New returns the middleware directly.
func New(client redis.UniversalClient, config ...Config) router.MiddlewareFunc {
	return NewLimiter(client, config...).Handler()
}
