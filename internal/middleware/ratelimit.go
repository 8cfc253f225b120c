package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/logging"
)

// takeScript refills the bucket in whole intervals and takes one token.
// It returns {allowed, tokens left, ms until the next refill}.
var takeScript = redis.NewScript(`
local cap      = tonumber(ARGV[2])
local per      = tonumber(ARGV[3])
local every_ms = tonumber(ARGV[4])
local now      = tonumber(ARGV[1])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp  = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if not tokens or not stamp then
  tokens, stamp = cap, now
end

if every_ms > 0 and per > 0 and now > stamp then
  local steps = math.floor((now - stamp) / every_ms)
  if steps > 0 then
    tokens = math.min(cap, tokens + steps * per)
    stamp  = stamp + steps * every_ms
  end
end

local ok, wait = 0, 0
if tokens >= 1 then
  ok, tokens = 1, tokens - 1
else
  wait = math.max(0, every_ms - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {ok, tokens, wait}
`)

// bucketResult is one take from the bucket.
type bucketResult struct {
	Allowed   bool
	Remaining int64
	RetryIn   time.Duration
}

// tokenBucket is a Redis-side token bucket shared by all instances.
type tokenBucket struct {
	rdb *redis.Client
	cfg config.RateLimitConfig
	now func() time.Time
}

func (b *tokenBucket) take(ctx context.Context, key string) (bucketResult, error) {
	ttl := int64(b.cfg.TTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	vals, err := takeScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		ttl,
	).Int64Slice()
	if err != nil {
		return bucketResult{}, err
	}
	if len(vals) != 3 {
		return bucketResult{}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
	}
	return bucketResult{
		Allowed:   vals[0] == 1,
		Remaining: vals[1],
		RetryIn:   time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key with a Redis-side token bucket.
// Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	bucket := &tokenBucket{rdb: rdb, cfg: cfg, now: time.Now}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)

			res, err := bucket.take(ctx, key)
			if err != nil {
				logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("ratelimit: allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res.Allowed {
				return next(c)
			}

			secs := int(math.Ceil(res.RetryIn.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"success":     false,
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// rateKey joins the configured subject parts: ip, user and route.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	subject := map[string][]string{
		"ip":    {"ip", ip},
		"user":  {"user", userID(c)},
		"route": {"route", c.Request().Method + " " + c.Path()},
	}

	strategy := strings.ToLower(cfg.KeyStrategy)
	if strategy == "" || strategy == "ip_user_route" {
		strategy = "ip_user_route"
	}
	parts := []string{cfg.Prefix}
	for _, name := range strings.Split(strategy, "_") {
		parts = append(parts, subject[name]...)
	}
	return strings.Join(parts, ":")
}
