package middleware

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/logging"
)

// cachedResponse is what the response cache stores per key.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// recorder tees the response body into a buffer, giving up once it
// passes max bytes.
type recorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	max      int
	overflow bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.overflow {
		if r.max > 0 && r.body.Len()+len(b) > r.max {
			r.overflow = true
			r.body.Reset()
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// responseKey hashes the request identity selected by KeyStrategy.  Path
// parameters are always part of it so /v1/movies/:id never collides.
func responseKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var b strings.Builder
	if strings.HasPrefix(strings.ToLower(cfg.KeyStrategy), "method_") {
		b.WriteString(r.Method + " ")
	}
	b.WriteString(c.Path())
	for _, name := range c.ParamNames() {
		b.WriteString("|" + name + "=" + c.Param(name))
	}
	if strings.HasSuffix(strings.ToLower(cfg.KeyStrategy), "query") || cfg.KeyStrategy == "" {
		b.WriteString("?" + r.URL.Query().Encode())
	}
	sum := sha1.Sum([]byte(b.String()))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

func replay(c echo.Context, cached cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range cached.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		h[k] = append([]string(nil), vals...)
	}
	h.Set("X-Cache", "HIT")
	return c.Blob(cached.Status, h.Get(echo.HeaderContentType), cached.Body)
}

// noStore reports whether the handler opted out of caching.
func noStore(h http.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Cache-Control")), "no-store")
}

// NewRedisCache caches 200 responses of the configured methods in Redis.
// Handlers opt out per response with "Cache-Control: no-store", which the
// catalog does for listings that failed upstream.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := responseKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil && cached.Status != 0 {
					return replay(c, cached)
				}
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, max: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.overflow || noStore(c.Response().Header()) {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			raw, err := json.Marshal(cachedResponse{Status: rec.status, Header: hdr, Body: rec.body.Bytes()})
			if err != nil {
				return nil
			}
			if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
				logging.FromContext(ctx).WithError(err).Warn("response cache write failed")
			}
			return nil
		}
	}
}
