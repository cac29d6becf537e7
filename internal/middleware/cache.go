package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/wedding-planner/internal/config"
)

const storeTimeout = time.Second

// cachedResponse is what a profile read looks like in Redis.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// teeWriter forwards to the client and keeps a copy of the body until it
// grows past limit, after which the copy is dropped.
type teeWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.body.Len()+len(b) > w.limit {
			w.overflow = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// profileCacheKey scopes an entry to the caller and the concrete path, so
// /profiles/1 and /profiles/2 never share one.
func profileCacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	h := sha256.New()
	h.Write([]byte(userKey(c)))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	if cfg.IncludeQuery {
		h.Write([]byte{0})
		h.Write([]byte(r.URL.RawQuery))
	}
	return cfg.Prefix + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}

func replay(c echo.Context, cr cachedResponse) error {
	hdr := c.Response().Header()
	for k, vals := range cr.Header {
		if k == echo.HeaderContentLength {
			continue
		}
		hdr[k] = append([]string(nil), vals...)
	}
	hdr.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cr.Status)
	_, err := c.Response().Write(cr.Body)
	return err
}

// NewRedisCache serves repeated profile reads from Redis. Only 200
// responses are stored. It is a no-op when caching is disabled or Redis is
// unavailable, and Redis errors never fail the request.
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
			if !cfg.Cacheable(c.Request().Method) {
				return next(c)
			}
			ctx := c.Request().Context()
			log := zerolog.Ctx(ctx)
			key := profileCacheKey(cfg, c)

			raw, err := rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				var cr cachedResponse
				if jerr := json.Unmarshal(raw, &cr); jerr == nil && cr.Status > 0 {
					return replay(c, cr)
				}
				log.Warn().Str("key", key).Msg("cache: dropping unreadable entry")
			case err != redis.Nil:
				log.Warn().Err(err).Msg("cache: lookup failed")
			}

			tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = tw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if tw.status != http.StatusOK || tw.overflow {
				return nil
			}

			payload, err := json.Marshal(cachedResponse{
				Status: tw.status,
				Header: c.Response().Header().Clone(),
				Body:   tw.body.Bytes(),
			})
			if err != nil {
				return nil
			}
			// The request context may already be cancelled by a client
			// that has read its response.
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
			defer cancel()
			if err := rdb.Set(sctx, key, payload, ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("cache: store failed")
			}
			return nil
		}
	}
}
