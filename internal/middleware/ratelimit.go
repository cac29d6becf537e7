package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/wedding-planner/internal/config"
)

// tokenBucket refills whole intervals only, so a burst of planner saves
// cannot earn fractional tokens. Returns {allowed, remaining, retry_ms}.
var tokenBucket = redis.NewScript(`
local key      = KEYS[1]
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local every    = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local st = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(st[1]) or capacity
local ts     = tonumber(st[2]) or now

if every > 0 then
  local n = math.floor(math.max(0, now - ts) / every)
  if n > 0 then
    tokens = math.min(capacity, tokens + n * refill)
    ts = ts + n * every
  end
end

local allowed, retry = 0, 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.max(0, every - (now - ts))
end

redis.call('HSET', key, 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry}
`)

type bucketState struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

func parseBucket(v interface{}) (bucketState, bool) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 3 {
		return bucketState{}, false
	}
	n := make([]int64, 3)
	for i, x := range arr {
		switch t := x.(type) {
		case int64:
			n[i] = t
		case string:
			p, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				return bucketState{}, false
			}
			n[i] = p
		default:
			return bucketState{}, false
		}
	}
	return bucketState{allowed: n[0] == 1, remaining: n[1], retry: time.Duration(n[2]) * time.Millisecond}, true
}

// NewTokenBucket throttles callers with a Redis token bucket keyed by
// cfg.KeyStrategy. With no Redis, or on a Redis error, requests pass.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttlSecs := int64(cfg.TTL / time.Second)
	if ttlSecs < 1 {
		ttlSecs = 1
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			log := zerolog.Ctx(ctx)
			key := rateKey(cfg, c)

			res, err := tokenBucket.Run(ctx, rdb, []string{key},
				time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(), ttlSecs).Result()
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("ratelimit: redis error")
				return next(c)
			}
			st, ok := parseBucket(res)
			if !ok {
				log.Warn().Str("key", key).Interface("result", res).Msg("ratelimit: unexpected script result")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(st.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if st.allowed {
				return next(c)
			}

			// Round up so a client never retries before a token exists.
			secs := (st.retry + time.Second - 1) / time.Second
			h.Set("Retry-After", strconv.FormatInt(int64(secs), 10))
			if cfg.Debug {
				log.Debug().Str("key", key).Dur("retry", st.retry).Msg("ratelimit: blocked")
			}
			return deny(c, http.StatusTooManyRequests, "rate_limited", "too_many_requests", "rate limit exceeded")
		}
	}
}

// rateKey joins the prefix with the parts named by the strategy, in the
// fixed order ip, user, route. An unknown strategy uses all three.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	strategy := strings.ToLower(cfg.KeyStrategy)
	switch strategy {
	case "ip", "user", "route", "ip_user", "ip_route", "user_route":
	default:
		strategy = "ip_user_route"
	}
	want := func(part string) bool {
		for _, s := range strings.Split(strategy, "_") {
			if s == part {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	b.WriteString(cfg.Prefix)
	if want("ip") {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		b.WriteString(":ip:" + ip)
	}
	if want("user") {
		b.WriteString(":user:" + userKey(c))
	}
	if want("route") {
		b.WriteString(":route:" + c.Request().Method + " " + c.Path())
	}
	return b.String()
}
