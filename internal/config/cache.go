package config

import (
	"strings"
	"time"
)

// CacheConfig configures the Redis response cache in front of public
// profile reads. Entries are always scoped to the caller and the concrete
// request path, so the only knobs are lifetime and size.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
	// MaxBodyBytes caps what gets stored. Zero stores any size.
	MaxBodyBytes int
	// Methods lists the upper-cased HTTP methods eligible for caching.
	Methods map[string]bool
	// IncludeQuery makes ?fields=... style variants separate entries.
	IncludeQuery bool
}

// Cacheable reports whether responses to method may be stored.
func (c CacheConfig) Cacheable(method string) bool {
	return c.Enabled && c.Methods[strings.ToUpper(method)]
}

// LoadCacheConfig reads PROFILE_CACHE_* variables. A bad TTL falls back to
// one minute; profiles change rarely and signout does not touch them.
func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:      envBool("PROFILE_CACHE_ENABLED", true),
		TTL:          envDur("PROFILE_CACHE_TTL", time.Minute),
		Prefix:       envStr("PROFILE_CACHE_PREFIX", "profile"),
		MaxBodyBytes: envInt("PROFILE_CACHE_MAX_BODY_BYTES", 64<<10),
		Methods:      methodSet(envStr("PROFILE_CACHE_METHODS", "GET,HEAD")),
		IncludeQuery: envBool("PROFILE_CACHE_INCLUDE_QUERY", true),
	}
	if c.TTL <= 0 {
		c.TTL = time.Minute
	}
	if c.MaxBodyBytes < 0 {
		c.MaxBodyBytes = 0
	}
	return c
}

func methodSet(csv string) map[string]bool {
	set := make(map[string]bool)
	for _, m := range strings.Split(csv, ",") {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			set[m] = true
		}
	}
	return set
}
