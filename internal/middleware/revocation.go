package middleware

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionRevocations records, per user, the instant of their last signout.
// Access tokens issued at or before that instant are refused by JWTAuth.
// A nil client turns every call into a no-op.
type SessionRevocations struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionRevocations keeps each marker for ttl, which should be at least
// the access token lifetime.
func NewSessionRevocations(rdb *redis.Client, ttl time.Duration) *SessionRevocations {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRevocations{rdb: rdb, prefix: "signout", ttl: ttl}
}

func (s *SessionRevocations) key(userID uint64) string {
	return s.prefix + ":" + strconv.FormatUint(userID, 10)
}

// Revoke marks every token issued up to at as invalid.
func (s *SessionRevocations) Revoke(ctx context.Context, userID uint64, at time.Time) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Set(ctx, s.key(userID), at.UnixMilli(), s.ttl).Err()
}

// RevokedSince reports the last signout instant for userID.
func (s *SessionRevocations) RevokedSince(ctx context.Context, userID uint64) (time.Time, bool, error) {
	if s == nil || s.rdb == nil {
		return time.Time{}, false, nil
	}
	ms, err := s.rdb.Get(ctx, s.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms).UTC(), true, nil
}
