// Package utils provides token creation, parsing and hashing helpers.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by ParseAccessToken for any token that fails
// signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken is a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is a long-lived opaque token. Only its SHA-256 hash is
// stored server side.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// AccessClaims is the decoded form of an access token.
type AccessClaims struct {
	UserID uint64
	Role   string
	// IssuedAt keeps millisecond precision so a signout and a fresh login in
	// the same second can be told apart.
	IssuedAt time.Time
	ExpireAt time.Time
}

// NewAccessToken builds and signs an HS256 JWT carrying sub, role, exp, iat
// and iat_ms.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":    userID,
		"role":   role,
		"exp":    exp.Unix(),
		"iat":    now.Unix(),
		"iat_ms": now.UnixMilli(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and decodes its claims.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, ErrInvalidToken
	}

	var out AccessClaims
	sub, ok := mc["sub"].(float64)
	if !ok || sub < 1 {
		return AccessClaims{}, ErrInvalidToken
	}
	out.UserID = uint64(sub)
	out.Role, _ = mc["role"].(string)

	if ms, ok := mc["iat_ms"].(float64); ok {
		out.IssuedAt = time.UnixMilli(int64(ms)).UTC()
	} else if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time.UTC()
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpireAt = exp.Time.UTC()
	}
	return out, nil
}

// NewRefreshToken returns a random 96 hex character token and its expiry.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
