// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers bad signatures, expiry, wrong algorithm and malformed payloads.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is what a verified token proves about the caller.
type Identity struct {
	UserID    uint
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims carries only the user id and email; nothing else from the user row.
type Claims struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the user.
func (i *TokenIssuer) Issue(userID uint, email string) (string, Identity, error) {
	now := i.now()
	// Version 7 ids are time ordered; their millisecond timestamp lets a
	// per-user revocation cutoff tell older tokens from newer ones.
	jti, err := uuid.NewV7()
	if err != nil {
		return "", Identity{}, fmt.Errorf("token id: %w", err)
	}
	id := Identity{
		UserID:    userID,
		Email:     email,
		TokenID:   jti.String(),
		ExpiresAt: now.Add(i.ttl),
	}
	id.IssuedAt, _ = issuedAtFromID(id.TokenID)
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.TokenID,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(id.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, id, nil
}

// TTL is the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Verify checks signature, algorithm and expiry and returns the embedded identity.
func (i *TokenIssuer) Verify(token string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 || claims.Email == "" {
		return Identity{}, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}
	id := Identity{
		UserID:  claims.UserID,
		Email:   claims.Email,
		TokenID: claims.ID,
	}
	if at, ok := issuedAtFromID(claims.ID); ok {
		id.IssuedAt = at
	} else if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// issuedAtFromID reads the unix millisecond timestamp of a version 7 UUID.
func issuedAtFromID(tokenID string) (time.Time, bool) {
	u, err := uuid.Parse(tokenID)
	if err != nil || u.Version() != 7 {
		return time.Time{}, false
	}
	ms := int64(binary.BigEndian.Uint64(u[:8]) >> 16)
	return time.UnixMilli(ms), true
}
