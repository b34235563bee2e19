package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, issued, err := issuer.Issue(7, "a@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TokenID)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id.UserID)
	assert.Equal(t, "a@example.com", id.Email)
	assert.Equal(t, issued.TokenID, id.TokenID)
	assert.False(t, id.IssuedAt.IsZero())
	assert.True(t, id.IssuedAt.Equal(issued.IssuedAt))
}

func TestTokenIssuer_IssuedAtIsOrdered(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	before := time.Now().Truncate(time.Millisecond)

	_, first, err := issuer.Issue(7, "a@example.com")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, second, err := issuer.Issue(7, "a@example.com")
	require.NoError(t, err)

	assert.False(t, first.IssuedAt.Before(before))
	assert.True(t, second.IssuedAt.After(first.IssuedAt))
}

func TestTokenIssuer_PayloadCarriesOnlyIdentity(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, _, err := issuer.Issue(7, "a@example.com")
	require.NoError(t, err)

	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(token, ".")[1])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"id":7`)
	assert.Contains(t, string(payload), `"email":"a@example.com"`)
	assert.NotContains(t, string(payload), "password")
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	good, _, err := issuer.Issue(1, "a@example.com")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenIssuer("other", time.Hour).Verify(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenIssuer("secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		expired, _, err := past.Issue(1, "a@example.com")
		require.NoError(t, err)
		_, err = issuer.Verify(expired)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing id claim", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"email": "a@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"id":    1,
			"email": "a@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	ok, err := CheckPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}
