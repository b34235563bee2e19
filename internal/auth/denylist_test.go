package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	require.NoError(t, d.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "jti-old", time.Now().Add(-time.Second)))
	revoked, err = d.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisDenylist(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	d := NewRedisDenylist(client, nil)
	require.NoError(t, d.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	assert.True(t, mr.Exists("revoked:jti-1"))

	// A second instance sharing redis sees the revocation.
	other := NewRedisDenylist(client, nil)
	revoked, err := other.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("revoked:jti-1"))
}

func TestRedisDenylistUnavailableFallsBack(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   -1,
	})
	defer client.Close()

	ctx := context.Background()
	d := NewRedisDenylist(client, nil)
	require.NoError(t, d.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryDenylistUserCutoff(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDenylist()

	cutoff, err := d.RevokedBefore(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero())

	at := time.Now().Truncate(time.Millisecond)
	require.NoError(t, d.RevokeUser(ctx, 1, at, time.Hour))
	require.NoError(t, d.RevokeUser(ctx, 1, at.Add(-time.Minute), time.Hour))
	cutoff, err = d.RevokedBefore(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cutoff.Equal(at), "an older cutoff never replaces a newer one")

	other, err := d.RevokedBefore(ctx, 2)
	require.NoError(t, err)
	assert.True(t, other.IsZero())

	d.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	cutoff, err = d.RevokedBefore(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero())
}

func TestRedisDenylistUserCutoff(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	at := time.UnixMilli(time.Now().UnixMilli())
	require.NoError(t, NewRedisDenylist(client, nil).RevokeUser(ctx, 7, at, time.Minute))
	assert.True(t, mr.Exists("revoked:user:7"))

	cutoff, err := NewRedisDenylist(client, nil).RevokedBefore(ctx, 7)
	require.NoError(t, err)
	assert.True(t, cutoff.Equal(at))

	mr.FastForward(2 * time.Minute)
	cutoff, err = NewRedisDenylist(client, nil).RevokedBefore(ctx, 7)
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero())
}
