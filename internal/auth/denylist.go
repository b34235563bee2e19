package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token ids until the token would have expired anyway.
// RevokeUser invalidates every token of a user issued before cutoff; the cutoff
// is kept for ttl, the longest a token can live.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	RevokeUser(ctx context.Context, userID uint, cutoff time.Time, ttl time.Duration) error
	RevokedBefore(ctx context.Context, userID uint) (time.Time, error)
}

type userCutoff struct {
	cutoff  time.Time
	expires time.Time
}

// MemoryDenylist is a process-local Denylist.
type MemoryDenylist struct {
	mu    sync.Mutex
	items map[string]time.Time
	users map[uint]userCutoff
	now   func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		items: make(map[string]time.Time),
		users: make(map[uint]userCutoff),
		now:   time.Now,
	}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanup(d.now())
	d.items[tokenID] = expiresAt
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.items[tokenID]
	if !ok {
		return false, nil
	}
	if d.now().After(exp) {
		delete(d.items, tokenID)
		return false, nil
	}
	return true, nil
}

func (d *MemoryDenylist) RevokeUser(_ context.Context, userID uint, cutoff time.Time, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	d.cleanup(now)
	if prev, ok := d.users[userID]; ok && prev.cutoff.After(cutoff) {
		cutoff = prev.cutoff
	}
	d.users[userID] = userCutoff{cutoff: cutoff, expires: now.Add(ttl)}
	return nil
}

// RevokedBefore returns the user's cutoff, or the zero time when there is none.
func (d *MemoryDenylist) RevokedBefore(_ context.Context, userID uint) (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.users[userID]
	if !ok {
		return time.Time{}, nil
	}
	if d.now().After(c.expires) {
		delete(d.users, userID)
		return time.Time{}, nil
	}
	return c.cutoff, nil
}

func (d *MemoryDenylist) cleanup(now time.Time) {
	for k, exp := range d.items {
		if now.After(exp) {
			delete(d.items, k)
		}
	}
	for k, c := range d.users {
		if now.After(c.expires) {
			delete(d.users, k)
		}
	}
}

// RedisDenylist shares revocations between instances. When redis is
// unreachable it degrades to the in-memory fallback.
type RedisDenylist struct {
	Client   *redis.Client
	Prefix   string
	Fallback *MemoryDenylist
	Logger   *slog.Logger
}

func NewRedisDenylist(client *redis.Client, logger *slog.Logger) *RedisDenylist {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisDenylist{
		Client:   client,
		Prefix:   "revoked:",
		Fallback: NewMemoryDenylist(),
		Logger:   logger,
	}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	_ = d.Fallback.Revoke(ctx, tokenID, expiresAt)
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := d.Client.Set(ctx, d.Prefix+tokenID, "1", ttl).Err(); err != nil {
		d.Logger.Warn("redis denylist write failed, using in-memory fallback", "error", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.Client.Exists(ctx, d.Prefix+tokenID).Result()
	if err != nil {
		d.Logger.Warn("redis denylist read failed, using in-memory fallback", "error", err)
		return d.Fallback.IsRevoked(ctx, tokenID)
	}
	if n > 0 {
		return true, nil
	}
	return d.Fallback.IsRevoked(ctx, tokenID)
}

func (d *RedisDenylist) userKey(userID uint) string {
	return d.Prefix + "user:" + strconv.FormatUint(uint64(userID), 10)
}

func (d *RedisDenylist) RevokeUser(ctx context.Context, userID uint, cutoff time.Time, ttl time.Duration) error {
	_ = d.Fallback.RevokeUser(ctx, userID, cutoff, ttl)
	if ttl <= 0 {
		return nil
	}
	if err := d.Client.Set(ctx, d.userKey(userID), strconv.FormatInt(cutoff.UnixMilli(), 10), ttl).Err(); err != nil {
		d.Logger.Warn("redis denylist write failed, using in-memory fallback", "error", err)
	}
	return nil
}

func (d *RedisDenylist) RevokedBefore(ctx context.Context, userID uint) (time.Time, error) {
	local, _ := d.Fallback.RevokedBefore(ctx, userID)
	raw, err := d.Client.Get(ctx, d.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return local, nil
	}
	if err != nil {
		d.Logger.Warn("redis denylist read failed, using in-memory fallback", "error", err)
		return local, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return local, nil
	}
	shared := time.UnixMilli(ms)
	if local.After(shared) {
		return local, nil
	}
	return shared, nil
}
