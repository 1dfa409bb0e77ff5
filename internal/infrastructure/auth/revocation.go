package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations invalidates access tokens before they expire. A token is
// revoked on its own (logout) or through a per-user cutoff (logout
// everywhere, password change) that rejects everything issued before it.
type Revocations interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	// Revoked checks the token id and the owner's cutoff. iat has second
	// precision, so a token minted in the cutoff's second stays valid and
	// an immediate re-login works.
	Revoked(ctx context.Context, jti, userID string, issuedAt time.Time) (bool, error)
}

const revocationPrefix = "storefront:revoked:"

// RedisRevocations shares revocations across instances
type RedisRevocations struct {
	client redis.UniversalClient
}

func NewRedisRevocations(client redis.UniversalClient) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func tokenKey(jti string) string     { return revocationPrefix + "jti:" + jti }
func cutoffKey(userID string) string { return revocationPrefix + "user:" + userID }

func (r *RedisRevocations) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, tokenKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocations) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, cutoffKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// Revoked reads both keys in one round trip
func (r *RedisRevocations) Revoked(ctx context.Context, jti, userID string, issuedAt time.Time) (bool, error) {
	var (
		exists *redis.IntCmd
		cutoff *redis.StringCmd
	)
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		if jti != "" {
			exists = p.Exists(ctx, tokenKey(jti))
		}
		cutoff = p.Get(ctx, cutoffKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	if exists != nil && exists.Val() > 0 {
		return true, nil
	}

	raw, err := cutoff.Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation cutoff %q: %w", raw, err)
	}
	return issuedAt.Unix() < unix, nil
}

// MemoryRevocations serves a single instance without Redis. Entries
// expire like their Redis counterparts and are swept on write.
type MemoryRevocations struct {
	mu        sync.Mutex
	tokens    map[string]time.Time // jti -> expiry
	cutoffs   map[string]cutoff    // user -> cutoff
	now       func() time.Time
	nextSweep time.Time
}

type cutoff struct {
	at      time.Time
	expires time.Time // zero keeps the cutoff
}

func (c cutoff) live(now time.Time) bool {
	return c.expires.IsZero() || now.Before(c.expires)
}

const memorySweepInterval = time.Minute

type MemoryRevocationsOption func(*MemoryRevocations)

// WithClock replaces time.Now
func WithClock(now func() time.Time) MemoryRevocationsOption {
	return func(m *MemoryRevocations) { m.now = now }
}

func NewMemoryRevocations(opts ...MemoryRevocationsOption) *MemoryRevocations {
	m := &MemoryRevocations{
		tokens:  make(map[string]time.Time),
		cutoffs: make(map[string]cutoff),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryRevocations) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	m.tokens[jti] = now.Add(ttl)
	return nil
}

// RevokeUser keeps the cutoff for ttl, the longest an access token issued
// before it can live. A ttl of zero keeps it for the life of the process.
func (m *MemoryRevocations) RevokeUser(_ context.Context, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	c := cutoff{at: now}
	if ttl > 0 {
		c.expires = now.Add(ttl)
	}
	m.cutoffs[userID] = c
	return nil
}

func (m *MemoryRevocations) Revoked(_ context.Context, jti, userID string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.tokens[jti]; ok {
		if now.Before(expiry) {
			return true, nil
		}
		delete(m.tokens, jti)
	}
	c, ok := m.cutoffs[userID]
	if !ok {
		return false, nil
	}
	if !c.live(now) {
		delete(m.cutoffs, userID)
		return false, nil
	}
	return issuedAt.Unix() < c.at.Unix(), nil
}

// sweep drops expired entries at most once per memorySweepInterval.
// Callers hold mu.
func (m *MemoryRevocations) sweep(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	m.nextSweep = now.Add(memorySweepInterval)
	for jti, expiry := range m.tokens {
		if !now.Before(expiry) {
			delete(m.tokens, jti)
		}
	}
	for userID, c := range m.cutoffs {
		if !c.live(now) {
			delete(m.cutoffs, userID)
		}
	}
}

var (
	_ Revocations = (*RedisRevocations)(nil)
	_ Revocations = (*MemoryRevocations)(nil)
)
