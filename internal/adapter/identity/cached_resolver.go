// Package identity holds domain.UserResolver implementations that sit in
// front of, or replace, the identity provider's user lookup.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/V4T54L/tenant-gateway/internal/adapter/metrics"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

const maxCachedTokens = 10000

type cacheEntry struct {
	user      domain.User
	expiresAt time.Time
}

// CachedUserResolver wraps a domain.UserResolver with an in-memory,
// time-based cache of successful lookups. Failures are never cached.
type CachedUserResolver struct {
	next    domain.UserResolver
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.GatewayMetrics

	mu    sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewCachedUserResolver creates a caching resolver in front of next.
func NewCachedUserResolver(next domain.UserResolver, ttl time.Duration, logger *slog.Logger, m *metrics.GatewayMetrics) *CachedUserResolver {
	return &CachedUserResolver{
		next:    next,
		ttl:     ttl,
		logger:  logger.With("component", "token_cache"),
		metrics: m,
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// tokens are keyed by digest so raw bearer tokens are not retained.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GetUser returns the cached user for token, falling back to the wrapped
// resolver when the token is unknown or its entry has expired.
func (r *CachedUserResolver) GetUser(ctx context.Context, token string) (*domain.User, error) {
	key := cacheKey(token)

	r.mu.RLock()
	entry, found := r.cache[key]
	r.mu.RUnlock()

	if found && r.now().Before(entry.expiresAt) {
		r.metrics.TokenCache(true)
		u := entry.user
		return &u, nil
	}
	r.metrics.TokenCache(false)

	user, err := r.next.GetUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return user, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cache) >= maxCachedTokens {
		r.evictExpiredLocked()
	}
	r.cache[key] = cacheEntry{user: *user, expiresAt: r.now().Add(r.ttl)}
	return user, nil
}

// Invalidate forgets token, so a signed-out session is rejected on its next use.
func (r *CachedUserResolver) Invalidate(token string) {
	if token == "" {
		return
	}
	r.mu.Lock()
	delete(r.cache, cacheKey(token))
	r.mu.Unlock()
}

func (r *CachedUserResolver) evictExpiredLocked() {
	now := r.now()
	for k, e := range r.cache {
		if !now.Before(e.expiresAt) {
			delete(r.cache, k)
		}
	}
	// Still full of live entries: start over rather than grow without bound.
	if len(r.cache) >= maxCachedTokens {
		r.logger.Warn("token cache full, clearing", "entries", len(r.cache))
		r.cache = make(map[string]cacheEntry)
	}
}
