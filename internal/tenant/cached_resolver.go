package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crewhq/gateway/internal/domain"
	"github.com/crewhq/gateway/pkg/logger"
)

// CachedResolver is the explicit cache layer over a Resolver. Resolution is
// never cached implicitly; this layer exists only when configured, and its
// invalidation rule is tied to tenant-switch and sign-out events via
// Invalidate. Cache failures fall through to the inner resolver and are
// never surfaced as ErrNotFound.
type CachedResolver struct {
	inner     Resolver
	redis     *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewCachedResolver wraps inner with a redis-backed cache.
func NewCachedResolver(inner Resolver, rdb *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{
		inner:     inner,
		redis:     rdb,
		keyPrefix: "tenant:slug:",
		ttl:       ttl,
	}
}

// Resolve returns the cached record for slug, or resolves through the inner
// resolver and caches the result. Only successful resolutions are cached:
// NotFound and Unavailable are passed through uncached so a recovered
// backend or a newly created tenant is observed on the next request.
func (r *CachedResolver) Resolve(ctx context.Context, slug string) (*domain.Tenant, error) {
	key := r.keyPrefix + slug

	raw, err := r.redis.Get(ctx, key).Result()
	if err == nil {
		var rec domain.Tenant
		if json.Unmarshal([]byte(raw), &rec) == nil && rec.ID != "" {
			return &rec, nil
		}
		// Corrupt entry: drop it and resolve fresh.
		r.redis.Del(ctx, key)
	} else if err != redis.Nil {
		logger.WarnCtx(ctx, "tenant cache read failed", zap.String("slug", slug), zap.Error(err))
	}

	rec, err := r.inner.Resolve(ctx, slug)
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(rec); merr == nil {
		if serr := r.redis.Set(ctx, key, data, r.ttl).Err(); serr != nil {
			logger.WarnCtx(ctx, "tenant cache write failed", zap.String("slug", slug), zap.Error(serr))
		}
	}
	return rec, nil
}

// Invalidate drops the cached record for slug. Called on org-switch and
// sign-out so the next request resolves fresh.
func (r *CachedResolver) Invalidate(ctx context.Context, slug string) {
	if slug == "" {
		return
	}
	if err := r.redis.Del(ctx, r.keyPrefix+slug).Err(); err != nil {
		logger.WarnCtx(ctx, "tenant cache invalidation failed", zap.String("slug", slug), zap.Error(err))
	}
}
