package di

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/crewhq/gateway/internal/activation"
	"github.com/crewhq/gateway/internal/client"
	"github.com/crewhq/gateway/internal/handler"
	"github.com/crewhq/gateway/internal/session"
	"github.com/crewhq/gateway/internal/tenant"
	"github.com/crewhq/gateway/pkg/config"
)

// Container holds all dependencies for the gateway
type Container struct {
	// Infrastructure
	Backend *client.Client
	Redis   *redis.Client
	DB      *pgxpool.Pool

	// Core components
	SlugStore *session.SlugStore
	Resolver  tenant.Resolver
	Cache     *tenant.CachedResolver
	Tracker   *activation.Tracker

	// Handlers
	HealthHandler     *handler.HealthHandler
	SessionHandler    *handler.SessionHandler
	ActivationHandler *handler.ActivationHandler
}

// NewContainer creates a new dependency injection container. rdb and db are
// optional: without redis the resolver runs uncached, without postgres the
// decision audit has no sink.
func NewContainer(cfg *config.Config, rdb *redis.Client, db *pgxpool.Pool) *Container {
	c := &Container{
		Backend: client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout),
		Redis:   rdb,
		DB:      db,
	}

	c.SlugStore = session.NewSlugStore(
		cfg.Session.CookieName,
		cfg.Session.CookieSecure,
		cfg.Session.CookieMaxAge,
	)

	c.Resolver = tenant.NewHTTPResolver(c.Backend)
	if rdb != nil {
		c.Cache = tenant.NewCachedResolver(c.Resolver, rdb, cfg.Redis.CacheTTL)
		c.Resolver = c.Cache
	}

	c.Tracker = activation.NewTracker(c.Backend)

	c.HealthHandler = handler.NewHealthHandler(db, rdb)
	// The cache invalidator must be nil, not a typed nil, when uncached.
	var invalidator handler.CacheInvalidator
	if c.Cache != nil {
		invalidator = c.Cache
	}
	c.SessionHandler = handler.NewSessionHandler(c.Resolver, c.SlugStore, invalidator)
	c.ActivationHandler = handler.NewActivationHandler(c.Resolver, c.Tracker)

	return c
}
