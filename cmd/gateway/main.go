package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/crewhq/gateway/internal/di"
	"github.com/crewhq/gateway/internal/middleware"
	"github.com/crewhq/gateway/internal/proxy"
	"github.com/crewhq/gateway/pkg/config"
	"github.com/crewhq/gateway/pkg/logger"
	"github.com/crewhq/gateway/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:       logLevel(cfg),
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
		OutputPath:  "stdout",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    1.0,
	}); err != nil {
		logger.Fatal("failed to init telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, resolver cache degraded", zap.Error(err))
		}
		defer rdb.Close()
	}

	var db *pgxpool.Pool
	if cfg.Database.Enabled {
		db, err = pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			logger.Fatal("failed to create postgres pool", zap.Error(err))
		}
		defer db.Close()
	}

	container := di.NewContainer(cfg, rdb, db)

	auditor := middleware.NewDecisionAuditor(middleware.DefaultDecisionAuditConfig(db))
	defer auditor.Close()

	backendProxy, err := proxy.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	if err != nil {
		logger.Fatal("invalid backend base URL", zap.Error(err))
	}

	engine := setupRouter(cfg, container, auditor, backendProxy)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("gateway listening",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.Backend.BaseURL),
			zap.Bool("resolver_cache", cfg.Redis.Enabled),
			zap.Bool("decision_audit", cfg.Database.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func setupRouter(cfg *config.Config, c *di.Container, auditor *middleware.DecisionAuditor, backendProxy *proxy.ReverseProxy) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(cfg.App.Name))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Probes are registered before the routing pipeline: no auth, no
	// rewrite, no audit. A probe carries no session and must never be
	// redirected to the login page.
	engine.GET("/health", c.HealthHandler.Health)
	engine.GET("/ready", c.HealthHandler.Ready)

	engine.Use(middleware.DecisionAudit(auditor))
	engine.Use(middleware.AuthState(&middleware.AuthConfig{Secret: cfg.Session.JWTSecret}))
	engine.Use(middleware.TenantRewrite(&middleware.RewriteConfig{
		Slugs: c.SlugStore,
	}))

	api := engine.Group("/api")
	{
		api.POST("/session/org", c.SessionHandler.SwitchOrg)
		api.DELETE("/session/org", c.SessionHandler.SignOut)
		api.GET("/orgs/:slug/activation", c.ActivationHandler.Status)
	}

	// Everything else, including rewritten tenant-scoped paths, is forwarded
	// to the dashboard backend.
	engine.NoRoute(backendProxy.Handler())

	return engine
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
