package config

import (
	"os"
	"testing"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	envVars := []string{
		"APP_NAME", "APP_ENVIRONMENT", "APP_DEBUG",
		"SERVER_HOST", "SERVER_PORT",
		"BACKEND_BASE_URL", "BACKEND_TIMEOUT",
		"SESSION_COOKIE_NAME", "SESSION_JWT_SECRET",
		"REDIS_HOST", "REDIS_PORT",
		"DATABASE_HOST", "DATABASE_PORT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "crewhq-gateway" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "crewhq-gateway")
	}

	if cfg.App.Environment != "development" {
		t.Errorf("App.Environment = %q, want %q", cfg.App.Environment, "development")
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}

	if cfg.Backend.BaseURL != "http://localhost:9000" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://localhost:9000")
	}

	if cfg.Session.CookieName != "crewhq_org" {
		t.Errorf("Session.CookieName = %q, want %q", cfg.Session.CookieName, "crewhq_org")
	}

	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want %d", cfg.Redis.Port, 6379)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}

	if len(cfg.CORS.AllowOrigins) != 1 || cfg.CORS.AllowOrigins[0] != "*" {
		t.Errorf("CORS.AllowOrigins = %v, want [*]", cfg.CORS.AllowOrigins)
	}
}

func TestLoad_CORSOriginList(t *testing.T) {
	os.Setenv("CORS_ALLOW_ORIGINS", "https://app.crewhq.test, https://admin.crewhq.test")
	defer os.Unsetenv("CORS_ALLOW_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := []string{"https://app.crewhq.test", "https://admin.crewhq.test"}
	if len(cfg.CORS.AllowOrigins) != len(want) {
		t.Fatalf("CORS.AllowOrigins = %v, want %v", cfg.CORS.AllowOrigins, want)
	}
	for i := range want {
		if cfg.CORS.AllowOrigins[i] != want[i] {
			t.Errorf("CORS.AllowOrigins = %v, want %v", cfg.CORS.AllowOrigins, want)
			break
		}
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	os.Setenv("APP_NAME", "test-gateway")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("BACKEND_BASE_URL", "http://api.internal:9000")
	os.Setenv("SESSION_COOKIE_NAME", "test_org")
	defer func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("BACKEND_BASE_URL")
		os.Unsetenv("SESSION_COOKIE_NAME")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "test-gateway" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "test-gateway")
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}

	if cfg.Backend.BaseURL != "http://api.internal:9000" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://api.internal:9000")
	}

	if cfg.Session.CookieName != "test_org" {
		t.Errorf("Session.CookieName = %q, want %q", cfg.Session.CookieName, "test_org")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		DBName:   "crewhq",
		SSLMode:  "disable",
	}

	want := "host=localhost port=5432 user=postgres password=secret dbname=crewhq sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.internal", Port: 6380}

	if got := cfg.Addr(); got != "redis.internal:6380" {
		t.Errorf("Addr() = %q, want %q", got, "redis.internal:6380")
	}
}

func TestValidate_ProductionSecret(t *testing.T) {
	os.Setenv("APP_ENVIRONMENT", "production")
	defer os.Unsetenv("APP_ENVIRONMENT")

	_, err := Load()
	if err == nil {
		t.Error("Load() should reject the default JWT secret in production")
	}
}
