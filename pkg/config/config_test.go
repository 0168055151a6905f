package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "dev" {
		t.Fatalf("expected App.Env default dev, got %q", cfg.App.Env)
	}
	if cfg.API.BaseURL != "https://store.example.com/api" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if got := cfg.API.Timeout; got != 15*time.Second {
		t.Fatalf("expected default timeout 15s, got %v", got)
	}
	if cfg.Store.Driver != StoreDriverSQLite {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Store.Driver)
	}
	if !cfg.Store.Fallback {
		t.Fatalf("expected store fallback enabled by default")
	}
}

func TestLoad_MissingBaseURL(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAPIBaseURL); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAPIBaseURL, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing base url to return an error")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStoreDriver, "indexeddb")

	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}

func TestLoad_RedisDriverNeedsAddress(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStoreDriver, StoreDriverRedis)

	if _, err := Load(); err == nil {
		t.Fatal("expected redis driver without address to fail")
	}

	t.Setenv(EnvRedisURL, "redis://localhost:6379/2")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.URL != "redis://localhost:6379/2" {
		t.Fatalf("unexpected redis url %q", cfg.Redis.URL)
	}
}

func TestAPIConfigOrigin(t *testing.T) {
	api := APIConfig{BaseURL: "https://relo.example.com/api"}
	if got := api.Origin(); got != "https://relo.example.com" {
		t.Fatalf("unexpected origin %q", got)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAPIBaseURL, "https://store.example.com/api")
	for _, key := range []string{EnvAppEnv, EnvAPITimeout, EnvStoreDriver, EnvStorePath, EnvRedisURL, EnvRedisAddr} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
