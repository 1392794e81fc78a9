package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	unsetenv(t, "A")
	unsetenv(t, "B")
	unsetenv(t, "C")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := []byte(`
# comment

A=one
export B=two
C="three"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("A"); got != "one" {
		t.Fatalf("A=%q, want %q", got, "one")
	}
	if got := os.Getenv("B"); got != "two" {
		t.Fatalf("B=%q, want %q", got, "two")
	}
	if got := os.Getenv("C"); got != "three" {
		t.Fatalf("C=%q, want %q", got, "three")
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("KEEP", "already")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KEEP=fromfile\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("KEEP"); got != "already" {
		t.Fatalf("KEEP=%q, want %q", got, "already")
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"APP_ENV", "PORT", "DB_PATH", "PERSISTENCE", "AIRPORT_CACHE_TTL", "AIRPORT_RPS", "SESSION_TTL", "REDIS_DB", "AIRPORT_API_TOKEN", "MAP_STATIC_URL", "CORS_ORIGINS"} {
		unsetenv(t, k)
	}

	cfg := Load()
	if cfg.Port != defaultPort || cfg.DBPath != defaultDBPath || cfg.Persistence != "sqlite" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AirportCacheTTL != 24*time.Hour || cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("unexpected duration defaults %v %v", cfg.AirportCacheTTL, cfg.SessionTTL)
	}
	if len(cfg.Warnings) != 2 {
		t.Fatalf("expected token and map warnings, got %v", cfg.Warnings)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected CORS default %v", cfg.CORSOrigins)
	}

	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("PERSISTENCE", "Redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("AIRPORT_CACHE_TTL", "90m")
	t.Setenv("AIRPORT_RPS", "2.5")
	t.Setenv("AIRPORT_API_TOKEN", "token")
	t.Setenv("MAP_STATIC_URL", "https://maps.example.com/static")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, ,https://admin.example.com")

	cfg = Load()
	if !cfg.IsProduction() || cfg.Port != "9090" || cfg.Persistence != "redis" || cfg.RedisDB != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.AirportCacheTTL != 90*time.Minute || cfg.AirportRPS != 2.5 {
		t.Fatalf("unexpected airport settings %v %v", cfg.AirportCacheTTL, cfg.AirportRPS)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
	if len(cfg.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", cfg.Warnings)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PERSISTENCE", "postgres")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("PDF_CACHE_SIZE", "-1")
	t.Setenv("AIRPORT_API_TOKEN", "token")
	t.Setenv("MAP_STATIC_URL", "https://maps.example.com/static")

	cfg := Load()
	if cfg.Persistence != "sqlite" || cfg.SessionTTL != defaultSessionTTL || cfg.PDFCacheSize != defaultPDFCacheSize {
		t.Fatalf("invalid values must fall back: %+v", cfg)
	}
	if len(cfg.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", cfg.Warnings)
	}
}
