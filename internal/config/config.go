package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppEnv       = "development"
	defaultDBPath       = "./dev.db"
	defaultPort         = "8080"
	defaultPersistence  = "sqlite"
	defaultRedisHost    = "localhost"
	defaultRedisPort    = "6379"
	defaultAirportURL   = "https://airportdb.io/api/v1/airport"
	defaultAirportTTL   = 24 * time.Hour
	defaultAirportRPS   = 5.0
	defaultAirportBurst = 10
	defaultPDFCacheSize = 64
	defaultPDFCacheTTL  = 30 * time.Minute
	defaultSessionTTL   = 12 * time.Hour
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv  string
	Port    string
	DBPath  string
	LogFile string

	// Persistence selects the draft/snapshot store: sqlite, redis or memory.
	Persistence   string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	AirportAPIURL   string
	AirportAPIToken string
	AirportCacheTTL time.Duration
	AirportRPS      float64
	AirportBurst    int

	MapStaticURL string

	PDFCacheSize int
	PDFCacheTTL  time.Duration

	S3Bucket          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicURL       string

	SessionTTL  time.Duration
	CORSOrigins []string

	// Warnings collects problems found while loading, for logging once the
	// logger exists.
	Warnings []string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		AppEnv:  envString("APP_ENV", defaultAppEnv),
		Port:    envString("PORT", defaultPort),
		DBPath:  envString("DB_PATH", defaultDBPath),
		LogFile: os.Getenv("LOG_FILE"),

		Persistence:   strings.ToLower(envString("PERSISTENCE", defaultPersistence)),
		RedisHost:     envString("REDIS_HOST", defaultRedisHost),
		RedisPort:     envString("REDIS_PORT", defaultRedisPort),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		AirportAPIURL:   envString("AIRPORT_API_URL", defaultAirportURL),
		AirportAPIToken: os.Getenv("AIRPORT_API_TOKEN"),

		MapStaticURL: os.Getenv("MAP_STATIC_URL"),

		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicURL:       os.Getenv("S3_PUBLIC_URL"),
	}

	cfg.RedisDB = cfg.envInt("REDIS_DB", 0)
	cfg.AirportCacheTTL = cfg.envDuration("AIRPORT_CACHE_TTL", defaultAirportTTL)
	cfg.AirportRPS = cfg.envFloat("AIRPORT_RPS", defaultAirportRPS)
	cfg.AirportBurst = cfg.envInt("AIRPORT_BURST", defaultAirportBurst)
	cfg.PDFCacheSize = cfg.envInt("PDF_CACHE_SIZE", defaultPDFCacheSize)
	cfg.PDFCacheTTL = cfg.envDuration("PDF_CACHE_TTL", defaultPDFCacheTTL)
	cfg.SessionTTL = cfg.envDuration("SESSION_TTL", defaultSessionTTL)
	cfg.CORSOrigins = envList("CORS_ORIGINS", []string{"http://localhost:5173"})

	switch cfg.Persistence {
	case "sqlite", "redis", "memory":
	default:
		cfg.warn("PERSISTENCE=%q is not one of sqlite, redis, memory; using %s", cfg.Persistence, defaultPersistence)
		cfg.Persistence = defaultPersistence
	}
	if cfg.AirportAPIToken == "" {
		cfg.warn("AIRPORT_API_TOKEN is not set")
	}
	if cfg.MapStaticURL == "" {
		cfg.warn("MAP_STATIC_URL is not set; proposals will have no route map")
	}

	return cfg
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (c *Config) envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.warn("%s=%q is not a non-negative integer; using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func (c *Config) envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		c.warn("%s=%q is not a positive number; using %g", key, raw, fallback)
		return fallback
	}
	return v
}

func (c *Config) envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		c.warn("%s=%q is not a positive duration; using %s", key, raw, fallback)
		return fallback
	}
	return v
}
