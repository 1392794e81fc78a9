package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/charterquote/internal/airport"
	"github.com/Simplici0/charterquote/internal/catalog"
	"github.com/Simplici0/charterquote/internal/config"
	"github.com/Simplici0/charterquote/internal/db"
	"github.com/Simplici0/charterquote/internal/logging"
	"github.com/Simplici0/charterquote/internal/maprender"
	"github.com/Simplici0/charterquote/internal/metrics"
	"github.com/Simplici0/charterquote/internal/migrations"
	"github.com/Simplici0/charterquote/internal/objectstore"
	"github.com/Simplici0/charterquote/internal/pdfrender"
	"github.com/Simplici0/charterquote/internal/seed"
	"github.com/Simplici0/charterquote/internal/session"
	"github.com/Simplici0/charterquote/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := logging.Init(cfg.AppEnv, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logging.Close()
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalw("failed to open database", "error", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		logger.Fatalw("failed to run database migrations", "error", err)
	}
	stats, err := seed.Run(database, catalog.Defaults())
	if err != nil {
		logger.Fatalw("failed to seed aircraft", "error", err)
	}
	logger.Infow("aircraft catalog seeded", "inserts", stats.Inserts, "updates", stats.Updates)

	ctx := context.Background()

	persistence, closeStore := openPersistence(cfg, database, logger)
	defer closeStore()

	entries, err := catalog.Load(ctx, database)
	if err != nil {
		logger.Fatalw("failed to load aircraft catalog", "error", err)
	}
	cat := catalog.New(entries, persistence, logger)
	cat.LoadOverrides(ctx)

	reg := metrics.NewRegistry()

	resolver := airport.NewCachedResolver(
		airport.NewHTTPResolver(cfg.AirportAPIURL, cfg.AirportAPIToken),
		airport.CacheConfig{
			TTL:               cfg.AirportCacheTTL,
			RequestsPerSecond: cfg.AirportRPS,
			BurstSize:         cfg.AirportBurst,
		},
		reg,
	)

	var maps maprender.Renderer = maprender.Noop{}
	if cfg.MapStaticURL != "" {
		maps = maprender.NewStaticMap(cfg.MapStaticURL)
	}

	pdfCfg := pdfrender.DefaultConfig()
	pdfCfg.CacheSize = cfg.PDFCacheSize
	pdfCfg.CacheTTL = cfg.PDFCacheTTL
	pdf := pdfrender.New(pdfCfg, reg, logger)
	defer pdf.Close()

	quotes := store.NewQuotes(database)

	sessions := session.NewManager(session.Deps{
		Catalog:  cat,
		Resolver: resolver,
		Maps:     maps,
		Store:    persistence,
		Quotes:   quotes,
		Metrics:  reg,
		Log:      logger,
	}, cfg.SessionTTL)
	defer sessions.Close()

	srv := &server{
		db:             database,
		catalog:        cat,
		sessions:       sessions,
		resolver:       resolver,
		quotes:         quotes,
		pdf:            pdf,
		metrics:        reg,
		log:            logger,
		upSince:        time.Now(),
		allowedOrigins: cfg.CORSOrigins,
	}

	uploader, err := objectstore.New(ctx, objectstore.Config{
		Bucket:          cfg.S3Bucket,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicURL:       cfg.S3PublicURL,
		Prefix:          "proposals",
	})
	switch {
	case err == nil:
		srv.uploader = uploader
	case errors.Is(err, objectstore.ErrNotConfigured):
		logger.Info("object storage not configured; PDF uploads disabled")
	default:
		logger.Warnw("object storage unavailable; PDF uploads disabled", "error", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Infow("listening", "addr", httpServer.Addr, "persistence", cfg.Persistence)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}

// openPersistence picks the draft and snapshot store. A Redis that cannot be
// reached falls back to SQLite.
func openPersistence(cfg config.Config, database *sql.DB, logger *zap.SugaredLogger) (store.Persistence, func()) {
	switch cfg.Persistence {
	case "memory":
		return store.NewMemory(), func() {}
	case "redis":
		r, err := store.NewRedis(store.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "charterquote:",
			TTL:      cfg.SessionTTL,
		})
		if err == nil {
			return r, func() { _ = r.Close() }
		}
		logger.Warnw("redis unavailable; using sqlite persistence", "error", err)
	}
	return store.NewSQLite(database), func() {}
}
