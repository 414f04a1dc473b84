package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sdko-org/content-query/internal/config"
	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/database"
	"github.com/sdko-org/content-query/internal/handlers"
	httpserver "github.com/sdko-org/content-query/internal/http"
	"github.com/sdko-org/content-query/internal/optimizer"
	"github.com/sdko-org/content-query/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(logger, database.PostgresConfig{
		User:          cfg.PostgresUser,
		Password:      cfg.PostgresPassword,
		Host:          cfg.PostgresHost,
		Port:          cfg.PostgresPort,
		DBName:        cfg.PostgresDatabase,
		SSLMode:       cfg.PostgresSSLMode,
		MaxOpenConns:  cfg.PostgresMaxConns,
		MaxIdleConns:  cfg.PostgresMaxConns / 2,
		SlowThreshold: cfg.QueryWarnThreshold,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	var resolver content.URLResolver
	media, err := storage.NewS3Media(logger, cfg)
	if err != nil {
		logger.WithError(err).Warn("Media storage unavailable, serving raw storage keys")
	} else {
		resolver = media
	}

	store := database.NewStore(db, resolver)

	svc := optimizer.New(logger, store, optimizer.Options{
		BlogsTTL:        cfg.CacheTTLBlogs,
		ProgramsTTL:     cfg.CacheTTLPrograms,
		EmptyTTL:        cfg.CacheTTLEmpty,
		WarnThreshold:   cfg.QueryWarnThreshold,
		BufferSize:      cfg.MetricsBufferSize,
		CleanupInterval: cfg.CacheCleanupInterval,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
		Resolver:        resolver,
	})
	svc.Start(ctx)
	defer svc.Close()

	limiter := handlers.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	go limiter.Run(ctx)

	var accessLogDB *gorm.DB
	if cfg.AccessLogEnabled {
		accessLogDB = db
	}

	r := mux.NewRouter()
	r.Use(handlers.LoggingMiddleware(logger, accessLogDB))
	r.Use(limiter.Middleware)
	handlers.RegisterRoutes(r, handlers.NewContentHandler(logger, svc, store))

	if err := httpserver.Run(ctx, logger, httpserver.Options{
		Addr:    cfg.HTTPAddr,
		TLSAddr: cfg.TLSAddr,
	}, r); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
