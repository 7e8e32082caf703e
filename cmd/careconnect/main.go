// Package main is the CareConnect API server entry point.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/careconnect/backend/internal/app"
	"github.com/careconnect/backend/internal/app/httpapi"
	"github.com/careconnect/backend/internal/app/storage/postgres"
	"github.com/careconnect/backend/internal/assets"
	"github.com/careconnect/backend/internal/config"
	"github.com/careconnect/backend/internal/logging"
	"github.com/careconnect/backend/internal/platform/migrations"
	"github.com/careconnect/backend/internal/push"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New("careconnect", cfg.Logging.Level, cfg.Logging.Format)

	stores, cleanup, err := buildStores(cfg, log)
	if err != nil {
		log.Fatalf("storage setup failed: %v", err)
	}
	defer cleanup()

	assetStore, err := assets.NewDisk(assets.DiskConfig{
		Dir:          cfg.Uploads.Dir,
		PublicPrefix: cfg.Uploads.PublicPrefix,
		MaxBytes:     cfg.Uploads.MaxBytes,
	}, log)
	if err != nil {
		log.Fatalf("upload storage setup failed: %v", err)
	}

	deps := app.Deps{
		Assets:    assetStore,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		TokenTTL:  cfg.Auth.TokenTTL,
	}

	if cfg.Push.Configured() {
		notifier, err := push.New(push.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Contact:         cfg.Push.Contact,
		}, log)
		if err != nil {
			log.Fatalf("push setup failed: %v", err)
		}
		deps.Pusher = notifier
	} else {
		log.Warn("VAPID keys not configured; push notifications disabled")
	}

	application, err := app.New(stores, deps, log)
	if err != nil {
		log.Fatalf("application setup failed: %v", err)
	}

	router := httpapi.NewRouter(application, httpapi.Options{
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		Assets:         assetStore,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      rateLimitOptions(cfg),
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// buildStores opens Postgres when a database URL is configured and falls back
// to the in-memory store otherwise.
func buildStores(cfg *config.Config, log *logging.Logger) (app.Stores, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set; using in-memory storage")
		return app.Stores{}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return app.Stores{}, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrations.Apply(context.Background(), db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	stores := app.Stores{
		Users:         store,
		Medicines:     store,
		Prescriptions: store,
	}
	return stores, func() { db.Close() }, nil
}

func rateLimitOptions(cfg *config.Config) httpapi.RateLimitOptions {
	if !cfg.RateLimit.Enabled {
		return httpapi.RateLimitOptions{}
	}
	return httpapi.RateLimitOptions{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}
}
