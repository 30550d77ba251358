package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"guidance/api/internal/app"
	"guidance/api/internal/archive"
	"guidance/api/internal/cache"
	"guidance/api/internal/config"
	"guidance/api/internal/gitrepo"
	"guidance/api/internal/search"
	"guidance/api/internal/seed"
	"guidance/api/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create repos dir")
	}

	dataStore := store.NewPostgresStore(db)
	gitService := gitrepo.New(cfg.ReposDir)

	pgtitle := search.NewPgTitle(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgtitle)

	service := app.New(cfg, dataStore, gitService, searchService)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisCache, err := cache.NewRedisStore(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisCache.Close()
		service.UseCache(redisCache)
		log.Info().Msg("guideline cache enabled")
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archiveService, err := archive.New(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatal().Err(err).Msg("minio connection failed")
		}
		service.UseArchive(archiveService)
		log.Info().Str("bucket", cfg.MinioBucket).Msg("approval archive enabled")
	}

	guidelines, users, err := seed.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("fixture load failed")
	}
	if err := service.Bootstrap(ctx, guidelines, users); err != nil {
		log.Warn().Err(err).Msg("bootstrap error (will retry on next restart)")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("guidance API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
