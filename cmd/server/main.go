package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/server"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.NewGormStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	var limiter auth.Limiter = auth.NewMemoryLimiter(cfg.SignInMaxAttempts, cfg.SignInWindow)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the limiter fails open, so a missing redis only costs rate limiting
			logger.Warn(ctx, "redis unreachable at startup", "err", err)
		}
		limiter = auth.NewRedisLimiter(rdb, cfg.SignInMaxAttempts, cfg.SignInWindow)
	}

	var storage utils.Storage
	if cfg.R2Enabled() {
		storage = utils.NewR2Storage(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Endpoint, cfg.R2BucketName)
	} else {
		storage = utils.NewFileStorage(cfg.UploadDir, cfg.UploadBaseURL)
	}

	go func() {
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := db.DeleteExpiredTokens(ctx); err != nil {
					logger.Warn(ctx, "expired token cleanup failed", "err", err)
				}
			}
		}
	}()

	srv := server.NewServer(cfg, db, logger, limiter, storage).NewHTTPServer()
	go func() {
		logger.Info(ctx, "listening", "addr", cfg.BindAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown", "err", err)
	}
}
