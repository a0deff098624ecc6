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

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/cache"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/config"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/httpapi"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/logger"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/report"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/service"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store/memory"
	pgstore "github.com/Hadesalive/Remvin-Ent-sub000/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		Production: cfg.IsProduction(),
		File:       cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid report timezone: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		if err := bootstrapAdmin(ctx, pg, log); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.WithField("repository", "postgres").Info("repository ready")
	} else {
		repo = memory.NewSeeded(time.Now().In(loc), log)
		log.WithField("repository", "memory").Info("repository ready")
	}

	snapshotCache := cache.SnapshotCache(cache.NoopSnapshotCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSnapshotCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unavailable, using noop cache")
			_ = redisCache.Close()
		} else {
			snapshotCache = redisCache
			closers = append(closers, redisCache.Close)
			log.WithField("cache", "redis").Info("cache ready")
		}
	} else {
		log.WithField("cache", "noop").Info("cache ready")
	}

	aggregator := report.NewAggregator(report.Options{
		Location:          loc,
		TopN:              cfg.TopN,
		LowStockThreshold: cfg.LowStockThreshold,
	})
	svc := service.New(repo, aggregator, service.Options{
		Cache:       snapshotCache,
		SnapshotTTL: cfg.SnapshotTTL(),
		StoreID:     cfg.StoreID,
		Logger:      log,
	})
	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, httpapi.Options{AllowedOrigin: cfg.AllowedOrigin, Logger: log})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Address()).Info("report server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown error")
	}
	svc.Close()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("close error")
		}
	}

	log.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.IsProduction() && cfg.AllowedOrigin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name an origin in production")
	}
	return nil
}

type userCreator interface {
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
}

// bootstrapAdmin creates the first admin account from SEED_ADMIN_PASSWORD
// when the user table is empty.
func bootstrapAdmin(ctx context.Context, users userCreator, log logrus.FieldLogger) error {
	existing, err := users.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if len(password) < 8 {
		log.Warn("no report users exist and SEED_ADMIN_PASSWORD is unset or shorter than 8 characters; logins will fail")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := users.CreateUser(ctx, domain.UserAccount{
		Username: "admin",
		Password: string(hash),
		Role:     domain.RoleAdmin,
		Active:   true,
	}); err != nil {
		return err
	}
	log.WithField("username", "admin").Info("bootstrap admin created")
	return nil
}
