package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"armbian-monitor-backend/config"
	"armbian-monitor-backend/internal/api"
	"armbian-monitor-backend/internal/db"
	"armbian-monitor-backend/internal/ingest"
	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/model"
	"armbian-monitor-backend/internal/mw"
	"armbian-monitor-backend/internal/notification"
	"armbian-monitor-backend/internal/retention"
	"armbian-monitor-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logs.Init(logs.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logs.Logger.Infof("configuration loaded from %s", configPath)

	if cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == "change-me" {
		logs.Logger.Warn("auth.jwt_secret is unset or default; set a real secret in production")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	if err := bootstrapAdmin(gormDB, cfg); err != nil {
		log.Fatalf("failed to bootstrap admin user: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logs.Logger.Info("data store initialized")

	// Web push is optional; without VAPID keys ingestion just skips
	// notification dispatch.
	var webpushOptions *webpush.Options
	var pool *notification.WorkerPool
	if cfg.Push.Enabled && cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
	}

	ingestSvc := ingest.NewService(appStore, cfg.Monitor.OfflineTimeout, pool)

	pruner := retention.NewPruner(appStore, cfg.Monitor.RetentionDays, cfg.Monitor.PruneInterval)
	go pruner.Run(ctx)

	auth := mw.NewAuth(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	handler := api.NewHandler(api.Options{
		Store:          appStore,
		Ingest:         ingestSvc,
		Auth:           auth,
		Webpush:        webpushOptions,
		OfflineTimeout: cfg.Monitor.OfflineTimeout,
		TrustedHeaders: cfg.Server.TrustedIPHeaders,
	})

	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logs.Logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logs.Logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server Shutdown: %v", err)
	}

	logs.Logger.Info("server gracefully stopped")
}

// bootstrapAdmin creates the configured admin account when the user table is
// empty, so a fresh deployment can log in.
func bootstrapAdmin(gormDB *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := gormDB.Model(&model.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || cfg.Auth.AdminUser == "" || cfg.Auth.AdminPassword == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := model.User{
		Username:     cfg.Auth.AdminUser,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := gormDB.Create(&admin).Error; err != nil {
		return err
	}
	logs.Logger.Infof("bootstrap admin user %q created", cfg.Auth.AdminUser)
	return nil
}
