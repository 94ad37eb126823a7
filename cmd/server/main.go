// @title Blog Projesi API
// @version 1.0
// @description Blog platform backend: accounts, posts and comments, the admin panel, login lockout and the admin audit trail
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:5001
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey AdminSession
// @in cookie
// @name ADMIN_SESSION

// @securityDefinitions.apikey BlogSession
// @in cookie
// @name BLOG_SESSION

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm/logger"

	_ "github.com/blogprojesi/backend/docs" // Import generated docs
	"github.com/blogprojesi/backend/internal/config"
	"github.com/blogprojesi/backend/internal/db"
	"github.com/blogprojesi/backend/internal/server"
	"github.com/blogprojesi/backend/internal/services"
	"github.com/blogprojesi/backend/internal/telemetry"
	"github.com/blogprojesi/backend/internal/utils"
)

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := config.Load()
	telemetry.SetupLogger(cfg.LogFormat, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	gormLevel := logger.Warn
	if cfg.DevMode {
		gormLevel = logger.Info
	}
	gormDB, err := db.Open(db.Config{
		DatabaseURL:     cfg.DatabaseURL,
		PoolSize:        cfg.PoolSize,
		PoolRecycle:     cfg.PoolRecycle,
		PoolPrePing:     cfg.PoolPrePing,
		ConnectTimeout:  cfg.ConnectTimeout,
		ApplicationName: cfg.ApplicationName,
		LogLevel:        gormLevel,
	})
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	loc := utils.LoadLocation(cfg.Timezone)
	deps := services.Deps{
		DB:               gormDB,
		Location:         loc,
		AttemptRetention: time.Duration(cfg.AttemptRetentionDays) * 24 * time.Hour,
	}
	var cache *services.RedisSettingsCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisSettingsCache(cfg.RedisURL, cfg.SettingsCacheTTL)
		if err != nil {
			log.Fatalf("settings cache error: %v", err)
		}
		defer cache.Close()
		deps.Cache = cache
		slog.Info("settings cache enabled", "ttl", cfg.SettingsCacheTTL)
	}

	svc := services.NewServices(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = services.Bootstrap(ctx, svc, services.BootstrapAdmin{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	var exporter *services.AuditExporter
	if cfg.AuditExportEnabled {
		uploader := services.NewSFTPUploader(services.SFTPConfig{
			Host:     cfg.SFTPHost,
			Port:     cfg.SFTPPort,
			User:     cfg.SFTPUser,
			Password: cfg.SFTPPass,
			Dir:      cfg.SFTPDir,
		})
		exporter = services.NewAuditExporter(svc.Audit, uploader, loc)
	}
	if err := services.RegisterTasks(svc, cfg.CleanupHour, exporter); err != nil {
		log.Fatalf("scheduler error: %v", err)
	}
	svc.Scheduler.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	srv := server.New(e, gormDB, cfg, svc)
	if cache != nil {
		srv.Cache = cache
	}

	go func() {
		slog.Info("http server starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	svc.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}
