package db

import (
	"context"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogprojesi/backend/internal/models"
)

type Config struct {
	DatabaseURL     string
	PoolSize        int
	PoolRecycle     time.Duration
	PoolPrePing     bool
	ConnectTimeout  time.Duration
	ApplicationName string
	// LogLevel defaults to logger.Warn.
	LogLevel logger.LogLevel
}

// IsSQLite reports whether url selects the sqlite driver
// (sqlite://path, file:..., or a bare *.db path).
func IsSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite://") ||
		strings.HasPrefix(url, "file:") ||
		strings.HasSuffix(url, ".db")
}

func Open(cfg Config) (*gorm.DB, error) {
	level := cfg.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	// Slow threshold of 1s keeps AutoMigrate introspection out of the log
	customLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormCfg := &gorm.Config{
		Logger:         customLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	if IsSQLite(cfg.DatabaseURL) {
		return openSQLite(cfg, gormCfg)
	}
	gormCfg.PrepareStmt = true
	return openPostgres(cfg, gormCfg)
}

func openSQLite(cfg Config, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn := strings.TrimPrefix(cfg.DatabaseURL, "sqlite://")
	if !strings.Contains(dsn, "_pragma") && !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY under load
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func openPostgres(cfg Config, gormCfg *gorm.Config) (*gorm.DB, error) {
	databaseURL := cfg.DatabaseURL
	if databaseURL != "" {
		params := []string{}

		// Store timestamps in UTC
		if !containsParam(databaseURL, "timezone") {
			params = append(params, "timezone=UTC")
		}
		if !containsParam(databaseURL, "connect_timeout") {
			params = append(params, "connect_timeout=10")
		}
		if cfg.ApplicationName != "" && !containsParam(databaseURL, "application_name") {
			params = append(params, "application_name="+cfg.ApplicationName)
		}
		if !containsParam(databaseURL, "sslmode") {
			params = append(params, "sslmode=disable")
		}
		// Startup parameters apply to every pooled session, bounding each
		// login and audit query server side
		if !containsParam(databaseURL, "statement_timeout") {
			params = append(params, "statement_timeout=30000")
		}
		if !containsParam(databaseURL, "lock_timeout") {
			params = append(params, "lock_timeout=10000")
		}

		if len(params) > 0 {
			separator := "?"
			if strings.Contains(databaseURL, "?") {
				separator = "&"
			}
			databaseURL = databaseURL + separator + strings.Join(params, "&")
		}
	}

	db, err := gorm.Open(postgres.Open(databaseURL), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.PoolSize)
	// Half the pool stays idle for reuse, minimum 2
	idleConns := cfg.PoolSize / 2
	if idleConns < 2 {
		idleConns = 2
	}
	sqlDB.SetMaxIdleConns(idleConns)
	sqlDB.SetConnMaxLifetime(cfg.PoolRecycle)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Printf("db ping error: %v", err)
	}

	return db, nil
}

// Migrate creates or updates every table the application owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.LoginAttempt{},
		&models.AdminLog{},
		&models.SystemSetting{},
		&models.Rating{},
		&models.Bookmark{},
	)
}

func containsParam(url string, param string) bool {
	if param == "" {
		return strings.Contains(url, "?") || strings.Contains(url, "&")
	}
	return strings.Contains(url, param+"=")
}
