package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the placeholder secret, accepted only in dev mode.
const DefaultJWTSecret = "change-this-jwt-secret-in-production"

type AppConfig struct {
	Port string

	DatabaseURL string

	// Empty disables the settings cache.
	RedisURL         string
	SettingsCacheTTL time.Duration

	AuditExportEnabled bool
	SFTPHost           string
	SFTPPort           int
	SFTPUser           string
	SFTPPass           string
	SFTPDir            string

	JWTSecret    string
	JWTExpiry    time.Duration
	CookieSecure bool

	// Development settings
	DevMode   bool
	LogFormat string
	LogLevel  string

	// Site time zone, used for "today" boundaries and the daily jobs.
	Timezone string

	RateLimitPerSecond int

	CleanupHour          int
	AttemptRetentionDays int

	// Bootstrap admin, created on startup when no admin exists.
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	PoolSize        int
	PoolRecycle     time.Duration
	PoolPrePing     bool
	ConnectTimeout  time.Duration
	ApplicationName string
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that file. Environment variables win over the file.
func Load() AppConfig {
	return LoadFrom(viper.New())
}

func LoadFrom(v *viper.Viper) AppConfig {
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("config file not loaded, using environment only", "path", path, "error", err)
		}
	}

	cfg := AppConfig{}
	cfg.Port = v.GetString("port")
	cfg.DatabaseURL = v.GetString("database_url")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultPgURL(v)
	}

	cfg.RedisURL = v.GetString("redis_url")
	cfg.SettingsCacheTTL = time.Duration(positive(v, "settings_cache_ttl_seconds", 60)) * time.Second

	cfg.AuditExportEnabled = v.GetBool("audit_export_enabled")
	cfg.SFTPHost = v.GetString("sftp_host")
	cfg.SFTPPort = positive(v, "sftp_port", 22)
	cfg.SFTPUser = v.GetString("sftp_user")
	cfg.SFTPPass = v.GetString("sftp_pass")
	cfg.SFTPDir = v.GetString("sftp_dir")

	cfg.JWTSecret = v.GetString("jwt_secret")
	cfg.JWTExpiry = time.Duration(positive(v, "jwt_expiry_hours", 24)) * time.Hour
	cfg.CookieSecure = v.GetBool("cookie_secure")

	cfg.DevMode = v.GetBool("dev_mode")
	cfg.LogFormat = strings.ToLower(v.GetString("log_format"))
	cfg.LogLevel = strings.ToLower(v.GetString("log_level"))
	cfg.Timezone = v.GetString("timezone")
	cfg.RateLimitPerSecond = positive(v, "rate_limit_per_second", 20)

	cfg.CleanupHour = v.GetInt("cleanup_hour")
	if cfg.CleanupHour < 0 || cfg.CleanupHour > 23 {
		slog.Warn("invalid CLEANUP_HOUR, falling back to 3", "value", cfg.CleanupHour)
		cfg.CleanupHour = 3
	}
	cfg.AttemptRetentionDays = positive(v, "attempt_retention_days", 7)

	cfg.AdminUsername = v.GetString("admin_username")
	cfg.AdminEmail = v.GetString("admin_email")
	cfg.AdminPassword = v.GetString("admin_password")

	cfg.PoolSize = positive(v, "db_pool_size", 25)
	cfg.PoolRecycle = time.Duration(positive(v, "db_pool_recycle_seconds", 300)) * time.Second
	cfg.PoolPrePing = v.GetBool("db_pool_preping")
	cfg.ConnectTimeout = time.Duration(positive(v, "db_connect_timeout_seconds", 10)) * time.Second
	cfg.ApplicationName = v.GetString("db_application_name")
	return cfg
}

// Validate rejects settings the server must not start with. Outside dev mode
// the session secret has to be set to something other than the placeholder,
// otherwise anyone could sign an admin session.
func (c AppConfig) Validate() error {
	if c.DevMode {
		return nil
	}
	if c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set when DEV_MODE is off")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5001")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("settings_cache_ttl_seconds", 60)
	v.SetDefault("audit_export_enabled", false)
	v.SetDefault("sftp_host", "")
	v.SetDefault("sftp_port", 22)
	v.SetDefault("sftp_user", "")
	v.SetDefault("sftp_pass", "")
	v.SetDefault("sftp_dir", "audit")
	v.SetDefault("jwt_secret", DefaultJWTSecret)
	v.SetDefault("jwt_expiry_hours", 24)
	v.SetDefault("cookie_secure", false)
	v.SetDefault("dev_mode", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("log_level", "info")
	v.SetDefault("timezone", "Europe/Istanbul")
	v.SetDefault("rate_limit_per_second", 20)
	v.SetDefault("cleanup_hour", 3)
	v.SetDefault("attempt_retention_days", 7)
	v.SetDefault("admin_username", "")
	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("db_pool_size", 25)
	v.SetDefault("db_pool_recycle_seconds", 300)
	v.SetDefault("db_pool_preping", true)
	v.SetDefault("db_connect_timeout_seconds", 10)
	v.SetDefault("db_application_name", "blog_backend")
	v.SetDefault("config_file", "")
	v.SetDefault("postgres_user", "blog")
	v.SetDefault("postgres_password", "blog")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_db", "blog")
}

// positive returns the key as an int, or def when it is unset, unparsable or <= 0.
func positive(v *viper.Viper, key string, def int) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	return def
}

func defaultPgURL(v *viper.Viper) string {
	user := v.GetString("postgres_user")
	pass := v.GetString("postgres_password")
	host := v.GetString("postgres_host")
	port := v.GetString("postgres_port")
	db := v.GetString("postgres_db")
	return "postgresql://" + user + ":" + pass + "@" + host + ":" + port + "/" + db
}
