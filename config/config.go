package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port             int      `yaml:"port"`
	TrustedIPHeaders []string `yaml:"trusted_ip_headers"`
	RateLimitPerSec  float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst   int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds  int      `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// MonitorConfig holds the heartbeat and status-derivation configuration.
type MonitorConfig struct {
	OfflineTimeoutSeconds int           `yaml:"offline_timeout_seconds"`
	OfflineTimeout        time.Duration `yaml:"-"` // Ignored by YAML parser
	RetentionDays         int           `yaml:"retention_days"`
	PruneIntervalMinutes  int           `yaml:"prune_interval_minutes"`
	PruneInterval         time.Duration `yaml:"-"`
	DisplayTimezone       string        `yaml:"display_timezone"`
}

// AuthConfig holds JWT signing and bootstrap-admin configuration.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}
	if len(cfg.Server.TrustedIPHeaders) == 0 {
		cfg.Server.TrustedIPHeaders = []string{"X-Forwarded-For", "X-Real-IP"}
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}

	if cfg.Monitor.OfflineTimeoutSeconds <= 0 {
		cfg.Monitor.OfflineTimeoutSeconds = 300
	}
	cfg.Monitor.OfflineTimeout = time.Duration(cfg.Monitor.OfflineTimeoutSeconds) * time.Second

	if cfg.Monitor.RetentionDays <= 0 {
		cfg.Monitor.RetentionDays = 30
	}
	if cfg.Monitor.PruneIntervalMinutes <= 0 {
		cfg.Monitor.PruneIntervalMinutes = 60
	}
	cfg.Monitor.PruneInterval = time.Duration(cfg.Monitor.PruneIntervalMinutes) * time.Minute

	if cfg.Monitor.DisplayTimezone == "" {
		cfg.Monitor.DisplayTimezone = "Asia/Shanghai"
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
