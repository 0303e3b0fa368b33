package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port                  int              `json:"port" env:"HEMLINE_PORT"`
	JWTSecret             string           `json:"jwt_secret" env:"HEMLINE_JWT_SECRET"`
	AccessTokenTTLMinutes int              `json:"access_token_ttl_minutes"`
	RefreshTokenTTLDays   int              `json:"refresh_token_ttl_days"`
	CredentialTTLMinutes  int              `json:"credential_ttl_minutes"`
	LoginCooldownSeconds  int              `json:"login_cooldown_seconds"`
	DeletionGraceDays     int              `json:"deletion_grace_days"`
	ClientBaseURL         string           `json:"client_base_url" env:"HEMLINE_CLIENT_BASE_URL"`
	PublicBaseURL         string           `json:"public_base_url"`
	AdminKeyHash          string           `json:"admin_key_hash" env:"HEMLINE_ADMIN_KEY_HASH"`
	CORSOrigins           []string         `json:"cors_origins"`
	RateLimitWindowMs     int              `json:"rate_limit_window_ms"`
	UploadMaxBytes        int64            `json:"upload_max_bytes"`
	Database              DatabaseConfig   `json:"database"`
	Cookie                CookieConfig     `json:"cookie"`
	Mail                  MailConfig       `json:"mail"`
	Throttle              ThrottleConfig   `json:"throttle"`
	FileStore             FileStoreConfig  `json:"file_store"`
	Schedule              ScheduleConfig   `json:"schedule"`
	LogConfig             logger.LogConfig `json:"log_config"`
}

type DatabaseConfig struct {
	Driver       string `json:"driver"`
	DSN          string `json:"dsn" env:"HEMLINE_DATABASE_DSN"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Password     string `json:"password" env:"HEMLINE_DATABASE_PASSWORD"`
	DBName       string `json:"dbname"`
	SSLMode      string `json:"sslmode"`
	MaxOpenConns int    `json:"max_open_conns"`
}

type CookieConfig struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Insecure bool   `json:"insecure"`
	SameSite string `json:"same_site"`
}

type MailConfig struct {
	Provider string         `json:"provider"`
	From     string         `json:"from"`
	FromName string         `json:"from_name"`
	SMTP     SMTPConfig     `json:"smtp"`
	Postmark PostmarkConfig `json:"postmark"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password" env:"HEMLINE_SMTP_PASSWORD"`
}

type PostmarkConfig struct {
	ServerToken   string `json:"server_token" env:"HEMLINE_POSTMARK_TOKEN"`
	MessageStream string `json:"message_stream"`
}

type ThrottleConfig struct {
	Type  string      `json:"type"`
	Size  int         `json:"size"`
	Redis RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password" env:"HEMLINE_REDIS_PASSWORD"`
	DB       int    `json:"db"`
}

type FileStoreConfig struct {
	Type      string   `json:"type"`
	Dir       string   `json:"dir"`
	PublicURL string   `json:"public_url"`
	S3        S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key" env:"HEMLINE_S3_SECRET_KEY"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	PublicURL string `json:"public_url"`
	UseSSL    bool   `json:"use_ssl"`
}

type ScheduleConfig struct {
	Disabled    bool   `json:"disabled"`
	SweepSpec   string `json:"sweep_spec"`
	CleanupSpec string `json:"cleanup_spec"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.ClientBaseURL == "" {
		return fmt.Errorf("client_base_url is required")
	}
	if cfg.AccessTokenTTLMinutes == 0 {
		cfg.AccessTokenTTLMinutes = 15
	}
	if cfg.RefreshTokenTTLDays == 0 {
		cfg.RefreshTokenTTLDays = 30
	}
	if cfg.CredentialTTLMinutes == 0 {
		cfg.CredentialTTLMinutes = 15
	}
	if cfg.LoginCooldownSeconds == 0 {
		cfg.LoginCooldownSeconds = 60
	}
	if cfg.DeletionGraceDays == 0 {
		cfg.DeletionGraceDays = 7
	}
	if cfg.RateLimitWindowMs == 0 {
		cfg.RateLimitWindowMs = 500
	}
	if cfg.UploadMaxBytes == 0 {
		cfg.UploadMaxBytes = 5 * 1024 * 1024
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	switch cfg.Database.Driver {
	case "postgres", "pgx":
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case "sqlite":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres, pgx or sqlite")
	}

	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = "refresh_token"
	}
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/api/v1/auth"
	}
	switch strings.ToLower(cfg.Cookie.SameSite) {
	case "":
		cfg.Cookie.SameSite = "strict"
	case "strict", "lax", "none":
		cfg.Cookie.SameSite = strings.ToLower(cfg.Cookie.SameSite)
	default:
		return fmt.Errorf("cookie.same_site must be strict, lax or none")
	}

	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = "log"
	}
	switch cfg.Mail.Provider {
	case "log":
	case "smtp":
		if cfg.Mail.SMTP.Host == "" || cfg.Mail.SMTP.Port == 0 || cfg.Mail.From == "" {
			return fmt.Errorf("mail.smtp host/port and mail.from are required for smtp")
		}
	case "postmark":
		if cfg.Mail.Postmark.ServerToken == "" || cfg.Mail.From == "" {
			return fmt.Errorf("mail.postmark.server_token and mail.from are required for postmark")
		}
	default:
		return fmt.Errorf("mail.provider must be log, smtp or postmark")
	}

	if cfg.Throttle.Type == "" {
		cfg.Throttle.Type = "memory"
	}
	if cfg.Throttle.Size == 0 {
		cfg.Throttle.Size = 10000
	}
	switch cfg.Throttle.Type {
	case "memory":
	case "redis":
		if cfg.Throttle.Redis.Addr == "" {
			return fmt.Errorf("throttle.redis.addr is required for redis throttle")
		}
	default:
		return fmt.Errorf("throttle.type must be memory or redis")
	}

	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local":
		if cfg.FileStore.Dir == "" {
			return fmt.Errorf("file_store.dir is required for local store")
		}
	case "s3":
		if cfg.FileStore.S3.Endpoint == "" || cfg.FileStore.S3.Bucket == "" || cfg.FileStore.S3.SecretID == "" || cfg.FileStore.S3.SecretKey == "" {
			return fmt.Errorf("file_store.s3 endpoint/bucket/secret_id/secret_key are required for s3 store")
		}
		if cfg.FileStore.S3.Region == "" {
			cfg.FileStore.S3.Region = "us-east-1"
		}
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}

	if cfg.Schedule.SweepSpec == "" {
		cfg.Schedule.SweepSpec = "0 3 * * *"
	}
	if cfg.Schedule.CleanupSpec == "" {
		cfg.Schedule.CleanupSpec = "*/30 * * * *"
	}
	return nil
}
