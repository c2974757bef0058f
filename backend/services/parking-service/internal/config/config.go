package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkmeter/backend/libs/config"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config defines parking service configuration.
type Config struct {
	Version     string            `yaml:"version" env:"PARKING_VERSION"`
	HTTP        HTTPConfig        `yaml:"http"`
	Storage     StorageConfig     `yaml:"storage"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	JWT         JWTConfig         `yaml:"jwt"`
	Obligations ObligationsConfig `yaml:"obligations"`
	Notify      NotifyConfig      `yaml:"notify"`
}

type HTTPConfig struct {
	Port            string        `yaml:"port" env:"PARKING_HTTP_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"PARKING_SHUTDOWN_TIMEOUT"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"PARKING_STORAGE_DRIVER"`
}

type DatabaseConfig struct {
	DSN          string        `yaml:"dsn" env:"PARKING_POSTGRES_DSN"`
	MaxOpenConns int           `yaml:"maxOpenConns" env:"PARKING_POSTGRES_MAX_OPEN"`
	MaxIdleConns int           `yaml:"maxIdleConns" env:"PARKING_POSTGRES_MAX_IDLE"`
	ConnLifetime time.Duration `yaml:"connLifetime" env:"PARKING_POSTGRES_CONN_LIFETIME"`
	AutoMigrate  bool          `yaml:"autoMigrate" env:"PARKING_AUTO_MIGRATE"`
}

// RedisConfig is optional; an empty Addr disables the alert guard.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"PARKING_REDIS_ADDR"`
	Password string        `yaml:"password" env:"PARKING_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"PARKING_REDIS_DB"`
	AlertTTL time.Duration `yaml:"alertTTL" env:"PARKING_REDIS_ALERT_TTL"`
}

type JWTConfig struct {
	Secret           string `yaml:"secret" env:"PARKING_JWT_SECRET"`
	ExpiresInMinutes int    `yaml:"expiresInMinutes" env:"PARKING_JWT_EXPIRES_MINUTES"`
}

type ObligationsConfig struct {
	GraceSeconds int `yaml:"graceSeconds" env:"PARKING_OBLIGATION_GRACE_SECONDS"`
}

// NotifyConfig selects sinks. Each sink is enabled by its own setting.
type NotifyConfig struct {
	Timeout    time.Duration `yaml:"timeout" env:"PARKING_NOTIFY_TIMEOUT"`
	WebhookURL string        `yaml:"webhookURL" env:"PARKING_WEBHOOK_URL"`
	AvatarURL  string        `yaml:"avatarURL" env:"PARKING_WEBHOOK_AVATAR_URL"`
	AMQPURL    string        `yaml:"amqpURL" env:"PARKING_AMQP_URL"`
	AMQPQueue  string        `yaml:"amqpQueue" env:"PARKING_AMQP_QUEUE"`
	Websocket  bool          `yaml:"websocket" env:"PARKING_WS_ENABLED"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		Version:     "dev",
		HTTP:        HTTPConfig{Port: "8090", ShutdownTimeout: 10 * time.Second},
		Storage:     StorageConfig{Driver: DriverPostgres},
		Redis:       RedisConfig{AlertTTL: 24 * time.Hour},
		JWT:         JWTConfig{ExpiresInMinutes: 60},
		Obligations: ObligationsConfig{GraceSeconds: 900},
		Notify:      NotifyConfig{Timeout: 5 * time.Second, Websocket: true},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("config: database dsn required")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret is required")
	}
	if c.Obligations.GraceSeconds <= 0 {
		return errors.New("config: obligation grace must be positive")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// GracePeriod is the delay before obligation checks run.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Obligations.GraceSeconds) * time.Second
}

// JWTExpiration converts configured expiry to duration.
func (c *Config) JWTExpiration() time.Duration {
	if c.JWT.ExpiresInMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}
