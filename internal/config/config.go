package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Worker   WorkerConfig
	Redis    RedisConfig
	Session  SessionConfig
	Notify   NotifyConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	PublicURL     string
	LoginPath     string
	RateLimit     int
	AllowedOrigin string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type WorkerConfig struct {
	Concurrency int
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
	// Channel prefix for the cross-instance event bridge. Empty disables the bridge.
	EventChannel string
}

// SessionConfig drives the per-session profile resolver and the dashboard registry.
type SessionConfig struct {
	ProfileTimeout time.Duration
	// WriteBack persists synthesized profiles. Failures are logged and ignored.
	WriteBack bool
	// SettleTimeout is how long a request waits for a session's first profile
	// fetch before the guard answers "loading".
	SettleTimeout time.Duration
	IdleTimeout   time.Duration
	SweepSpec     string
	SignInLimit   int
	SignInWindow  time.Duration
}

type NotifyConfig struct {
	Capacity        int
	StreamBuffer    int
	Heartbeat       time.Duration
	EscalateToQueue bool
}

// SeedConfig is the first admin account created on an empty database.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "localhost"),
			Port:          getEnvAsInt("SERVER_PORT", 8080),
			PublicURL:     getEnv("PUBLIC_URL", "http://localhost:8080"),
			LoginPath:     getEnv("LOGIN_PATH", "/login"),
			RateLimit:     getEnvAsInt("RATE_LIMIT_RPS", 20),
			AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Name:     getEnv("POSTGRES_DB", "visitordesk"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key"),
			AccessTTL:  getEnvAsDuration("JWT_ACCESS_TTL", time.Hour),
			RefreshTTL: getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 5),
		},
		Redis: RedisConfig{
			Addr:         fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Username:     getEnv("REDIS_USERNAME", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			EventChannel: getEnv("REDIS_EVENT_CHANNEL", "visitordesk:events"),
		},
		Session: SessionConfig{
			ProfileTimeout: getEnvAsDuration("PROFILE_FETCH_TIMEOUT", 10*time.Second),
			WriteBack:      getEnvAsBool("PROFILE_WRITE_BACK", false),
			SettleTimeout:  getEnvAsDuration("SESSION_SETTLE_TIMEOUT", 2*time.Second),
			IdleTimeout:    getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SweepSpec:      getEnv("SESSION_SWEEP_CRON", "*/5 * * * *"),
			SignInLimit:    getEnvAsInt("SIGNIN_LIMIT", 10),
			SignInWindow:   getEnvAsDuration("SIGNIN_WINDOW", time.Minute),
		},
		Notify: NotifyConfig{
			Capacity:        getEnvAsInt("NOTIFICATION_CAPACITY", 100),
			StreamBuffer:    getEnvAsInt("NOTIFICATION_STREAM_BUFFER", 16),
			Heartbeat:       getEnvAsDuration("NOTIFICATION_HEARTBEAT", 25*time.Second),
			EscalateToQueue: getEnvAsBool("NOTIFICATION_ESCALATE", true),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Session.ProfileTimeout <= 0 {
		errs = append(errs, errors.New("PROFILE_FETCH_TIMEOUT must be positive"))
	}
	if c.Notify.Capacity <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_CAPACITY must be positive"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.Session.SweepSpec != "" {
		if _, err := cron.ParseStandard(c.Session.SweepSpec); err != nil {
			errs = append(errs, fmt.Errorf("SESSION_SWEEP_CRON: %w", err))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("10s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
