package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduling SchedulingConfig
	Recurring  RecurringConfig
	Cache      CacheConfig
	Export     ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig tunes the availability read path.
type SchedulingConfig struct {
	// Timezone is the IANA name of the organization's single fixed timezone.
	Timezone string
	// SlotLength is the fixed length of a bookable slot.
	SlotLength time.Duration
	// DisplayOffset is the gap between the time shown to the booking party
	// and the actual tutor-attended lesson start.
	DisplayOffset time.Duration
	// FanOutConcurrency bounds the number of per-tutor checks in flight.
	FanOutConcurrency int
	// CheckTimeout caps each per-tutor availability check.
	CheckTimeout time.Duration
}

// RecurringConfig tunes series materialization and the extension job.
type RecurringConfig struct {
	// Window is how far ahead recurring instances are materialized.
	Window time.Duration
	// ExtensionInterval is how often due groups are polled for extension.
	ExtensionInterval time.Duration
	Workers           int
	Retries           int
}

// CacheConfig governs availability response caching.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ExportConfig gates the schedule export endpoints.
type ExportConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduling = SchedulingConfig{
		Timezone:          v.GetString("SCHEDULING_TIMEZONE"),
		SlotLength:        parseDuration(v.GetString("SCHEDULING_SLOT_LENGTH"), 30*time.Minute),
		DisplayOffset:     parseDuration(v.GetString("SCHEDULING_DISPLAY_OFFSET"), 15*time.Minute),
		FanOutConcurrency: v.GetInt("SCHEDULING_FANOUT_CONCURRENCY"),
		CheckTimeout:      parseDuration(v.GetString("SCHEDULING_CHECK_TIMEOUT"), 3*time.Second),
	}
	if cfg.Scheduling.FanOutConcurrency <= 0 {
		cfg.Scheduling.FanOutConcurrency = 8
	}

	cfg.Recurring = RecurringConfig{
		Window:            parseDuration(v.GetString("RECURRING_WINDOW"), 90*24*time.Hour),
		ExtensionInterval: parseDuration(v.GetString("RECURRING_EXTENSION_INTERVAL"), time.Hour),
		Workers:           v.GetInt("RECURRING_WORKERS"),
		Retries:           v.GetInt("RECURRING_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_AVAILABILITY_CACHE"),
		TTL:     parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), time.Minute),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_SCHEDULE_EXPORT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutorlane_scheduling")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULING_TIMEZONE", "America/New_York")
	v.SetDefault("SCHEDULING_SLOT_LENGTH", "30m")
	v.SetDefault("SCHEDULING_DISPLAY_OFFSET", "15m")
	v.SetDefault("SCHEDULING_FANOUT_CONCURRENCY", 8)
	v.SetDefault("SCHEDULING_CHECK_TIMEOUT", "3s")

	v.SetDefault("RECURRING_WINDOW", "2160h")
	v.SetDefault("RECURRING_EXTENSION_INTERVAL", "1h")
	v.SetDefault("RECURRING_WORKERS", 1)
	v.SetDefault("RECURRING_RETRIES", 3)

	v.SetDefault("ENABLE_AVAILABILITY_CACHE", false)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "1m")

	v.SetDefault("ENABLE_SCHEDULE_EXPORT", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
