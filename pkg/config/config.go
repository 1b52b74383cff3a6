package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers backing the schedule repository.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Lock drivers guarding scheduling runs.
const (
	LockDriverLocal = "local"
	LockDriverRedis = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Cache     CacheConfig
	Audit     AuditConfig
	Tracing   TracingConfig
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

// JWTConfig controls verification of bearer tokens issued by the identity provider.
type JWTConfig struct {
	Enabled bool
	Secret  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects the schedule repository backend.
type StorageConfig struct {
	Driver   string
	SeedData bool
}

// SchedulerConfig tunes the scheduling engine, its run lock and slot generation defaults.
type SchedulerConfig struct {
	MinProctors  int
	LockDriver   string
	LockKey      string
	LockTTL      time.Duration
	RunTimeout   time.Duration
	DayStart     time.Duration
	DayEnd       time.Duration
	SlotDuration time.Duration
}

// CacheConfig governs caching of conflict reports and stats.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// AuditConfig sizes the post-commit conflict audit queue.
type AuditConfig struct {
	Workers    int
	Retries    int
	BufferSize int
}

// TracingConfig toggles span export.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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

	cfg.JWT = JWTConfig{
		Enabled: v.GetBool("AUTH_ENABLED"),
		Secret:  v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		Driver:   strings.ToLower(v.GetString("STORAGE_DRIVER")),
		SeedData: v.GetBool("SEED_SAMPLE_DATA"),
	}

	cfg.Scheduler = SchedulerConfig{
		MinProctors:  v.GetInt("SCHEDULER_MIN_PROCTORS"),
		LockDriver:   strings.ToLower(v.GetString("SCHEDULER_LOCK_DRIVER")),
		LockKey:      v.GetString("SCHEDULER_LOCK_KEY"),
		LockTTL:      parseDuration(v.GetString("SCHEDULER_LOCK_TTL"), 2*time.Minute),
		RunTimeout:   parseDuration(v.GetString("SCHEDULER_RUN_TIMEOUT"), 30*time.Second),
		DayStart:     parseClock(v.GetString("SCHEDULER_DAY_START"), 8*time.Hour),
		DayEnd:       parseClock(v.GetString("SCHEDULER_DAY_END"), 18*time.Hour),
		SlotDuration: parseDuration(v.GetString("SCHEDULER_SLOT_DURATION"), 2*time.Hour),
	}
	if cfg.Scheduler.MinProctors < 1 {
		cfg.Scheduler.MinProctors = 1
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 5*time.Minute),
	}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		Retries:    v.GetInt("AUDIT_RETRIES"),
		BufferSize: v.GetInt("AUDIT_BUFFER_SIZE"),
	}

	cfg.Tracing = TracingConfig{
		Enabled:     v.GetBool("TRACING_ENABLED"),
		ServiceName: v.GetString("TRACING_SERVICE_NAME"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Scheduler.LockDriver {
	case LockDriverLocal, LockDriverRedis:
	default:
		return fmt.Errorf("unsupported SCHEDULER_LOCK_DRIVER %q", c.Scheduler.LockDriver)
	}
	if c.Scheduler.DayEnd <= c.Scheduler.DayStart {
		return fmt.Errorf("SCHEDULER_DAY_END must be after SCHEDULER_DAY_START")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "exam_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("SEED_SAMPLE_DATA", false)

	v.SetDefault("SCHEDULER_MIN_PROCTORS", 1)
	v.SetDefault("SCHEDULER_LOCK_DRIVER", LockDriverLocal)
	v.SetDefault("SCHEDULER_LOCK_KEY", "exam-scheduler:run-lock")
	v.SetDefault("SCHEDULER_LOCK_TTL", "2m")
	v.SetDefault("SCHEDULER_RUN_TIMEOUT", "30s")
	v.SetDefault("SCHEDULER_DAY_START", "08:00")
	v.SetDefault("SCHEDULER_DAY_END", "18:00")
	v.SetDefault("SCHEDULER_SLOT_DURATION", "2h")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_RETRIES", 3)
	v.SetDefault("AUDIT_BUFFER_SIZE", 32)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "exam-scheduler-api")
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

// parseClock turns an "HH:MM" wall-clock value into an offset from midnight.
func parseClock(raw string, fallback time.Duration) time.Duration {
	d, err := ParseClock(raw)
	if err != nil {
		return fallback
	}
	return d
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(raw string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
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
