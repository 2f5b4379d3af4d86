package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	Mode            string `yaml:"mode"` // debug, release, test
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig backs both the response cache and the event queue.
type RedisConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	DialTimeoutMS  int    `yaml:"dial_timeout_ms"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
}

func (r RedisConfig) DialTimeout() time.Duration {
	return time.Duration(r.DialTimeoutMS) * time.Millisecond
}

func (r RedisConfig) ReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeoutMS) * time.Millisecond
}

func (r RedisConfig) WriteTimeout() time.Duration {
	return time.Duration(r.WriteTimeoutMS) * time.Millisecond
}

type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type EventsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Queue       string `yaml:"queue"`
	Concurrency int    `yaml:"concurrency"`
}

type LogConfig struct {
	Level         string `yaml:"level"`
	RetentionDays int    `yaml:"retention_days"`
	CleanupCron   string `yaml:"cleanup_cron"`
}

// AdminConfig seeds the first administrator. Admins cannot sign up.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Load reads configPath (config.yaml when empty), falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}
	cfg.applyFloors()
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			Mode:            "debug",
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "keeping-track-of-it.db",
		},
		JWT: JWTConfig{
			Secret:     "keeping-track-of-it-secret-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Enabled:        false,
			Addr:           "localhost:6379",
			DialTimeoutMS:  2000,
			ReadTimeoutMS:  1000,
			WriteTimeoutMS: 1000,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 60,
		},
		Events: EventsConfig{
			Enabled:     true,
			Queue:       "events",
			Concurrency: 5,
		},
		Log: LogConfig{
			Level:         "info",
			RetentionDays: 30,
			CleanupCron:   "0 3 * * *",
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
	}
}

func (c *Config) overrideFromEnv() error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if v := os.Getenv("JWT_EXPIRE_HOUR"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JWT_EXPIRE_HOUR: %w", err)
		}
		c.JWT.ExpireHour = hours
	}
	// Format: redis://:password@host:port/db
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		if err := c.applyRedisURL(redisURL); err != nil {
			return err
		}
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL_SECONDS: %w", err)
		}
		c.Cache.TTLSeconds = ttl
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = strings.ToLower(level)
	}
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		c.Admin.Email = email
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		c.Admin.Password = password
	}
	return nil
}

func (c *Config) applyRedisURL(redisURL string) error {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("REDIS_URL: %w", err)
	}
	c.Redis.Enabled = true
	c.Redis.Addr = opt.Addr
	c.Redis.Password = opt.Password
	c.Redis.DB = opt.DB
	return nil
}

func (c *Config) applyFloors() {
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 60
	}
	if c.JWT.ExpireHour <= 0 {
		c.JWT.ExpireHour = 24
	}
	if c.Events.Queue == "" {
		c.Events.Queue = "events"
	}
	if c.Events.Concurrency <= 0 {
		c.Events.Concurrency = 5
	}
}
