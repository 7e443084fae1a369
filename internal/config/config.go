package config

import (
	"fmt"
	"net"
	"time"
	_ "time/tzdata"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	RateLimit RateLimitConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	TenantPrefix    string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type SessionConfig struct {
	Secret string
}

type SchedulerConfig struct {
	Cron string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type BusinessConfig struct {
	Timezone string
	Location *time.Location
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type HealthConfig struct {
	Timeout time.Duration
}

// HS256 keys shorter than the hash output weaken every session token.
const minProductionSecret = 32

var defaults = map[string]interface{}{
	"SERVER_PORT":          "8080",
	"SERVER_HOST":          "0.0.0.0",
	"ENV":                  "development",
	"SERVER_READ_TIMEOUT":  "15s",
	"SERVER_WRITE_TIMEOUT": "15s",
	"DB_HOST":              "127.0.0.1",
	"DB_PORT":              "3306",
	"DB_NAME":              "jpcobrancas",
	"DB_USER":              "root",
	"DB_PASSWORD":          "",
	"TENANT_DB_PREFIX":     "jpcobrancas_",
	"DB_MAX_OPEN_CONNS":    10,
	"DB_MAX_IDLE_CONNS":    2,
	"DB_CONN_MAX_LIFETIME": "5m",
	"REDIS_HOST":           "127.0.0.1",
	"REDIS_PORT":           "6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"CACHE_TTL":            "10m",
	"SESSION_SECRET":       "",
	"SCHEDULER_CRON":       "0 5 0 * * *",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "",
	"BUSINESS_TIMEZONE":    "America/Sao_Paulo",
	"RATE_LIMIT_RPS":       10.0,
	"RATE_LIMIT_BURST":     20,
	"HEALTH_CHECK_TIMEOUT": "5s",
}

// Load reads configuration from environment variables, after loading an
// optional .env file into the environment.
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	config, err := fromViper(v)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	durations := map[string]*time.Duration{}
	config := &Config{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
			Host: v.GetString("SERVER_HOST"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			Name:         v.GetString("DB_NAME"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			TenantPrefix: v.GetString("TENANT_DB_PREFIX"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Session:   SessionConfig{Secret: v.GetString("SESSION_SECRET")},
		Scheduler: SchedulerConfig{Cron: v.GetString("SCHEDULER_CRON")},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Business: BusinessConfig{Timezone: v.GetString("BUSINESS_TIMEZONE")},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	durations["SERVER_READ_TIMEOUT"] = &config.Server.ReadTimeout
	durations["SERVER_WRITE_TIMEOUT"] = &config.Server.WriteTimeout
	durations["DB_CONN_MAX_LIFETIME"] = &config.Database.ConnMaxLifetime
	durations["CACHE_TTL"] = &config.Redis.CacheTTL
	durations["HEALTH_CHECK_TIMEOUT"] = &config.Health.Timeout

	for key, dst := range durations {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
		*dst = d
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Host == "" || c.Database.User == "" {
		return fmt.Errorf("DB_HOST and DB_USER are required")
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if c.IsProduction() && len(c.Session.Secret) < minProductionSecret {
		return fmt.Errorf("SESSION_SECRET must have at least %d bytes in production", minProductionSecret)
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be greater than 0")
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be greater than 0")
	}

	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		return fmt.Errorf("BUSINESS_TIMEZONE must be a valid IANA zone: %w", err)
	}
	c.Business.Location = loc

	// Without an explicit format, development logs are for humans.
	if c.Logging.Format == "" {
		if c.IsDevelopment() {
			c.Logging.Format = "text"
		} else {
			c.Logging.Format = "json"
		}
	}

	return nil
}

// DSN returns the MySQL data source name for the given database. An empty
// name connects without selecting a schema.
func (d DatabaseConfig) DSN(database string) string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, d.Port)
	cfg.DBName = database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}
