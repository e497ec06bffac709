package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // LAVA_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	JWT       JWTConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // LAVA_DATABASE_URL; overrides the discrete fields when set
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr disables live
// order events.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// AMQPConfig holds the broker used to hand ready notifications to an external
// delivery worker. An empty URL disables it.
type AMQPConfig struct {
	URL      string
	Exchange string
}

func (c AMQPConfig) Enabled() bool { return c.URL != "" }

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	WebDir       string // optional static dashboard served under /app
	APIDocs      bool   // serve /api/openapi.json and /api/docs
	Timezone     string // IANA name or "Local"; day boundaries for reports
}

// Location resolves Timezone.
func (c ServerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: LAVA_TIMEZONE=%q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RateLimitConfig holds token bucket settings for authenticated tenants and
// for the unauthenticated auth routes, which are limited per client IP.
type RateLimitConfig struct {
	TenantRPS   float64
	TenantBurst int
	AuthRPS     float64
	AuthBurst   int
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	db, err := LoadDatabase()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("LAVA_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("LAVA_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("LAVA_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("LAVA_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("LAVA_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tenantRPS, err := getEnvFloat("LAVA_RATE_LIMIT_RPS", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tenantBurst, err := getEnvInt("LAVA_RATE_LIMIT_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	authRPS, err := getEnvFloat("LAVA_AUTH_RATE_LIMIT_RPS", 1)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	authBurst, err := getEnvInt("LAVA_AUTH_RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	apiDocs, err := getEnvBool("LAVA_API_DOCS", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: *db,
		Redis: RedisConfig{
			Addr:     getEnv("LAVA_REDIS_ADDR", ""),
			Password: getEnv("LAVA_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		AMQP: AMQPConfig{
			URL:      getEnv("LAVA_AMQP_URL", ""),
			Exchange: getEnv("LAVA_AMQP_EXCHANGE", "notifications"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("LAVA_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("LAVA_SERVER_ADDR", ":3000"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("LAVA_CORS_ORIGINS", []string{"http://localhost:5173"}),
			WebDir:       getEnv("LAVA_WEB_DIR", ""),
			APIDocs:      apiDocs,
			Timezone:     getEnv("LAVA_TIMEZONE", "Local"),
		},
		RateLimit: RateLimitConfig{
			TenantRPS:   tenantRPS,
			TenantBurst: tenantBurst,
			AuthRPS:     authRPS,
			AuthBurst:   authBurst,
		},
		Log: LogConfig{
			Level:  getEnv("LAVA_LOG_LEVEL", "info"),
			Format: getEnv("LAVA_LOG_FORMAT", "json"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings. Commands that never serve
// HTTP (migrate, seed) use it so they do not need a JWT secret.
func LoadDatabase() (*DatabaseConfig, error) {
	dbPort, err := getEnvInt("LAVA_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDatabase: %w", err)
	}

	dbMaxConns, err := getEnvInt("LAVA_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDatabase: %w", err)
	}

	db := &DatabaseConfig{
		URL:      getEnv("LAVA_DATABASE_URL", ""),
		Host:     getEnv("LAVA_DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("LAVA_DB_USER", "lavanderia"),
		Password: getEnv("LAVA_DB_PASSWORD", ""),
		DBName:   getEnv("LAVA_DB_NAME", "lavanderia"),
		SSLMode:  getEnv("LAVA_DB_SSLMODE", "disable"),
		MaxConns: dbMaxConns,
	}

	if err := db.validate(); err != nil {
		return nil, fmt.Errorf("config.LoadDatabase: %w", err)
	}

	return db, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if err := c.Database.validate(); err != nil {
		return err
	}

	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("LAVA_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("LAVA_JWT_SECRET must be at least 32 characters")
	}

	// Bounds checks.
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("LAVA_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("LAVA_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("LAVA_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("LAVA_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("LAVA_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	if c.AMQP.Enabled() && c.AMQP.Exchange == "" {
		return errors.New("LAVA_AMQP_EXCHANGE must not be empty when LAVA_AMQP_URL is set")
	}
	if c.RateLimit.TenantRPS <= 0 || c.RateLimit.AuthRPS <= 0 {
		return errors.New("LAVA_RATE_LIMIT_RPS and LAVA_AUTH_RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimit.TenantBurst < 1 || c.RateLimit.AuthBurst < 1 {
		return errors.New("LAVA_RATE_LIMIT_BURST and LAVA_AUTH_RATE_LIMIT_BURST must be >= 1")
	}
	if _, err := c.Server.Location(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LAVA_LOG_LEVEL: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LAVA_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

func (c *DatabaseConfig) validate() error {
	if c.URL != "" {
		if _, err := url.Parse(c.URL); err != nil {
			return fmt.Errorf("LAVA_DATABASE_URL: %w", err)
		}
		return nil
	}

	if c.SSLMode == "disable" && !isLoopback(c.Host) {
		log.Warn().Msg("LAVA_DB_SSLMODE=disable is insecure for a remote database; set to 'require' or 'verify-full'")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("LAVA_DB_PORT must be 1-65535, got %d", c.Port)
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("LAVA_DB_MAX_CONNS must be >= 1, got %d", c.MaxConns)
	}
	return nil
}

// DSN returns the PostgreSQL connection string in URL form, which both pgx
// and golang-migrate accept.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
