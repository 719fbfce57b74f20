package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Database
	DBDriver   string // sqlite or postgres
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Admin
	AdminEmails string
	AdminToken  string

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string

	// Tracking
	Timezone      string
	StatsCacheTTL time.Duration

	// Redis (optional stats cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logs
	LogRetentionDays int
}

// Load reads configuration from the environment. A .env file in the working
// directory and the YAML file named by CONFIG_FILE provide fallbacks; real
// environment variables always win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Warn("ignoring config file", "path", os.Getenv("CONFIG_FILE"), "error", err)
	}
	return load(file)
}

func load(file map[string]string) *Config {
	get := func(key, fallback string) string {
		return getEnv(file, key, fallback)
	}

	return &Config{
		DBDriver:   get("DB_DRIVER", "sqlite"),
		DBPath:     get("DB_PATH", "onedaybetter.db"),
		DBHost:     get("DB_HOST", "localhost"),
		DBPort:     get("DB_PORT", "5432"),
		DBUser:     get("DB_USER", "postgres"),
		DBPassword: get("DB_PASSWORD", ""),
		DBName:     get("DB_NAME", "onedaybetter"),
		DBSSLMode:  get("DB_SSLMODE", "disable"),

		JWTSecret:        get("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(get("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(get("JWT_REFRESH_EXPIRY", "720h"), 720*time.Hour),

		AdminEmails: get("ADMIN_EMAILS", ""),
		AdminToken:  get("ADMIN_TOKEN", ""),

		Port:        get("PORT", "8080"),
		CORSOrigins: get("CORS_ORIGINS", "*"),
		AppEnv:      get("APP_ENV", "development"),
		SentryDSN:   get("SENTRY_DSN", ""),

		Timezone:      get("APP_TIMEZONE", "UTC"),
		StatsCacheTTL: parseDuration(get("STATS_CACHE_TTL", "10m"), 10*time.Minute),

		RedisAddr:     get("REDIS_ADDR", ""),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(get("REDIS_DB", "0"), 0),

		LogRetentionDays: parseInt(get("LOG_RETENTION_DAYS", "30"), 30),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// SQLiteDSN appends the pragmas the embedded store relies on unless the path
// already carries its own query string.
func (c *Config) SQLiteDSN() string {
	if strings.Contains(c.DBPath, "?") {
		return c.DBPath
	}
	return c.DBPath + "?_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL"
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("unknown APP_TIMEZONE, using UTC", "timezone", c.Timezone)
		return time.UTC
	}
	return loc
}

// readFile parses a flat YAML mapping. Keys are matched case-insensitively
// against environment variable names, e.g. "db_driver: postgres".
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

func getEnv(file map[string]string, key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := file[key]; ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
