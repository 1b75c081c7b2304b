package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends.
const (
	SessionFile     = "file"
	SessionMemory   = "memory"
	SessionPostgres = "postgres"
)

const (
	DefaultPort           = "8080"
	DefaultAPIURL         = "http://localhost:5000/api"
	DefaultAPITimeout     = 30 * time.Second
	DefaultMigrationsPath = "migrations"
)

// APIConfig describes the remote task service.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig selects where the session token and identity live.
type SessionConfig struct {
	Backend  string
	FilePath string // file backend only; empty means ~/.taskboard/session.json
}

// DatabaseConfig holds PostgreSQL connection configuration for the
// postgres session backend.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
}

type Config struct {
	Port           string
	Environment    string
	API            APIConfig
	Session        SessionConfig
	Database       DatabaseConfig
	MigrationsPath string
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory. Values already set in the
// environment win over .env. It fails fast with clear errors for missing
// required values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	var missing []string

	port := getEnv("PORT", DefaultPort)

	env := getEnv("ENV", "development")
	if env != "development" && env != "staging" && env != "production" {
		return nil, fmt.Errorf("invalid ENV value %q: must be development, staging, or production", env)
	}

	apiURL := strings.TrimRight(getEnv("TASKBOARD_API_URL", DefaultAPIURL), "/")
	if err := validateAPIURL(apiURL); err != nil {
		return nil, fmt.Errorf("invalid TASKBOARD_API_URL: %w", err)
	}

	timeout := DefaultAPITimeout
	if raw := os.Getenv("TASKBOARD_API_TIMEOUT"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("invalid TASKBOARD_API_TIMEOUT %q: must be a non-negative number of seconds", raw)
		}
		timeout = time.Duration(secs) * time.Second
	}

	backend := getEnv("SESSION_STORE", SessionFile)
	switch backend {
	case SessionFile, SessionMemory, SessionPostgres:
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE value %q: must be file, memory, or postgres", backend)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if backend == SessionPostgres && databaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if databaseURL != "" {
		if err := validateDatabaseURL(databaseURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
	}

	return &Config{
		Port:        port,
		Environment: env,
		API: APIConfig{
			BaseURL: apiURL,
			Timeout: timeout,
		},
		Session: SessionConfig{
			Backend:  backend,
			FilePath: os.Getenv("SESSION_FILE"),
		},
		Database: DatabaseConfig{
			URL:             databaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		},
		MigrationsPath: getEnv("MIGRATIONS_PATH", DefaultMigrationsPath),
	}, nil
}

// validateAPIURL requires an absolute http(s) URL.
func validateAPIURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

// validateDatabaseURL ensures the database URL is a valid PostgreSQL connection string.
func validateDatabaseURL(dbURL string) error {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return fmt.Errorf("URL must use postgres or postgresql scheme, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}
