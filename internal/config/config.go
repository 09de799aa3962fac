package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/intermernet/scoreboard/internal/log"
)

// Config holds all configuration for the application. Values come from the
// environment; a .env file is loaded by the binary before New is called.
type Config struct {
	// --- Server & Paths ---
	ServerAddr  string
	DataPath    string
	DbPath      string // directory holding the database file
	DbFile      string // full path of the SQLite database
	BackupPath  string
	StaticPath  string
	FrontendURL string

	// --- Security ---
	JwtSecret    string
	SessionTTL   time.Duration
	CookieSecure bool

	// --- Logging ---
	LogLevel log.Level
	LogJSON  bool

	// --- First-run seeding ---
	AdminUsername   string
	AdminPassword   string
	ClustersFile    string
	SeedSampleEvent bool

	// Parsed version of FrontendURL, nil when no frontend origin is configured.
	ParsedFrontendURL *url.URL
}

// New creates a Config from environment variables, applying defaults for
// non-critical values. Malformed values are reported as errors so the process
// fails fast. Secrets needed only by the HTTP server are checked separately by
// RequireServerSecrets.
func New() (*Config, error) {
	cfg := &Config{
		ServerAddr:    os.Getenv("SERVER_ADDR"),
		DataPath:      os.Getenv("DATA_PATH"),
		StaticPath:    os.Getenv("STATIC_PATH"),
		FrontendURL:   os.Getenv("FRONTEND_URL"),
		JwtSecret:     os.Getenv("JWT_SECRET"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		ClustersFile:  os.Getenv("CLUSTERS_FILE"),
	}

	// --- Defaults ---
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}
	if cfg.DataPath == "" {
		cfg.DataPath = "./data"
	}
	if cfg.StaticPath == "" {
		cfg.StaticPath = "./static"
	}
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
	}

	var err error
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("SESSION_TTL must be positive")
	}
	if cfg.CookieSecure, err = boolEnv("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = boolEnv("LOG_JSON", false); err != nil {
		return nil, err
	}
	if cfg.SeedSampleEvent, err = boolEnv("SEED_SAMPLE_EVENT", true); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = log.ParseLevel(os.Getenv("LOG_LEVEL")); err != nil {
		return nil, err
	}

	if cfg.FrontendURL != "" {
		parsedURL, err := url.Parse(cfg.FrontendURL)
		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			return nil, fmt.Errorf("invalid FRONTEND_URL %q", cfg.FrontendURL)
		}
		cfg.ParsedFrontendURL = parsedURL
	}

	cfg.DbPath = filepath.Join(cfg.DataPath, "databases")
	cfg.DbFile = filepath.Join(cfg.DbPath, "scoreboard.db")
	cfg.BackupPath = filepath.Join(cfg.DataPath, "backups")

	return cfg, nil
}

// FrontendOrigin returns the scheme and host of FrontendURL as a CORS origin,
// or "" when no frontend is configured.
func (c *Config) FrontendOrigin() string {
	if c.ParsedFrontendURL == nil {
		return ""
	}
	return c.ParsedFrontendURL.Scheme + "://" + c.ParsedFrontendURL.Host
}

// RequireServerSecrets checks the values the HTTP server cannot run without.
func (c *Config) RequireServerSecrets() error {
	if c.JwtSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	if len(c.JwtSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
