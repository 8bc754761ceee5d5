package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DatabasePath string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Cache settings
	CacheSize int
	CacheTTL  time.Duration

	// Portal settings
	PortalURL string
	CourtName string

	// Browser settings
	HeadlessMode bool
	UserAgent    string
	BrowserPath  string

	// Wizard timing
	StepTimeout      time.Duration
	ProbeTimeout     time.Duration
	RowRetryAttempts uint
	RowRetryDelay    time.Duration

	// Session lifecycle
	MaxConcurrentScrapes int
	SessionIdleTimeout   time.Duration
	SessionReapInterval  time.Duration

	// Artifact settings
	ArtifactDir       string
	StaticURLPrefix   string
	DownloadTimeout   time.Duration
	DownloadRateLimit int

	// API settings
	APIRateLimit  int
	APIRateWindow time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not an error if .env doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnv("PORT", "8080"),
		DatabasePath:    getEnv("DATABASE_PATH", "./data/court_cases.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		PortalURL:       getEnv("PORTAL_URL", "https://hcservices.ecourts.gov.in/hcservices/main.php"),
		CourtName:       getEnv("COURT_NAME", "High Courts of India"),
		UserAgent:       getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		BrowserPath:     getEnv("ROD_BROWSER_PATH", ""),
		ArtifactDir:     getEnv("ARTIFACT_DIR", "./data/static/highcourt"),
		StaticURLPrefix: getEnv("STATIC_URL_PREFIX", "/static/highcourt"),
	}

	if _, err := url.Parse(cfg.PortalURL); err != nil {
		return nil, fmt.Errorf("invalid PORTAL_URL: %w", err)
	}

	var err error
	cfg.CacheSize, err = strconv.Atoi(getEnv("CACHE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SIZE: %w", err)
	}

	if cfg.CacheTTL, err = getDuration("CACHE_TTL", "30", time.Minute); err != nil {
		return nil, err
	}

	cfg.HeadlessMode = getEnv("HEADLESS_MODE", "true") == "true"

	if cfg.StepTimeout, err = getDuration("STEP_TIMEOUT", "10", time.Second); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = getDuration("PROBE_TIMEOUT", "1000", time.Millisecond); err != nil {
		return nil, err
	}

	attempts, err := strconv.ParseUint(getEnv("ROW_RETRY_ATTEMPTS", "3"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid ROW_RETRY_ATTEMPTS: %w", err)
	}
	cfg.RowRetryAttempts = uint(attempts)

	if cfg.RowRetryDelay, err = getDuration("ROW_RETRY_DELAY", "1000", time.Millisecond); err != nil {
		return nil, err
	}

	cfg.MaxConcurrentScrapes, err = strconv.Atoi(getEnv("MAX_CONCURRENT_SCRAPES", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_SCRAPES: %w", err)
	}

	if cfg.SessionIdleTimeout, err = getDuration("SESSION_IDLE_TIMEOUT", "15", time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionReapInterval, err = getDuration("SESSION_REAP_INTERVAL", "60", time.Second); err != nil {
		return nil, err
	}
	if cfg.DownloadTimeout, err = getDuration("DOWNLOAD_TIMEOUT", "60", time.Second); err != nil {
		return nil, err
	}

	cfg.DownloadRateLimit, err = strconv.Atoi(getEnv("DOWNLOAD_RATE_LIMIT", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid DOWNLOAD_RATE_LIMIT: %w", err)
	}

	cfg.APIRateLimit, err = strconv.Atoi(getEnv("API_RATE_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT: %w", err)
	}

	if cfg.APIRateWindow, err = getDuration("API_RATE_WINDOW", "60", time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PortalBaseURL is the directory of the portal entry page; relative links on
// result pages resolve against it.
func (c *Config) PortalBaseURL() string {
	u, err := url.Parse(c.PortalURL)
	if err != nil {
		return c.PortalURL
	}
	return u.ResolveReference(&url.URL{Path: "./"}).String()
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads an integer env var and scales it by unit
func getDuration(key, defaultValue string, unit time.Duration) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * unit, nil
}
