package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/scraper"
)

type Config struct {
	Browser  BrowserConfig
	Scraper  ScraperConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type BrowserConfig struct {
	Driver         string
	Headless       bool
	Stealth        bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type ScraperConfig struct {
	HomeURL         string
	SearchURL       string
	WarmupDelay     time.Duration
	MaxPages        int
	OutputDir       string
	ProductDelayMin time.Duration
	ProductDelayMax time.Duration
}

type DatabaseConfig struct {
	Enabled     bool
	URL         string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	MaxConnLife time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ServerConfig struct {
	// Addr enables the status server when non-empty.
	Addr            string
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. Values from a .env file
// in the working directory are applied first without overriding variables
// already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	defaults := browser.DefaultOptions()

	cfg := &Config{
		Browser: BrowserConfig{
			Driver:         getEnvOrDefault("BROWSER_DRIVER", browser.DriverPlaywright),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", defaults.Headless),
			Stealth:        getBoolOrDefault("BROWSER_STEALTH", defaults.Stealth),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", defaults.Timeout),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaults.UserAgent),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", defaults.ViewportWidth),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", defaults.ViewportHeight),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", defaults.AcceptLanguage),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", defaults.TimezoneID),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", defaults.Locale),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Scraper: ScraperConfig{
			HomeURL:         getEnvOrDefault("SCRAPER_HOME_URL", scraper.DefaultHomeURL),
			SearchURL:       getEnvOrDefault("SCRAPER_SEARCH_URL", scraper.DefaultSearchURL),
			WarmupDelay:     getDurationOrDefault("SCRAPER_WARMUP_DELAY", scraper.DefaultWarmupDelay),
			MaxPages:        getIntOrDefault("SCRAPER_MAX_PAGES", scraper.MaxPages),
			OutputDir:       getEnvOrDefault("SCRAPER_OUTPUT_DIR", "."),
			ProductDelayMin: getDurationOrDefault("SCRAPER_PRODUCT_DELAY_MIN", 0),
			ProductDelayMax: getDurationOrDefault("SCRAPER_PRODUCT_DELAY_MAX", 0),
		},
		Database: DatabaseConfig{
			Enabled:     getBoolOrDefault("DB_ENABLED", false),
			URL:         getEnvOrDefault("DATABASE_URL", ""),
			Host:        getEnvOrDefault("DB_HOST", "localhost"),
			Port:        getIntOrDefault("DB_PORT", 5432),
			User:        getEnvOrDefault("DB_USER", "postgres"),
			Password:    getEnvOrDefault("DB_PASSWORD", ""),
			DBName:      getEnvOrDefault("DB_NAME", "amazon_products"),
			SSLMode:     getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns:    int32(getIntOrDefault("DB_MAX_CONNS", 4)),
			MaxConnLife: getDurationOrDefault("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:product_scrapes"),
		},
		Server: ServerConfig{
			Addr:            getEnvOrDefault("SERVER_ADDR", ""),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case browser.DriverPlaywright, browser.DriverChromedp:
	default:
		return fmt.Errorf("unknown BROWSER_DRIVER %q", c.Browser.Driver)
	}

	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("BROWSER_TIMEOUT must be positive")
	}

	if c.Scraper.MaxPages < 1 || c.Scraper.MaxPages > scraper.MaxPages {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be between 1 and %d", scraper.MaxPages)
	}

	if c.Scraper.WarmupDelay < 0 {
		return fmt.Errorf("SCRAPER_WARMUP_DELAY cannot be negative")
	}

	if c.Scraper.ProductDelayMin < 0 || c.Scraper.ProductDelayMax < 0 {
		return fmt.Errorf("product delays cannot be negative")
	}

	if c.Scraper.ProductDelayMin > c.Scraper.ProductDelayMax {
		return fmt.Errorf("SCRAPER_PRODUCT_DELAY_MIN cannot be greater than SCRAPER_PRODUCT_DELAY_MAX")
	}

	if c.Scraper.SearchURL == "" {
		return fmt.Errorf("SCRAPER_SEARCH_URL is required")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED is set")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Logging.Format)
	}

	return nil
}

// BrowserOptions maps the browser section onto driver options.
func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.DefaultOptions()
	opts.Driver = c.Browser.Driver
	opts.Headless = c.Browser.Headless
	opts.Stealth = c.Browser.Stealth
	opts.Timeout = c.Browser.Timeout
	opts.UserAgent = c.Browser.UserAgent
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	opts.AcceptLanguage = c.Browser.AcceptLanguage
	opts.TimezoneID = c.Browser.TimezoneID
	opts.Locale = c.Browser.Locale
	opts.ProxyServer = c.Browser.ProxyServer
	return opts
}

// RunnerConfig maps the scraper section onto the run orchestrator.
func (c *Config) RunnerConfig() scraper.Config {
	return scraper.Config{
		HomeURL:     c.Scraper.HomeURL,
		SearchURL:   c.Scraper.SearchURL,
		WarmupDelay: c.Scraper.WarmupDelay,
		MaxPages:    c.Scraper.MaxPages,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
