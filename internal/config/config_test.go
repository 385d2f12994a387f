package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/scraper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, browser.DriverPlaywright, cfg.Browser.Driver)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.Stealth)
	assert.Equal(t, scraper.DefaultHomeURL, cfg.Scraper.HomeURL)
	assert.Equal(t, scraper.DefaultSearchURL, cfg.Scraper.SearchURL)
	assert.Equal(t, 10*time.Second, cfg.Scraper.WarmupDelay)
	assert.Equal(t, 100, cfg.Scraper.MaxPages)
	assert.Equal(t, ".", cfg.Scraper.OutputDir)
	assert.Zero(t, cfg.Scraper.ProductDelayMin)
	assert.Zero(t, cfg.Scraper.ProductDelayMax)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "stream:product_scrapes", cfg.Redis.Stream)
	assert.Empty(t, cfg.Server.Addr)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BROWSER_DRIVER", "chromedp")
	t.Setenv("BROWSER_HEADLESS", "true")
	t.Setenv("BROWSER_STEALTH", "false")
	t.Setenv("SCRAPER_MAX_PAGES", "7")
	t.Setenv("SCRAPER_WARMUP_DELAY", "2s")
	t.Setenv("SCRAPER_PRODUCT_DELAY_MIN", "1s")
	t.Setenv("SCRAPER_PRODUCT_DELAY_MAX", "3s")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_MAX_CONNS", "9")
	t.Setenv("REDIS_ENABLED", "1")
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, browser.DriverChromedp, cfg.Browser.Driver)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Browser.Stealth)
	assert.Equal(t, 7, cfg.Scraper.MaxPages)
	assert.Equal(t, 2*time.Second, cfg.Scraper.WarmupDelay)
	assert.Equal(t, time.Second, cfg.Scraper.ProductDelayMin)
	assert.Equal(t, 3*time.Second, cfg.Scraper.ProductDelayMax)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, int32(9), cfg.Database.MaxConns)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	opts := cfg.BrowserOptions()
	assert.Equal(t, browser.DriverChromedp, opts.Driver)
	assert.True(t, opts.Headless)
	assert.False(t, opts.Stealth)

	rc := cfg.RunnerConfig()
	assert.Equal(t, 7, rc.MaxPages)
	assert.Equal(t, 2*time.Second, rc.WarmupDelay)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("SCRAPER_MAX_PAGES", "lots")
	t.Setenv("BROWSER_HEADLESS", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Scraper.MaxPages)
	assert.False(t, cfg.Browser.Headless)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Browser.Driver = "selenium" }, "BROWSER_DRIVER"},
		{"zero timeout", func(c *Config) { c.Browser.Timeout = 0 }, "BROWSER_TIMEOUT"},
		{"zero pages", func(c *Config) { c.Scraper.MaxPages = 0 }, "SCRAPER_MAX_PAGES"},
		{"too many pages", func(c *Config) { c.Scraper.MaxPages = 101 }, "SCRAPER_MAX_PAGES"},
		{"negative warmup", func(c *Config) { c.Scraper.WarmupDelay = -time.Second }, "SCRAPER_WARMUP_DELAY"},
		{"delay range inverted", func(c *Config) {
			c.Scraper.ProductDelayMin = 2 * time.Second
			c.Scraper.ProductDelayMax = time.Second
		}, "SCRAPER_PRODUCT_DELAY_MIN"},
		{"missing search url", func(c *Config) { c.Scraper.SearchURL = "" }, "SCRAPER_SEARCH_URL"},
		{"redis without addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}, "REDIS_ADDR"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
