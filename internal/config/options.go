package config

import (
	"github.com/J-Naish/amazon-scraper/internal/browser"
	"github.com/J-Naish/amazon-scraper/internal/scraper"
)

// BrowserOptions layers the configured values over browser.DefaultOptions.
func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.DefaultOptions()

	opts.Headless = c.Browser.Headless
	opts.ExecutablePath = c.Browser.ExecutablePath
	opts.Stealth = c.Browser.Stealth
	opts.Timeout = c.Browser.Timeout
	opts.NavigationTimeout = c.Browser.NavigationTimeout
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	opts.Locale = c.Browser.Locale
	opts.TimezoneID = c.Browser.TimezoneID
	opts.ProxyServer = c.Browser.ProxyServer
	if c.Browser.UserAgent != "" {
		opts.UserAgent = c.Browser.UserAgent
	}

	return opts
}

func (c *Config) ScraperOptions() scraper.Options {
	return scraper.Options{
		MarkerTimeout: c.Scraper.MarkerTimeout,
		ScrollPause:   c.Scraper.ScrollPause,
		SettleDelay:   c.Scraper.SettleDelay,
	}
}
