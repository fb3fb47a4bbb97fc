package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

type Options struct {
	Headless          bool
	ExecutablePath    string
	Timeout           time.Duration
	NavigationTimeout time.Duration
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	Locale            string
	TimezoneID        string
	ProxyServer       string
	Stealth           bool
	ExtraArgs         []string
	ExtraHeaders      map[string]string
	Cookies           []Cookie
}

func DefaultOptions() *Options {
	return &Options{
		Headless:          true,
		Timeout:           30 * time.Second,
		NavigationTimeout: 30 * time.Second,
		UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/137.0.0.0 Safari/537.36",
		ViewportWidth:     1366,
		ViewportHeight:    768,
		Locale:            "ja-JP",
		TimezoneID:        "Asia/Tokyo",
		Stealth:           true,
		ExtraHeaders: map[string]string{
			"Accept":           "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
			"Content-Language": "ja-JP",
			"Accept-Language":  "ja-JP,ja;q=1.0",
			"Referer":          "https://www.amazon.co.jp/",
			"Cache-Control":    "no-cache",
		},
		Cookies: []Cookie{
			{Name: "i18n-prefs", Value: "JPY", Domain: ".amazon.co.jp", Path: "/"},
			{Name: "lc-main", Value: "ja_JP", Domain: ".amazon.co.jp", Path: "/"},
		},
	}
}

// ServerlessArgs are the extra Chromium flags needed inside a Lambda sandbox.
func ServerlessArgs() []string {
	return []string{
		"--disable-gpu",
		"--single-process",
	}
}

func (o *Options) launchArgs() []string {
	args := []string{
		"--lang=ja-JP",
		"--accept-lang=ja-JP",
		"--disable-web-security",
		"--disable-features=VizDisplayCompositor",
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-blink-features=AutomationControlled",
	}
	return append(args, o.ExtraArgs...)
}

func (o *Options) playwrightCookies() []playwright.OptionalCookie {
	cookies := make([]playwright.OptionalCookie, 0, len(o.Cookies))
	for _, c := range o.Cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		cookies = append(cookies, playwright.OptionalCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: playwright.String(c.Domain),
			Path:   playwright.String(path),
		})
	}
	return cookies
}
