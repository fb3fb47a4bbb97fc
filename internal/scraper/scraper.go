package scraper

import (
	"context"
	"time"

	"github.com/J-Naish/amazon-scraper/internal/browser"
	"github.com/J-Naish/amazon-scraper/internal/models"
)

// Page is the subset of a browser page the scraper drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	ScrollTo(ctx context.Context, fraction float64) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Content(ctx context.Context) (string, error)
	Close() error
}

// Launcher starts a fresh browser for a single invocation. Closing the
// returned Page releases the browser.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

type LauncherFunc func(ctx context.Context) (Page, error)

func (f LauncherFunc) Launch(ctx context.Context) (Page, error) {
	return f(ctx)
}

// BrowserLauncher launches Playwright Chromium sessions with opts.
func BrowserLauncher(opts *browser.Options) Launcher {
	return LauncherFunc(func(ctx context.Context) (Page, error) {
		session, err := browser.Launch(ctx, opts)
		if err != nil {
			return nil, err
		}
		return session, nil
	})
}

// Scraper is implemented by Service and consumed by the HTTP and CLI layers.
type Scraper interface {
	Scrape(ctx context.Context, req Request) (*models.ScrapeRun, error)
}

type Request struct {
	Terms          []string
	IncludeRegular bool
}

type Options struct {
	// MarkerTimeout bounds the wait for the sponsored marker element.
	MarkerTimeout time.Duration
	// ScrollPause is slept after each simulated scroll step.
	ScrollPause time.Duration
	// SettleDelay is slept after the marker appears so lazy content can load.
	SettleDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		MarkerTimeout: 10 * time.Second,
		ScrollPause:   time.Second,
		SettleDelay:   5 * time.Second,
	}
}
