package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/J-Naish/amazon-scraper/internal/browser"
	"github.com/J-Naish/amazon-scraper/internal/extractor"
	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/J-Naish/amazon-scraper/internal/search"
	"github.com/google/uuid"
)

// scrollSteps are the document height fractions visited to trigger lazy
// loading, ending back at the top.
var scrollSteps = []float64{0.25, 0.5, 0}

type Service struct {
	launcher Launcher
	opts     Options
	logger   *slog.Logger
}

func NewService(launcher Launcher, opts Options, logger *slog.Logger) *Service {
	return &Service{
		launcher: launcher,
		opts:     opts,
		logger:   logger.With("component", "scraper"),
	}
}

// ScrapeSponsored collects sponsored listings for terms.
func (s *Service) ScrapeSponsored(ctx context.Context, terms []string) (*models.ScrapeRun, error) {
	return s.Scrape(ctx, Request{Terms: terms})
}

// Scrape runs one browser invocation. The returned run is never nil; on
// failure its Error field carries the error text.
func (s *Service) Scrape(ctx context.Context, req Request) (*models.ScrapeRun, error) {
	run := models.NewScrapeRun(uuid.New().String(), req.Terms, search.BuildURL(req.Terms))
	logger := s.logger.With("run_id", run.ID)

	products, found, err := s.scrape(ctx, logger, run.SearchURL, req.IncludeRegular)
	run.Duration = time.Since(run.StartedAt)
	run.MarkerFound = found
	if err != nil {
		run.Error = err.Error()
		return run, err
	}

	run.Products = products
	logger.Info("scrape completed",
		"products", len(products),
		"marker_found", found,
		"duration", run.Duration)

	return run, nil
}

func (s *Service) scrape(ctx context.Context, logger *slog.Logger, url string, includeRegular bool) ([]models.Product, bool, error) {
	logger.Info("starting scrape", "url", url)

	page, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	if err := page.Navigate(ctx, url); err != nil {
		return nil, false, fmt.Errorf("failed to navigate: %w", err)
	}
	logger.Debug("page loaded")

	if err := s.simulateScrolling(ctx, page); err != nil {
		return nil, false, err
	}

	found := true
	err = page.WaitForSelector(ctx, extractor.MarkerSelector, s.opts.MarkerTimeout)
	switch {
	case errors.Is(err, browser.ErrSelectorTimeout):
		found = false
		logger.Warn("sponsored marker not found", "timeout", s.opts.MarkerTimeout)
		if !includeRegular {
			return []models.Product{}, false, nil
		}
	case err != nil:
		return nil, false, fmt.Errorf("failed to wait for sponsored marker: %w", err)
	default:
		logger.Debug("sponsored marker detected")
		if err := sleep(ctx, s.opts.SettleDelay); err != nil {
			return nil, true, err
		}
	}

	html, err := page.Content(ctx)
	if err != nil {
		return nil, found, fmt.Errorf("failed to read page content: %w", err)
	}

	products, err := extractor.New(extractor.Options{IncludeRegular: includeRegular}).Extract(html)
	if err != nil {
		return nil, found, fmt.Errorf("failed to extract products: %w", err)
	}

	return products, found, nil
}

func (s *Service) simulateScrolling(ctx context.Context, page Page) error {
	for _, fraction := range scrollSteps {
		if err := page.ScrollTo(ctx, fraction); err != nil {
			return fmt.Errorf("failed to simulate scrolling: %w", err)
		}
		if err := sleep(ctx, s.opts.ScrollPause); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
