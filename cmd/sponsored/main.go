package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/J-Naish/amazon-scraper/internal/config"
	"github.com/J-Naish/amazon-scraper/internal/logger"
	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/J-Naish/amazon-scraper/internal/scraper"
	"github.com/J-Naish/amazon-scraper/internal/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// stdout carries the results
	logger := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	service := scraper.NewService(scraper.BrowserLauncher(cfg.BrowserOptions()), cfg.ScraperOptions(), logger)

	run, err := service.ScrapeSponsored(ctx, search.Defaults())
	if err != nil {
		logger.Error("scrape failed", "error", err, "run_id", run.ID)
		os.Exit(1)
	}

	printProducts(os.Stdout, run.Products)
}

func printProducts(w io.Writer, products []models.Product) {
	fmt.Fprintf(w, "Found %d sponsored products\n", len(products))
	for i, p := range products {
		fmt.Fprintf(w, "%d. %s\n", i+1, p.Title)
	}
}
