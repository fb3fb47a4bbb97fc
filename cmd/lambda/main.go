package main

import (
	"context"
	"log"

	"github.com/J-Naish/amazon-scraper/internal/app"
	"github.com/J-Naish/amazon-scraper/internal/browser"
	"github.com/J-Naish/amazon-scraper/internal/config"
	"github.com/J-Naish/amazon-scraper/internal/logger"
	"github.com/aws/aws-lambda-go/lambda"
)

// defaultExecutablePath is where the Chromium layer is mounted.
const defaultExecutablePath = "/opt/chromium/chromium"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(context.Background(), cfg, lambdaBrowserOptions(cfg), logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	lambda.StartWithOptions(application.Handlers.HandleAPIGateway, shutdownOptions(application.Close)...)
}

// shutdownOptions runs closeFn when the runtime sends SIGTERM, since
// lambda.Start never returns to run deferred cleanup.
func shutdownOptions(closeFn func()) []lambda.Option {
	return []lambda.Option{lambda.WithEnableSIGTERM(closeFn)}
}

func lambdaBrowserOptions(cfg *config.Config) *browser.Options {
	opts := cfg.BrowserOptions()
	if opts.ExecutablePath == "" {
		opts.ExecutablePath = defaultExecutablePath
	}
	opts.ExtraArgs = append(opts.ExtraArgs, browser.ServerlessArgs()...)
	return opts
}
