package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeSponsoredScraped is published after a successful scrape, including empty ones.
	EventTypeSponsoredScraped EventType = "SPONSORED_PRODUCTS_SCRAPED"
	// EventTypeScrapeFailed is published when a scrape returned an error.
	EventTypeScrapeFailed EventType = "SPONSORED_SCRAPE_FAILED"

	// streamMaxLen caps the stream; trimming is approximate.
	streamMaxLen = 10000
)

// StreamClient interface for Redis stream operations (for testing)
type StreamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// ScrapedPayload is the JSON body of a scrape event.
type ScrapedPayload struct {
	EventID     string           `json:"event_id"`
	EventType   EventType        `json:"event_type"`
	Timestamp   time.Time        `json:"timestamp"`
	RunID       string           `json:"run_id"`
	SearchTerms []string         `json:"search_terms"`
	SearchURL   string           `json:"search_url"`
	Count       int              `json:"count"`
	Products    []models.Product `json:"products"`
	MarkerFound bool             `json:"marker_found"`
	Error       string           `json:"error,omitempty"`
}

// Publisher appends scrape runs to a Redis stream.
type Publisher struct {
	redis  StreamClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client StreamClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// Record publishes run as a stream entry.
func (p *Publisher) Record(ctx context.Context, run *models.ScrapeRun) error {
	payload := NewScrapedPayload(run)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id":     payload.EventID,
			"event_type":   string(payload.EventType),
			"aggregate_id": run.ID,
			"search_terms": strings.Join(run.SearchTerms, ","),
			"count":        payload.Count,
			"payload":      string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("published scrape event",
		"stream", p.stream,
		"stream_id", id,
		"event_type", payload.EventType,
		"run_id", run.ID)

	return nil
}

func NewScrapedPayload(run *models.ScrapeRun) *ScrapedPayload {
	eventType := EventTypeSponsoredScraped
	if !run.Succeeded() {
		eventType = EventTypeScrapeFailed
	}

	return &ScrapedPayload{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		Timestamp:   time.Now().UTC(),
		RunID:       run.ID,
		SearchTerms: run.SearchTerms,
		SearchURL:   run.SearchURL,
		Count:       len(run.Products),
		Products:    run.Products,
		MarkerFound: run.MarkerFound,
		Error:       run.Error,
	}
}
