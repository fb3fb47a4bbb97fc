package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStreamClient is a mock for the Redis stream client
type MockStreamClient struct {
	mock.Mock
}

func (m *MockStreamClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func newRun() *models.ScrapeRun {
	run := models.NewScrapeRun("run-1", []string{"化粧水", "美白"}, "https://amazon.co.jp/s?k=x")
	run.MarkerFound = true
	run.Products = []models.Product{
		{Title: "薬用美白化粧水", Type: models.ProductTypeSponsored},
		{Title: "美白美容液", Type: models.ProductTypeSponsored},
	}
	return run
}

func TestPublisher_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes successful run", func(t *testing.T) {
		client := new(MockStreamClient)
		client.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			if args.Stream != "stream:sponsored_products" || !args.Approx || args.MaxLen != streamMaxLen {
				return false
			}

			var payload ScrapedPayload
			if err := json.Unmarshal([]byte(args.Values.(map[string]interface{})["payload"].(string)), &payload); err != nil {
				return false
			}

			values := args.Values.(map[string]interface{})
			return values["event_type"] == string(EventTypeSponsoredScraped) &&
				values["aggregate_id"] == "run-1" &&
				values["search_terms"] == "化粧水,美白" &&
				values["count"] == 2 &&
				payload.Count == 2 &&
				payload.Products[0].Title == "薬用美白化粧水"
		})).Return(nil)

		publisher := NewPublisher(client, "stream:sponsored_products", slog.Default())

		err := publisher.Record(ctx, newRun())
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("redis failure is returned", func(t *testing.T) {
		client := new(MockStreamClient)
		client.On("XAdd", ctx, mock.Anything).Return(errors.New("NOGROUP"))

		publisher := NewPublisher(client, "stream:sponsored_products", slog.Default())

		err := publisher.Record(ctx, newRun())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "stream:sponsored_products")
	})
}

func TestNewScrapedPayload(t *testing.T) {
	run := newRun()

	payload := NewScrapedPayload(run)
	assert.Equal(t, EventTypeSponsoredScraped, payload.EventType)
	assert.NotEmpty(t, payload.EventID)
	assert.Equal(t, 2, payload.Count)

	run.Error = "failed to navigate: timeout"
	run.Products = []models.Product{}
	payload = NewScrapedPayload(run)
	assert.Equal(t, EventTypeScrapeFailed, payload.EventType)
	assert.Equal(t, "failed to navigate: timeout", payload.Error)
	assert.Equal(t, 0, payload.Count)
}
