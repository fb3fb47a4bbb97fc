package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/J-Naish/amazon-scraper/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockScraper is a mock for the scraper service
type MockScraper struct {
	mock.Mock
}

func (m *MockScraper) Scrape(ctx context.Context, req scraper.Request) (*models.ScrapeRun, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScrapeRun), args.Error(1)
}

type panicScraper struct{}

func (panicScraper) Scrape(ctx context.Context, req scraper.Request) (*models.ScrapeRun, error) {
	panic("page crashed")
}

// MockCache is a mock for the result cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, terms []string, includeRegular bool) ([]models.Product, bool, error) {
	args := m.Called(ctx, terms, includeRegular)
	products, _ := args.Get(0).([]models.Product)
	return products, args.Bool(1), args.Error(2)
}

func (m *MockCache) Set(ctx context.Context, terms []string, includeRegular bool, products []models.Product) error {
	args := m.Called(ctx, terms, includeRegular, products)
	return args.Error(0)
}

// MockRecorder is a mock for a run sink
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, run *models.ScrapeRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// MockRunLister is a mock for the run history
type MockRunLister struct {
	mock.Mock
}

func (m *MockRunLister) Recent(ctx context.Context, limit int) ([]*models.ScrapeRun, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]*models.ScrapeRun)
	return runs, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRun(terms []string, markerFound bool, products ...models.Product) *models.ScrapeRun {
	run := models.NewScrapeRun("run-1", terms, "https://amazon.co.jp/s")
	run.MarkerFound = markerFound
	if products != nil {
		run.Products = products
	}
	return run
}

func serve(t *testing.T, h *Handlers, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewRouter(h, RouterConfig{}).ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeSearch(t *testing.T, rec *httptest.ResponseRecorder) models.SearchResponse {
	t.Helper()
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    []string
		regular bool
	}{
		{name: "q param", query: "q=a,b", want: []string{"a", "b"}},
		{name: "search param", query: "search=化粧水", want: []string{"化粧水"}},
		{name: "q wins over search", query: "q=a&search=b", want: []string{"a"}},
		{name: "empty q falls back to search", query: "q=&search=b", want: []string{"b"}},
		{name: "terms are trimmed", query: "q=" + url.QueryEscape(" 化粧水 , 美白 "), want: []string{"化粧水", "美白"}},
		{name: "defaults", query: "", want: []string{"化粧水", "美白"}},
		{name: "include regular", query: "q=a&include_regular=true", want: []string{"a"}, regular: true},
		{name: "invalid include regular", query: "q=a&include_regular=maybe", want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			req := ParseRequest(values)
			assert.Equal(t, tt.want, req.Terms)
			assert.Equal(t, tt.regular, req.IncludeRegular)
		})
	}
}

func TestScrapeSponsored_Success(t *testing.T) {
	s := new(MockScraper)
	s.On("Scrape", mock.Anything, scraper.Request{Terms: []string{"a", "b"}}).Return(
		newRun([]string{"a", "b"}, true,
			models.Product{Title: "薬用美白化粧水", Type: models.ProductTypeSponsored},
			models.Product{Title: "", Type: models.ProductTypeSponsored},
		), nil)

	rec := serve(t, NewHandlers(s, testLogger()), http.MethodGet, "/api/v1/sponsored?q=a,b")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeSearch(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.SearchTerms)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "薬用美白化粧水", resp.Products[0].Title)
	assert.Equal(t, "", resp.Products[1].Title)
	assert.NotContains(t, rec.Body.String(), `"type"`)
	s.AssertExpectations(t)
}

func TestScrapeSponsored_DefaultTerms(t *testing.T) {
	defaults := []string{"化粧水", "美白"}
	s := new(MockScraper)
	s.On("Scrape", mock.Anything, scraper.Request{Terms: defaults}).Return(newRun(defaults, true), nil)

	rec := serve(t, NewHandlers(s, testLogger()), http.MethodPost, "/api/v1/sponsored")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaults, decodeSearch(t, rec).SearchTerms)
	s.AssertExpectations(t)
}

func TestScrapeSponsored_NoMarker(t *testing.T) {
	s := new(MockScraper)
	s.On("Scrape", mock.Anything, mock.Anything).Return(newRun([]string{"a"}, false), nil)

	rec := serve(t, NewHandlers(s, testLogger()), http.MethodGet, "/api/v1/sponsored?q=a")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"products":[]`)
	resp := decodeSearch(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Count)
}

func TestScrapeSponsored_IncludeRegular(t *testing.T) {
	s := new(MockScraper)
	s.On("Scrape", mock.Anything, scraper.Request{Terms: []string{"a"}, IncludeRegular: true}).Return(
		newRun([]string{"a"}, true,
			models.Product{Title: "広告", Type: models.ProductTypeSponsored},
			models.Product{Title: "通常", Type: models.ProductTypeRegular},
		), nil)

	rec := serve(t, NewHandlers(s, testLogger()), http.MethodGet, "/api/v1/sponsored?q=a&include_regular=true")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSearch(t, rec)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, models.ProductTypeSponsored, resp.Products[0].Type)
	assert.Equal(t, models.ProductTypeRegular, resp.Products[1].Type)
}

func TestScrapeSponsored_Failure(t *testing.T) {
	s := new(MockScraper)
	run := newRun([]string{"a"}, false)
	run.Error = "failed to navigate: net::ERR_NAME_NOT_RESOLVED"
	s.On("Scrape", mock.Anything, mock.Anything).Return(run, errors.New(run.Error))

	rec := serve(t, NewHandlers(s, testLogger()), http.MethodGet, "/api/v1/sponsored?q=a")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, run.Error, resp.Error)
	assert.Equal(t, FailureMessage, resp.Message)
}

func TestScrapeSponsored_Panic(t *testing.T) {
	rec := serve(t, NewHandlers(panicScraper{}, testLogger()), http.MethodGet, "/api/v1/sponsored")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "page crashed")
	assert.Equal(t, FailureMessage, resp.Message)
}

func TestSearch_Cache(t *testing.T) {
	ctx := context.Background()
	terms := []string{"a"}

	t.Run("hit skips the browser", func(t *testing.T) {
		s := new(MockScraper)
		c := new(MockCache)
		c.On("Get", ctx, terms, false).Return([]models.Product{{Title: "cached"}}, true, nil)

		status, body := NewHandlers(s, testLogger(), WithCache(c)).Search(ctx, scraper.Request{Terms: terms})

		assert.Equal(t, http.StatusOK, status)
		resp := body.(*models.SearchResponse)
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, "cached", resp.Products[0].Title)
		s.AssertNotCalled(t, "Scrape", mock.Anything, mock.Anything)
	})

	t.Run("miss stores confirmed result", func(t *testing.T) {
		products := []models.Product{{Title: "fresh", Type: models.ProductTypeSponsored}}
		s := new(MockScraper)
		s.On("Scrape", ctx, scraper.Request{Terms: terms}).Return(newRun(terms, true, products...), nil)
		c := new(MockCache)
		c.On("Get", ctx, terms, false).Return(nil, false, nil)
		c.On("Set", ctx, terms, false, products).Return(nil)

		status, _ := NewHandlers(s, testLogger(), WithCache(c)).Search(ctx, scraper.Request{Terms: terms})

		assert.Equal(t, http.StatusOK, status)
		c.AssertExpectations(t)
	})

	t.Run("missing marker is not cached", func(t *testing.T) {
		s := new(MockScraper)
		s.On("Scrape", ctx, mock.Anything).Return(newRun(terms, false), nil)
		c := new(MockCache)
		c.On("Get", ctx, terms, false).Return(nil, false, nil)

		status, _ := NewHandlers(s, testLogger(), WithCache(c)).Search(ctx, scraper.Request{Terms: terms})

		assert.Equal(t, http.StatusOK, status)
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache errors do not change the response", func(t *testing.T) {
		s := new(MockScraper)
		s.On("Scrape", ctx, mock.Anything).Return(newRun(terms, true), nil)
		c := new(MockCache)
		c.On("Get", ctx, terms, false).Return(nil, false, errors.New("connection refused"))
		c.On("Set", ctx, terms, false, mock.Anything).Return(errors.New("connection refused"))

		status, body := NewHandlers(s, testLogger(), WithCache(c)).Search(ctx, scraper.Request{Terms: terms})

		assert.Equal(t, http.StatusOK, status)
		assert.True(t, body.(*models.SearchResponse).Success)
	})
}

func TestSearch_Recorders(t *testing.T) {
	ctx := context.Background()

	t.Run("failed runs are recorded", func(t *testing.T) {
		run := newRun([]string{"a"}, false)
		run.Error = "failed to launch browser: missing executable"

		s := new(MockScraper)
		s.On("Scrape", ctx, mock.Anything).Return(run, errors.New(run.Error))
		r := new(MockRecorder)
		r.On("Record", mock.Anything, run).Return(nil)

		status, _ := NewHandlers(s, testLogger(), WithRecorder(r)).Search(ctx, scraper.Request{Terms: []string{"a"}})

		assert.Equal(t, http.StatusInternalServerError, status)
		r.AssertExpectations(t)
	})

	t.Run("recorder errors are ignored", func(t *testing.T) {
		run := newRun([]string{"a"}, true)

		s := new(MockScraper)
		s.On("Scrape", ctx, mock.Anything).Return(run, nil)
		first := new(MockRecorder)
		first.On("Record", mock.Anything, run).Return(errors.New("database unavailable"))
		second := new(MockRecorder)
		second.On("Record", mock.Anything, run).Return(nil)

		h := NewHandlers(s, testLogger(), WithRecorder(first), WithRecorder(second))
		status, _ := h.Search(ctx, scraper.Request{Terms: []string{"a"}})

		assert.Equal(t, http.StatusOK, status)
		first.AssertExpectations(t)
		second.AssertExpectations(t)
	})

	t.Run("nil run is not recorded", func(t *testing.T) {
		s := new(MockScraper)
		s.On("Scrape", ctx, mock.Anything).Return(nil, errors.New("boom"))
		r := new(MockRecorder)

		status, _ := NewHandlers(s, testLogger(), WithRecorder(r)).Search(ctx, scraper.Request{Terms: []string{"a"}})

		assert.Equal(t, http.StatusInternalServerError, status)
		r.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestListRuns(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		rec := serve(t, NewHandlers(new(MockScraper), testLogger()), http.MethodGet, "/api/v1/runs")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("default limit", func(t *testing.T) {
		l := new(MockRunLister)
		l.On("Recent", mock.Anything, defaultRunsLimit).Return([]*models.ScrapeRun{newRun([]string{"a"}, true)}, nil)

		rec := serve(t, NewHandlers(new(MockScraper), testLogger(), WithRunLister(l)), http.MethodGet, "/api/v1/runs")

		assert.Equal(t, http.StatusOK, rec.Code)
		var runs []models.ScrapeRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "run-1", runs[0].ID)
		l.AssertExpectations(t)
	})

	t.Run("limit is capped", func(t *testing.T) {
		l := new(MockRunLister)
		l.On("Recent", mock.Anything, maxRunsLimit).Return([]*models.ScrapeRun{}, nil)

		rec := serve(t, NewHandlers(new(MockScraper), testLogger(), WithRunLister(l)), http.MethodGet, "/api/v1/runs?limit=5000")

		assert.Equal(t, http.StatusOK, rec.Code)
		l.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		l := new(MockRunLister)
		rec := serve(t, NewHandlers(new(MockScraper), testLogger(), WithRunLister(l)), http.MethodGet, "/api/v1/runs?limit=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("repository error", func(t *testing.T) {
		l := new(MockRunLister)
		l.On("Recent", mock.Anything, defaultRunsLimit).Return(nil, errors.New("timeout"))

		rec := serve(t, NewHandlers(new(MockScraper), testLogger(), WithRunLister(l)), http.MethodGet, "/api/v1/runs")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	rec := serve(t, NewHandlers(new(MockScraper), testLogger()), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
