package models

import (
	"time"
)

type ProductType string

const (
	ProductTypeSponsored ProductType = "sponsored"
	ProductTypeRegular   ProductType = "regular"
)

// Product is a single listing extracted from a search results page.
// Title is best-effort and may be empty.
type Product struct {
	Title string      `json:"title"`
	Type  ProductType `json:"type,omitempty"`
}

// ScrapeRun describes one invocation of the scraper from URL to result.
type ScrapeRun struct {
	ID          string        `json:"id"`
	SearchTerms []string      `json:"search_terms"`
	SearchURL   string        `json:"search_url"`
	Products    []Product     `json:"products"`
	MarkerFound bool          `json:"marker_found"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

func NewScrapeRun(id string, terms []string, searchURL string) *ScrapeRun {
	return &ScrapeRun{
		ID:          id,
		SearchTerms: terms,
		SearchURL:   searchURL,
		Products:    make([]Product, 0),
		StartedAt:   time.Now(),
	}
}

func (r *ScrapeRun) Succeeded() bool {
	return r.Error == ""
}

// Sponsored returns only the sponsored listings of the run.
func (r *ScrapeRun) Sponsored() []Product {
	products := make([]Product, 0, len(r.Products))
	for _, p := range r.Products {
		if p.Type == ProductTypeSponsored {
			products = append(products, p)
		}
	}
	return products
}
