package extractor

import (
	"fmt"
	"strings"

	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// MarkerSelector is the element whose presence signals that sponsored
// listings have rendered.
const MarkerSelector = "span.puis-sponsored-label-info-icon"

// SponsoredSelectors locate sponsored label elements, in lookup order.
var SponsoredSelectors = []string{
	MarkerSelector,
	"a.puis-label-popover.puis-sponsored-label-text",
	"span.sponsored-brand-label-info-desktop",
	"span.puis-sponsored-label-text",
}

const (
	titleRecipeDiv  = `div[data-cy="title-recipe"]`
	titleRecipe     = `[data-cy="title-recipe"]`
	listItem        = `div[role="listitem"]`
	regularSelector = `div[role="listitem"] div[data-cy="title-recipe"]`
	titleSelector   = "h2"
)

type Options struct {
	// IncludeRegular also collects non-sponsored listings.
	IncludeRegular bool
}

type Extractor struct {
	opts Options
}

func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract parses a rendered search results page and returns its product
// listings. Containers are deduplicated by their inner markup.
func (e *Extractor) Extract(html string) ([]models.Product, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return e.ExtractDocument(doc), nil
}

func (e *Extractor) ExtractDocument(doc *goquery.Document) []models.Product {
	products := make([]models.Product, 0)
	seen := make(map[string]struct{})

	add := func(container *goquery.Selection, productType models.ProductType) {
		inner, err := container.Html()
		if err != nil {
			return
		}
		if _, dup := seen[inner]; dup {
			return
		}
		seen[inner] = struct{}{}

		products = append(products, models.Product{
			Title: extractTitle(container),
			Type:  productType,
		})
	}

	for _, selector := range SponsoredSelectors {
		doc.Find(selector).Each(func(_ int, label *goquery.Selection) {
			container := ResolveContainer(label)
			if container.Length() == 0 {
				return
			}
			add(container, models.ProductTypeSponsored)
		})
	}

	if e.opts.IncludeRegular {
		doc.Find(regularSelector).Each(func(_ int, container *goquery.Selection) {
			add(container, models.ProductTypeRegular)
		})
	}

	return products
}

// ResolveContainer walks from a sponsored label to the product's title
// container. The result is empty when no strategy matches.
func ResolveContainer(label *goquery.Selection) *goquery.Selection {
	if container := label.Closest(titleRecipeDiv); container.Length() > 0 {
		return container
	}

	if container := label.Closest(titleRecipe); container.Length() > 0 {
		return container
	}

	return label.Closest(listItem).Find(titleRecipe).First()
}

func extractTitle(container *goquery.Selection) string {
	return strings.TrimSpace(container.Find(titleSelector).First().Text())
}
