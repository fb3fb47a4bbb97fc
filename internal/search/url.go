package search

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	BaseURL = "https://amazon.co.jp"

	// marketLocale is sent as __mk_ja_JP so Amazon serves the Japanese storefront.
	marketLocale = "カタカナ"
)

// DefaultTerms are used when a caller supplies no search terms.
var DefaultTerms = []string{"化粧水", "美白"}

// componentEscaper turns url.QueryEscape output into encodeURIComponent output.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent percent-encodes s leaving only A-Z a-z 0-9 - _ . ! ~ * ' ( )
// unescaped.
func EscapeComponent(s string) string {
	return componentEscaper.Replace(url.QueryEscape(s))
}

// Keyword encodes each term and joins them with a literal '+'.
func Keyword(terms []string) string {
	encoded := make([]string, len(terms))
	for i, term := range terms {
		encoded[i] = EscapeComponent(term)
	}
	return strings.Join(encoded, "+")
}

// BuildURL returns the Amazon.co.jp search URL for the given terms.
func BuildURL(terms []string) string {
	keyword := Keyword(terms)
	return fmt.Sprintf("%s/s?k=%s&__mk_ja_JP=%s&sprefix=%s",
		BaseURL, keyword, EscapeComponent(marketLocale), keyword)
}

// DecodeKeyword reverses Keyword.
func DecodeKeyword(keyword string) ([]string, error) {
	parts := strings.Split(keyword, "+")
	terms := make([]string, len(parts))
	for i, part := range parts {
		term, err := url.PathUnescape(part)
		if err != nil {
			return nil, fmt.Errorf("failed to decode keyword part %q: %w", part, err)
		}
		terms[i] = term
	}
	return terms, nil
}

// ParseTerms splits a comma separated query value into trimmed terms.
// An empty value yields DefaultTerms.
func ParseTerms(raw string) []string {
	if raw == "" {
		return Defaults()
	}

	parts := strings.Split(raw, ",")
	terms := make([]string, len(parts))
	for i, part := range parts {
		terms[i] = strings.TrimSpace(part)
	}
	return terms
}

// Defaults returns a copy of DefaultTerms.
func Defaults() []string {
	terms := make([]string, len(DefaultTerms))
	copy(terms, DefaultTerms)
	return terms
}
