package models

// ProductView is the wire shape of a product in search responses.
type ProductView struct {
	Title string      `json:"title"`
	Type  ProductType `json:"type,omitempty"`
}

// SearchResponse is returned with status 200.
type SearchResponse struct {
	Success     bool          `json:"success"`
	SearchTerms []string      `json:"searchTerms"`
	Count       int           `json:"count"`
	Products    []ProductView `json:"products"`
}

// ErrorResponse is returned with status 500.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewSearchResponse shapes products for the wire. The product type is only
// included when withType is set.
func NewSearchResponse(terms []string, products []Product, withType bool) *SearchResponse {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		view := ProductView{Title: p.Title}
		if withType {
			view.Type = p.Type
		}
		views = append(views, view)
	}

	if terms == nil {
		terms = []string{}
	}

	return &SearchResponse{
		Success:     true,
		SearchTerms: terms,
		Count:       len(views),
		Products:    views,
	}
}
