// Package ports defines the narrow contracts the chat module consumes.
// Implementations live elsewhere (catalog repository, oracle client, image
// search clients); the resolution core only ever sees these interfaces.
package ports

import (
	"context"

	"shopchat_backend/internal/chat/domain"
)

// ProductRef is one keyword-search hit, not yet confirmed as the match.
type ProductRef struct {
	Key  string
	Name string
}

// Product is a full catalog record fetched by key.
type Product struct {
	Key        string
	Name       string
	Features   map[string]string
	MemberKeys []string
}

// CatalogGateway is the query surface of the catalog store. It has no
// awareness of conversation state; every call is independent.
type CatalogGateway interface {
	// SearchByKeywords finds products whose names match every required term,
	// ordered by how many optional terms also match. The result set is capped
	// at the store level; callers threshold cardinality themselves.
	SearchByKeywords(ctx context.Context, required, optional []string) ([]ProductRef, error)

	// SearchByFilters runs the aggregate search: products matching the free
	// text query that have at least one seller satisfying the structured
	// filters, each with its matching sellers attached.
	SearchByFilters(ctx context.Context, filters domain.SearchFilters) ([]domain.CandidateProduct, error)

	// FetchByKey loads one product. Returns apperr.NotFound on a missing key.
	FetchByKey(ctx context.Context, key string) (*Product, error)

	// FetchSellers loads seller listings for the given member keys.
	FetchSellers(ctx context.Context, memberKeys []string) ([]domain.SellerOffer, error)

	// Categories lists all catalog category titles.
	Categories(ctx context.Context) ([]string, error)

	// CategoryFeatureExample returns a JSON example of the feature schema for
	// a category, or "" when the category has none.
	CategoryFeatureExample(ctx context.Context, category string) (string, error)
}
