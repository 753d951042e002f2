package domain

// SearchFilters is the structured output of filter extraction, validated at
// the oracle boundary. Zero values mean "not stated".
type SearchFilters struct {
	Query       string            `json:"search_query"`
	PriceMin    *int64            `json:"price_min,omitempty"`
	PriceMax    *int64            `json:"price_max,omitempty"`
	City        string            `json:"city,omitempty"`
	HasWarranty bool              `json:"has_warranty,omitempty"`
	Features    map[string]string `json:"features,omitempty"`
}

// SellerCriteria is what the user stated about the seller they want.
// City/warranty/price bounds are hard filters; Preference is relative
// ("cheapest", "best score") and is never used to filter, only implied by
// the tie-break ordering.
type SellerCriteria struct {
	City        string `json:"city,omitempty"`
	HasWarranty *bool  `json:"has_warranty,omitempty"`
	PriceMin    *int64 `json:"price_min,omitempty"`
	PriceMax    *int64 `json:"price_max,omitempty"`
	Preference  string `json:"preference,omitempty"`
}

// Empty reports whether no explicit criterion was stated.
func (c SellerCriteria) Empty() bool {
	return c.City == "" && c.HasWarranty == nil && c.PriceMin == nil && c.PriceMax == nil && c.Preference == ""
}
