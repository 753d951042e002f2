package agent

import (
	"sort"
	"strings"

	"shopchat_backend/internal/chat/domain"
)

// SelectSeller picks exactly one seller listing. Stated criteria are hard
// filters; ties among survivors break on a fixed cascade so the same input
// always yields the same listing. The second return is false when the filters
// eliminate every listing.
func SelectSeller(offers []domain.SellerOffer, criteria domain.SellerCriteria) (domain.SellerOffer, bool) {
	survivors := filterOffers(offers, criteria)
	if len(survivors) == 0 {
		return domain.SellerOffer{}, false
	}

	// SliceStable keeps original listing order as the final tie-break.
	switch criteria.Preference {
	case "best_score":
		sort.SliceStable(survivors, func(i, j int) bool {
			a, b := survivors[i], survivors[j]
			if a.ShopScore != b.ShopScore {
				return a.ShopScore > b.ShopScore
			}
			if a.Price != b.Price {
				return a.Price < b.Price
			}
			return a.HasWarranty && !b.HasWarranty
		})
	default:
		// Cheapest first, warranty over none at equal price. Equal on both
		// means the earlier-listed offer wins, so no further comparisons.
		sort.SliceStable(survivors, func(i, j int) bool {
			a, b := survivors[i], survivors[j]
			if a.Price != b.Price {
				return a.Price < b.Price
			}
			return a.HasWarranty && !b.HasWarranty
		})
	}
	return survivors[0], true
}

func filterOffers(offers []domain.SellerOffer, criteria domain.SellerCriteria) []domain.SellerOffer {
	survivors := make([]domain.SellerOffer, 0, len(offers))
	for _, offer := range offers {
		if criteria.City != "" && !strings.EqualFold(offer.City, criteria.City) {
			continue
		}
		if criteria.HasWarranty != nil && offer.HasWarranty != *criteria.HasWarranty {
			continue
		}
		if criteria.PriceMin != nil && offer.Price < *criteria.PriceMin {
			continue
		}
		if criteria.PriceMax != nil && offer.Price > *criteria.PriceMax {
			continue
		}
		survivors = append(survivors, offer)
	}
	return survivors
}
