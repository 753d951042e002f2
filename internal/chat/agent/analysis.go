package agent

import (
	"fmt"
	"strconv"
	"strings"

	"shopchat_backend/internal/chat/domain"
)

// RunProcedure interprets a validated analysis procedure over seller
// listings. The interpreter only knows the whitelisted operations; anything
// else fails validation before it gets here.
func RunProcedure(proc domain.Procedure, offers []domain.SellerOffer) (float64, error) {
	if err := proc.Validate(); err != nil {
		return 0, err
	}

	var rows []domain.SellerOffer
	for _, offer := range offers {
		if matchesAllFilters(offer, proc.Filters) {
			rows = append(rows, offer)
		}
	}

	if proc.Op == "count" {
		return float64(len(rows)), nil
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no seller listing matches the filters")
	}

	values := make([]float64, len(rows))
	for i, row := range rows {
		values[i] = numericField(row, proc.Field)
	}

	switch proc.Op {
	case "sum":
		return sum(values), nil
	case "avg":
		return sum(values) / float64(len(values)), nil
	case "min":
		v := values[0]
		for _, x := range values[1:] {
			if x < v {
				v = x
			}
		}
		return v, nil
	case "max":
		v := values[0]
		for _, x := range values[1:] {
			if x > v {
				v = x
			}
		}
		return v, nil
	}
	return 0, fmt.Errorf("unsupported operation %q", proc.Op)
}

// FormatProcedureResult renders a result the way users expect the field to
// read: counts and prices as integers, scores with decimals.
func FormatProcedureResult(proc domain.Procedure, value float64) string {
	if proc.Op == "count" || proc.Field == "price" {
		return strconv.FormatInt(int64(value+0.5), 10)
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func matchesAllFilters(offer domain.SellerOffer, filters []domain.FieldFilter) bool {
	for _, f := range filters {
		if !matchesFilter(offer, f) {
			return false
		}
	}
	return true
}

func matchesFilter(offer domain.SellerOffer, f domain.FieldFilter) bool {
	switch f.Field {
	case "city":
		want, ok := f.Value.(string)
		if !ok {
			return false
		}
		eq := strings.EqualFold(offer.City, strings.TrimSpace(want))
		if f.Op == "neq" {
			return !eq
		}
		return eq
	case "has_warranty":
		want, ok := boolValue(f.Value)
		if !ok {
			return false
		}
		eq := offer.HasWarranty == want
		if f.Op == "neq" {
			return !eq
		}
		return eq
	default:
		want, ok := floatValue(f.Value)
		if !ok {
			return false
		}
		return compareNumeric(numericField(offer, f.Field), f.Op, want)
	}
}

func compareNumeric(have float64, op string, want float64) bool {
	switch op {
	case "eq":
		return have == want
	case "neq":
		return have != want
	case "lt":
		return have < want
	case "lte":
		return have <= want
	case "gt":
		return have > want
	case "gte":
		return have >= want
	}
	return false
}

func numericField(offer domain.SellerOffer, field string) float64 {
	if field == "shop_score" {
		return offer.ShopScore
	}
	return float64(offer.Price)
}

// floatValue tolerates the value shapes JSON decoding produces.
func floatValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func boolValue(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
