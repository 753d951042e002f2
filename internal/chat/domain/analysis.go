package domain

import "fmt"

// Procedure is the declarative seller-analysis computation the oracle is
// allowed to produce for comparison and seller-info questions. It replaces
// free-form generated code with a whitelisted set of aggregate operations so
// an adversarial oracle output cannot execute anything.
type Procedure struct {
	Op      string        `json:"op"`              // count | sum | avg | min | max
	Field   string        `json:"field,omitempty"` // price | shop_score; empty only for count
	Filters []FieldFilter `json:"filters,omitempty"`
}

// FieldFilter restricts the seller rows a Procedure aggregates over.
type FieldFilter struct {
	Field string      `json:"field"` // price | city | shop_score | has_warranty
	Op    string      `json:"op"`    // eq | neq | lt | lte | gt | gte
	Value interface{} `json:"value"`
}

var procedureOps = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
}

var numericFields = map[string]bool{
	"price": true, "shop_score": true,
}

var filterFields = map[string]bool{
	"price": true, "city": true, "shop_score": true, "has_warranty": true,
}

var filterOps = map[string]bool{
	"eq": true, "neq": true, "lt": true, "lte": true, "gt": true, "gte": true,
}

// Validate rejects anything outside the whitelist before the procedure
// reaches the interpreter.
func (p Procedure) Validate() error {
	if !procedureOps[p.Op] {
		return fmt.Errorf("unsupported operation %q", p.Op)
	}
	if p.Op == "count" {
		if p.Field != "" {
			return fmt.Errorf("count takes no field, got %q", p.Field)
		}
	} else if !numericFields[p.Field] {
		return fmt.Errorf("unsupported aggregate field %q", p.Field)
	}
	for _, f := range p.Filters {
		if !filterFields[f.Field] {
			return fmt.Errorf("unsupported filter field %q", f.Field)
		}
		if !filterOps[f.Op] {
			return fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		if f.Op != "eq" && f.Op != "neq" && !numericFields[f.Field] {
			return fmt.Errorf("ordering operator %q requires a numeric field, got %q", f.Op, f.Field)
		}
	}
	return nil
}

// Verdict is the adjudicated outcome of a product comparison. WinnerKey is
// empty when the oracle's answer could not be mapped back to one of the two
// resolved keys.
type Verdict struct {
	WinnerKey string `json:"winner_key"`
	Rationale string `json:"rationale"`
}
