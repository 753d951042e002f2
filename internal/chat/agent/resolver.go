// Package agent holds the resolution pipeline: classification and dispatch,
// the bounded search refinement loop, deterministic seller selection, the
// conversational narrowing state machine and the comparison orchestrator.
package agent

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/platform/logger"
)

// Resolver turns a free-text product request into exactly one catalog key by
// iteratively adjusting a keyword query until the candidate set is small
// enough to judge. Total gateway searches are hard-capped by the attempt
// budget regardless of how results oscillate.
type Resolver struct {
	gateway       ports.CatalogGateway
	oracle        ports.Oracle
	log           *logger.Logger
	attemptBudget int
	maxCandidates int
}

// NewResolver wires the refinement loop.
func NewResolver(gateway ports.CatalogGateway, oracle ports.Oracle, log *logger.Logger, attemptBudget, maxCandidates int) *Resolver {
	if attemptBudget < 1 {
		attemptBudget = 1
	}
	if maxCandidates < 1 {
		maxCandidates = 1
	}
	return &Resolver{
		gateway:       gateway,
		oracle:        oracle,
		log:           log,
		attemptBudget: attemptBudget,
		maxCandidates: maxCandidates,
	}
}

// Resolve runs the refinement loop. It returns the resolved base product key,
// or domain.ErrUnresolved once the attempt budget is exhausted or the oracle
// becomes unavailable mid-loop.
func (r *Resolver) Resolve(ctx context.Context, message, hint string) (string, error) {
	plan := newQueryPlan(message, hint)
	if len(plan.required) == 0 {
		return "", domain.ErrUnresolved
	}

	var tried []string
	for attempt := 1; attempt <= r.attemptBudget; attempt++ {
		query := strings.Join(plan.required, " ")
		refs, err := r.gateway.SearchByKeywords(ctx, plan.required, plan.reserve)
		if err != nil {
			// A failed search consumes its attempt like any other.
			r.log.Warn("candidate search failed", "attempt", attempt, "query", query, "error", err)
			continue
		}
		tried = append(tried, query)

		status := domain.ClassifyCardinality(len(refs), r.maxCandidates)
		if status == domain.CandidatesSingleOrFew {
			key, err := r.oracle.PickBestMatch(ctx, message, refs)
			if err == nil {
				return key, nil
			}
			if !errors.Is(err, domain.ErrNoMatch) {
				r.log.Warn("best-match pick failed", "attempt", attempt, "error", err)
				return "", domain.ErrUnresolved
			}
			// Right-sized but wrong products: treat like an empty result.
			status = domain.CandidatesEmpty
		}

		if attempt == r.attemptBudget {
			break
		}
		if !r.adjust(ctx, plan, tried, message, status) {
			break
		}
	}
	return "", domain.ErrUnresolved
}

// adjust mutates the plan for the next attempt. It prefers the deterministic
// local move and falls back to oracle-proposed keywords once the plan has no
// move left. Returns false when no further attempt is worth making.
func (r *Resolver) adjust(ctx context.Context, plan *queryPlan, tried []string, message string, status domain.CandidateStatus) bool {
	switch status {
	case domain.CandidatesEmpty:
		if plan.generalize() {
			return true
		}
	case domain.CandidatesTooMany:
		if plan.specialize() {
			return true
		}
	}

	keywords, err := r.oracle.ProposeQuery(ctx, message, tried, status)
	if err != nil {
		r.log.Warn("query proposal failed", "error", err)
		return false
	}
	keywords = dropTried(keywords, tried)
	if len(keywords) == 0 {
		return false
	}
	plan.replace(keywords)
	return true
}

func dropTried(keywords, tried []string) []string {
	seen := make(map[string]bool, len(tried))
	for _, q := range tried {
		seen[strings.ToLower(q)] = true
	}
	var fresh []string
	for _, kw := range keywords {
		if !seen[strings.ToLower(kw)] {
			fresh = append(fresh, kw)
		}
	}
	return fresh
}

// queryPlan is the resolver's working query: required terms ordered most
// specific first, plus reserve qualifiers not yet promoted. Generalizing
// drops the least specific required term; specializing promotes a reserve
// qualifier.
type queryPlan struct {
	required []string
	reserve  []string
}

func newQueryPlan(message, hint string) *queryPlan {
	source := hint
	if strings.TrimSpace(source) == "" {
		source = message
	}
	required := rankTerms(tokenize(source))

	var reserve []string
	if hint != "" {
		have := make(map[string]bool, len(required))
		for _, t := range required {
			have[t] = true
		}
		for _, t := range rankTerms(tokenize(message)) {
			if !have[t] {
				reserve = append(reserve, t)
			}
		}
	}

	// A huge required set over-constrains the first search; keep the most
	// specific terms and park the rest as qualifiers.
	const maxRequired = 4
	if len(required) > maxRequired {
		reserve = append(required[maxRequired:], reserve...)
		required = required[:maxRequired]
	}
	return &queryPlan{required: required, reserve: reserve}
}

func (p *queryPlan) generalize() bool {
	if len(p.required) <= 1 {
		return false
	}
	p.required = p.required[:len(p.required)-1]
	return true
}

func (p *queryPlan) specialize() bool {
	if len(p.reserve) == 0 {
		return false
	}
	p.required = append(p.required, p.reserve[0])
	p.reserve = p.reserve[1:]
	return true
}

func (p *queryPlan) replace(keywords []string) {
	p.required = rankTerms(keywords)
	p.reserve = nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// rankTerms orders terms most specific first: model-code-like tokens (those
// carrying digits) ahead of plain words, longer before shorter, and dedupes
// while dropping single-rune noise.
func rankTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var codes, words []string
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if len([]rune(tok)) < 2 {
			continue
		}
		key := strings.ToLower(tok)
		if seen[key] {
			continue
		}
		seen[key] = true
		if hasDigit(tok) {
			codes = append(codes, tok)
		} else {
			words = append(words, tok)
		}
	}
	byLengthDesc(codes)
	byLengthDesc(words)
	return append(codes, words...)
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func byLengthDesc(terms []string) {
	// Insertion sort keeps equal-length terms in input order.
	for i := 1; i < len(terms); i++ {
		for j := i; j > 0 && len(terms[j]) > len(terms[j-1]); j-- {
			terms[j], terms[j-1] = terms[j-1], terms[j]
		}
	}
}
