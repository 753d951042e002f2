package domain

import "errors"

// ErrUnresolved is the terminal outcome of a refinement loop that exhausted
// its attempt budget or lost its oracle. It is an expected state, not a bug;
// callers surface it as a user-visible "not found".
var ErrUnresolved = errors.New("resolution exhausted without a unique key")

// ErrNoMatch is returned by the oracle when none of the presented candidates
// is an acceptable match. The refinement loop treats it exactly like an
// empty search result.
var ErrNoMatch = errors.New("no acceptable match among candidates")

// CandidateStatus classifies the cardinality of one search response.
type CandidateStatus string

const (
	CandidatesEmpty       CandidateStatus = "EMPTY"
	CandidatesSingleOrFew CandidateStatus = "SINGLE_OR_FEW"
	CandidatesTooMany     CandidateStatus = "TOO_MANY"
)

// ClassifyCardinality derives the status of a candidate set from the current
// result count only. Stale sets from earlier attempts are never merged.
func ClassifyCardinality(count, upperBound int) CandidateStatus {
	switch {
	case count == 0:
		return CandidatesEmpty
	case count > upperBound:
		return CandidatesTooMany
	default:
		return CandidatesSingleOrFew
	}
}
