package agent

import (
	"context"
	"strings"
	"testing"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
)

func comparisonGateway() *fakeGateway {
	return &fakeGateway{
		searchByKeywords: func(required, optional []string) ([]ports.ProductRef, error) {
			if strings.Contains(strings.ToLower(strings.Join(required, " ")), "alpha") {
				return []ports.ProductRef{{Key: "bp-alpha", Name: "Alpha Z1"}}, nil
			}
			return []ports.ProductRef{{Key: "bp-beta", Name: "Beta Q2"}}, nil
		},
		fetchByKey: func(key string) (*ports.Product, error) {
			return &ports.Product{Key: key, Name: key, MemberKeys: []string{key + "-m"}}, nil
		},
		fetchSellers: func(memberKeys []string) ([]domain.SellerOffer, error) {
			return []domain.SellerOffer{{MemberKey: memberKeys[0], Price: 100}}, nil
		},
	}
}

func TestComparisonReturnsWinnerKeyWhenVerdictMapsToASide(t *testing.T) {
	oracle := &fakeOracle{
		splitComparison: func(message string) (string, string, error) {
			return "alpha z1", "beta q2", nil
		},
		pickBestMatch: func(query string, candidates []ports.ProductRef) (string, error) {
			return candidates[0].Key, nil
		},
		adjudicate: func(query, a, b string) (domain.Verdict, error) {
			return domain.Verdict{WinnerKey: "bp-alpha", Rationale: "alpha fits better"}, nil
		},
	}
	cmp := newTestComparison(oracle, comparisonGateway())

	reply, err := cmp.Compare(context.Background(), "alpha z1 or beta q2?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.BaseKeys) != 1 || reply.BaseKeys[0] != "bp-alpha" {
		t.Fatalf("expected bp-alpha, got %v", reply.BaseKeys)
	}
	if reply.Message != "alpha fits better" {
		t.Fatalf("expected the rationale, got %q", reply.Message)
	}
}

func TestComparisonFailsClosedOnUnmappableWinner(t *testing.T) {
	oracle := &fakeOracle{
		splitComparison: func(message string) (string, string, error) {
			return "alpha z1", "beta q2", nil
		},
		pickBestMatch: func(query string, candidates []ports.ProductRef) (string, error) {
			return candidates[0].Key, nil
		},
		adjudicate: func(query, a, b string) (domain.Verdict, error) {
			return domain.Verdict{WinnerKey: "bp-invented", Rationale: "made up"}, nil
		},
	}
	cmp := newTestComparison(oracle, comparisonGateway())

	reply, err := cmp.Compare(context.Background(), "alpha z1 or beta q2?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.BaseKeys) != 0 {
		t.Fatalf("an invented winner key must never ship, got %v", reply.BaseKeys)
	}
}

func TestComparisonAnswersGracefullyWhenASideCannotBeResolved(t *testing.T) {
	gateway := comparisonGateway()
	gateway.searchByKeywords = func(required, optional []string) ([]ports.ProductRef, error) {
		return nil, nil
	}
	oracle := &fakeOracle{
		splitComparison: func(message string) (string, string, error) {
			return "alpha z1", "beta q2", nil
		},
	}
	cmp := newTestComparison(oracle, gateway)

	reply, err := cmp.Compare(context.Background(), "alpha z1 or beta q2?")
	if err != nil {
		t.Fatalf("resolution failure must degrade to a message: %v", err)
	}
	if reply.Message == "" || len(reply.BaseKeys) != 0 {
		t.Fatalf("expected a keyless message, got %+v", reply)
	}
}

func TestComparisonIncludesProcedureAnalysisInDetails(t *testing.T) {
	var capturedA, capturedB string
	oracle := &fakeOracle{
		splitComparison: func(message string) (string, string, error) {
			return "alpha z1", "beta q2", nil
		},
		pickBestMatch: func(query string, candidates []ports.ProductRef) (string, error) {
			return candidates[0].Key, nil
		},
		generateProcedure: func(question string) (domain.Procedure, error) {
			return domain.Procedure{Op: "min", Field: "price"}, nil
		},
		adjudicate: func(query, a, b string) (domain.Verdict, error) {
			capturedA, capturedB = a, b
			return domain.Verdict{WinnerKey: "bp-beta", Rationale: "cheaper"}, nil
		},
	}
	cmp := newTestComparison(oracle, comparisonGateway())

	if _, err := cmp.Compare(context.Background(), "alpha z1 or beta q2?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(capturedA, "analysis min(price): 100") {
		t.Fatalf("expected the analysis line in side A details:\n%s", capturedA)
	}
	if !strings.Contains(capturedB, "analysis min(price): 100") {
		t.Fatalf("expected the analysis line in side B details:\n%s", capturedB)
	}
}

func newTestComparison(oracle *fakeOracle, gateway *fakeGateway) *Comparison {
	log := testLogger()
	resolver := NewResolver(gateway, oracle, log, 5, 10)
	return NewComparison(gateway, oracle, resolver, log)
}
