package agent

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/internal/chat/session"
	"shopchat_backend/platform/logger"
)

// fakeGateway scripts catalog behavior per test via function fields. Unset
// fields return empty results.
type fakeGateway struct {
	searchByKeywords func(required, optional []string) ([]ports.ProductRef, error)
	searchByFilters  func(filters domain.SearchFilters) ([]domain.CandidateProduct, error)
	fetchByKey       func(key string) (*ports.Product, error)
	fetchSellers     func(memberKeys []string) ([]domain.SellerOffer, error)
	categories       []string
	featureExample   string
	searches         int
}

func (g *fakeGateway) SearchByKeywords(_ context.Context, required, optional []string) ([]ports.ProductRef, error) {
	g.searches++
	if g.searchByKeywords == nil {
		return nil, nil
	}
	return g.searchByKeywords(required, optional)
}

func (g *fakeGateway) SearchByFilters(_ context.Context, filters domain.SearchFilters) ([]domain.CandidateProduct, error) {
	if g.searchByFilters == nil {
		return nil, nil
	}
	return g.searchByFilters(filters)
}

func (g *fakeGateway) FetchByKey(_ context.Context, key string) (*ports.Product, error) {
	if g.fetchByKey == nil {
		return &ports.Product{Key: key, Name: "product " + key}, nil
	}
	return g.fetchByKey(key)
}

func (g *fakeGateway) FetchSellers(_ context.Context, memberKeys []string) ([]domain.SellerOffer, error) {
	if g.fetchSellers == nil {
		return nil, nil
	}
	return g.fetchSellers(memberKeys)
}

func (g *fakeGateway) Categories(_ context.Context) ([]string, error) {
	return g.categories, nil
}

func (g *fakeGateway) CategoryFeatureExample(_ context.Context, _ string) (string, error) {
	return g.featureExample, nil
}

// fakeOracle scripts oracle behavior per test via function fields. Unset
// fields return benign defaults.
type fakeOracle struct {
	classify              func(latest string) (domain.Classification, error)
	pickBestMatch         func(query string, candidates []ports.ProductRef) (string, error)
	proposeQuery          func(tried []string, status domain.CandidateStatus) ([]string, error)
	extractFilters        func(history []domain.Turn) (domain.SearchFilters, error)
	recoveryQuery         func(failed string) (string, error)
	respond               func(system, latest string) (string, error)
	selectOption          func(reply string, options []domain.CandidateProduct) (string, error)
	extractSellerCriteria func(reply string) (domain.SellerCriteria, error)
	interpretSellerChoice func(reply string, sellers []domain.SellerOffer) (string, error)
	splitComparison       func(message string) (string, string, error)
	generateProcedure     func(question string) (domain.Procedure, error)
	adjudicate            func(query, a, b string) (domain.Verdict, error)
	answerFeature         func(question string) (string, error)
	wantsName             func(question string) (bool, error)
}

func (o *fakeOracle) Classify(_ context.Context, latest string, _ []domain.Turn) (domain.Classification, error) {
	if o.classify == nil {
		return domain.Classification{Label: domain.LabelUncategorized}, nil
	}
	return o.classify(latest)
}

func (o *fakeOracle) PickBestMatch(_ context.Context, query string, candidates []ports.ProductRef) (string, error) {
	if o.pickBestMatch == nil {
		if len(candidates) == 0 {
			return "", domain.ErrNoMatch
		}
		return candidates[0].Key, nil
	}
	return o.pickBestMatch(query, candidates)
}

func (o *fakeOracle) ProposeQuery(_ context.Context, _ string, tried []string, status domain.CandidateStatus) ([]string, error) {
	if o.proposeQuery == nil {
		return nil, nil
	}
	return o.proposeQuery(tried, status)
}

func (o *fakeOracle) ExtractFilters(_ context.Context, history []domain.Turn, _ string) (domain.SearchFilters, error) {
	if o.extractFilters == nil {
		return domain.SearchFilters{}, nil
	}
	return o.extractFilters(history)
}

func (o *fakeOracle) RecoveryQuery(_ context.Context, _ []domain.Turn, failed string) (string, error) {
	if o.recoveryQuery == nil {
		return "", nil
	}
	return o.recoveryQuery(failed)
}

func (o *fakeOracle) Respond(_ context.Context, system string, _ []domain.Turn, latest string) (string, error) {
	if o.respond == nil {
		return "ok", nil
	}
	return o.respond(system, latest)
}

func (o *fakeOracle) SummarizeOptions(_ context.Context, _ []domain.Turn, options []domain.CandidateProduct) (string, error) {
	return "options presented", nil
}

func (o *fakeOracle) SelectOption(_ context.Context, reply string, options []domain.CandidateProduct) (string, error) {
	if o.selectOption == nil {
		return "", nil
	}
	return o.selectOption(reply, options)
}

func (o *fakeOracle) ExtractSellerCriteria(_ context.Context, reply string) (domain.SellerCriteria, error) {
	if o.extractSellerCriteria == nil {
		return domain.SellerCriteria{}, nil
	}
	return o.extractSellerCriteria(reply)
}

func (o *fakeOracle) InterpretSellerChoice(_ context.Context, reply string, sellers []domain.SellerOffer) (string, error) {
	if o.interpretSellerChoice == nil {
		return "", nil
	}
	return o.interpretSellerChoice(reply, sellers)
}

func (o *fakeOracle) SplitComparison(_ context.Context, message string) (string, string, error) {
	if o.splitComparison == nil {
		return "first product", "second product", nil
	}
	return o.splitComparison(message)
}

func (o *fakeOracle) GenerateProcedure(_ context.Context, question string) (domain.Procedure, error) {
	if o.generateProcedure == nil {
		return domain.Procedure{Op: "count"}, nil
	}
	return o.generateProcedure(question)
}

func (o *fakeOracle) Adjudicate(_ context.Context, query, a, b string) (domain.Verdict, error) {
	if o.adjudicate == nil {
		return domain.Verdict{}, nil
	}
	return o.adjudicate(query, a, b)
}

func (o *fakeOracle) AnswerFeatureQuestion(_ context.Context, question, _ string, _ map[string]string) (string, error) {
	if o.answerFeature == nil {
		return "answer", nil
	}
	return o.answerFeature(question)
}

func (o *fakeOracle) WantsProductName(_ context.Context, question string) (bool, error) {
	if o.wantsName == nil {
		return false, nil
	}
	return o.wantsName(question)
}

type fakeImages struct {
	matches []ports.ImageMatch
	err     error
}

func (f *fakeImages) SearchByImage(_ context.Context, _ string, _ int) ([]ports.ImageMatch, error) {
	return f.matches, f.err
}

func testLogger() *logger.Logger {
	return logger.New("development")
}

func testStore(t *testing.T) *session.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.New(client, 30*time.Minute)
}

var (
	_ ports.CatalogGateway = (*fakeGateway)(nil)
	_ ports.Oracle         = (*fakeOracle)(nil)
	_ ports.ImageSearcher  = (*fakeImages)(nil)
)
