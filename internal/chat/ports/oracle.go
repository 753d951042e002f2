package ports

import (
	"context"

	"shopchat_backend/internal/chat/domain"
)

// Oracle is the language-model collaborator. Every call is stateless; the
// caller supplies the full context each time. Structured outputs are
// validated by the implementation and fall back to the zero/fallback variant
// rather than erroring on near-miss output; transport failures are errors.
type Oracle interface {
	// Classify labels the latest message with an intent category and an
	// optional short product-name hint.
	Classify(ctx context.Context, latest string, history []domain.Turn) (domain.Classification, error)

	// PickBestMatch chooses the single best candidate for the user's query,
	// or returns domain.ErrNoMatch when none is acceptable. The returned key
	// is always one of the presented candidates.
	PickBestMatch(ctx context.Context, userQuery string, candidates []ProductRef) (string, error)

	// ProposeQuery asks for fresh search keywords when the refinement loop
	// has no deterministic adjustment left.
	ProposeQuery(ctx context.Context, userQuery string, tried []string, status domain.CandidateStatus) ([]string, error)

	// ExtractFilters pulls structured search filters from the accumulated
	// conversation, guided by the category's feature schema example.
	ExtractFilters(ctx context.Context, history []domain.Turn, featureSchema string) (domain.SearchFilters, error)

	// RecoveryQuery generates one broader/adjacent query after a search that
	// found nothing. Returns "" when it has no suggestion.
	RecoveryQuery(ctx context.Context, history []domain.Turn, failedQuery string) (string, error)

	// Respond generates free text from a system prompt plus conversation.
	Respond(ctx context.Context, system string, history []domain.Turn, latest string) (string, error)

	// SummarizeOptions writes the message that presents candidate products.
	SummarizeOptions(ctx context.Context, history []domain.Turn, options []domain.CandidateProduct) (string, error)

	// SelectOption maps a user reply onto one presented candidate's key, or
	// "" when the reply does not uniquely identify one.
	SelectOption(ctx context.Context, reply string, options []domain.CandidateProduct) (string, error)

	// ExtractSellerCriteria interprets what the user wants from a seller.
	ExtractSellerCriteria(ctx context.Context, reply string) (domain.SellerCriteria, error)

	// InterpretSellerChoice is the free-form fallback when deterministic
	// selection filtered everything out ("give me the cheaper one"). Returns
	// a member key from the presented sellers, or "".
	InterpretSellerChoice(ctx context.Context, reply string, sellers []domain.SellerOffer) (string, error)

	// SplitComparison extracts the two product mentions of a comparison
	// request, in the order the user named them.
	SplitComparison(ctx context.Context, message string) (first, second string, err error)

	// GenerateProcedure produces a whitelisted seller-analysis computation
	// for the given question.
	GenerateProcedure(ctx context.Context, question string) (domain.Procedure, error)

	// Adjudicate decides a product comparison given both products' compiled
	// details.
	Adjudicate(ctx context.Context, userQuery, detailsA, detailsB string) (domain.Verdict, error)

	// AnswerFeatureQuestion answers a question about a known product from its
	// feature map.
	AnswerFeatureQuestion(ctx context.Context, question string, productName string, features map[string]string) (string, error)

	// WantsProductName reports whether an image-lookup request asks for the
	// product's name rather than its key.
	WantsProductName(ctx context.Context, question string) (bool, error)
}
