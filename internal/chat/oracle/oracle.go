// Package oracle implements the language-model collaborator of the chat
// module on top of an ADK-compatible LLM. Every exported call is stateless:
// the caller ships the relevant conversation slice each time and owns all
// loop control.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/platform/logger"
)

// Client implements ports.Oracle.
type Client struct {
	llm model.LLM
	log *logger.Logger
}

// New wires the oracle to a concrete model.
func New(llm model.LLM, log *logger.Logger) *Client {
	return &Client{llm: llm, log: log}
}

var _ ports.Oracle = (*Client)(nil)

// generate runs one non-streaming completion and returns the final response.
func (c *Client) generate(ctx context.Context, op, system string, contents []*genai.Content, tools []*genai.Tool) (*model.LLMResponse, error) {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(system)},
		}
	}
	if len(tools) > 0 {
		cfg.Tools = tools
	}
	req := &model.LLMRequest{Contents: contents, Config: cfg}

	start := time.Now()
	final, err := c.collect(ctx, req)
	c.log.WithContext(ctx).OracleCall(op, float64(time.Since(start).Milliseconds()), err)
	return final, err
}

func (c *Client) collect(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	var final *model.LLMResponse
	for resp, err := range c.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return nil, fmt.Errorf("oracle call: %w", err)
		}
		final = resp
	}
	if final == nil || final.Content == nil {
		return nil, fmt.Errorf("oracle call: empty response")
	}
	return final, nil
}

// generateText is the common path for calls that expect plain text back.
func (c *Client) generateText(ctx context.Context, op, system string, contents []*genai.Content) (string, error) {
	resp, err := c.generate(ctx, op, system, contents, nil)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// Classify labels the latest message. Near-miss output folds into
// LabelUncategorized; only transport failures surface as errors.
func (c *Client) Classify(ctx context.Context, latest string, history []domain.Turn) (domain.Classification, error) {
	contents := historyContents(history)
	contents = append(contents, userContent(latest))

	resp, err := c.generate(ctx, "classify", classifySystemPrompt, contents, []*genai.Tool{classifyTool()})
	if err != nil {
		return domain.Classification{}, err
	}

	if args, ok := functionCallArgs(resp, "classify_user_request"); ok {
		label := domain.ParseScenarioLabel(stringArg(args, "label"))
		return domain.Classification{
			Label: label,
			Hint:  strings.TrimSpace(stringArg(args, "product_hint")),
		}, nil
	}

	// Some models answer in prose despite the tool. Salvage a bare label.
	label := domain.ParseScenarioLabel(strings.TrimSpace(responseText(resp)))
	return domain.Classification{Label: label}, nil
}

func classifyTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        "classify_user_request",
			Description: "Record the intent label for the user's latest message.",
			ParametersJsonSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"label": map[string]any{
						"type": "string",
						"enum": []string{
							string(domain.LabelDirectSearch),
							string(domain.LabelFeatureExtraction),
							string(domain.LabelSellerInfo),
							string(domain.LabelConversationalSearch),
							string(domain.LabelComparison),
							string(domain.LabelImageLookup),
							string(domain.LabelUncategorized),
						},
					},
					"product_hint": map[string]any{
						"type":        "string",
						"description": "Verbatim product-name phrase from the message, if any.",
					},
				},
				"required": []string{"label"},
			},
		}},
	}
}

// PickBestMatch chooses one candidate key or reports domain.ErrNoMatch.
func (c *Client) PickBestMatch(ctx context.Context, userQuery string, candidates []ports.ProductRef) (string, error) {
	if len(candidates) == 0 {
		return "", domain.ErrNoMatch
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Request:\n%s\n\nCandidates:\n", userQuery)
	for i, cand := range candidates {
		fmt.Fprintf(&b, "%d. key=%s name=%s\n", i+1, cand.Key, cand.Name)
	}

	answer, err := c.generateText(ctx, "pick_best_match", pickBestMatchSystemPrompt, []*genai.Content{userContent(b.String())})
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "NONE") {
		return "", domain.ErrNoMatch
	}
	for _, cand := range candidates {
		if strings.Contains(answer, cand.Key) {
			return cand.Key, nil
		}
	}
	// An answer that names no candidate is as good as a refusal.
	return "", domain.ErrNoMatch
}

// ProposeQuery asks for fresh keywords when local refinement is out of moves.
func (c *Client) ProposeQuery(ctx context.Context, userQuery string, tried []string, status domain.CandidateStatus) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Request:\n%s\n\nPrevious queries and their outcome (%s):\n", userQuery, status)
	for _, q := range tried {
		fmt.Fprintf(&b, "- %s\n", q)
	}

	answer, err := c.generateText(ctx, "propose_query", proposeQuerySystemPrompt, []*genai.Content{userContent(b.String())})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Keywords []string `json:"keywords"`
	}
	if err := unmarshalLoose(answer, &parsed); err != nil {
		return nil, nil
	}
	var keywords []string
	for _, kw := range parsed.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords, nil
}

// ExtractFilters pulls structured filters from the accumulated conversation.
func (c *Client) ExtractFilters(ctx context.Context, history []domain.Turn, featureSchema string) (domain.SearchFilters, error) {
	if featureSchema == "" {
		featureSchema = "(none)"
	}
	system := fmt.Sprintf(extractFiltersSystemPrompt, featureSchema)

	answer, err := c.generateText(ctx, "extract_filters", system, historyContents(history))
	if err != nil {
		return domain.SearchFilters{}, err
	}

	var filters domain.SearchFilters
	if err := unmarshalLoose(answer, &filters); err != nil {
		return domain.SearchFilters{}, nil
	}
	if filters.PriceMin != nil && filters.PriceMax != nil && *filters.PriceMin > *filters.PriceMax {
		filters.PriceMin, filters.PriceMax = filters.PriceMax, filters.PriceMin
	}
	return filters, nil
}

// RecoveryQuery suggests one broader query after an empty search, or "".
func (c *Client) RecoveryQuery(ctx context.Context, history []domain.Turn, failedQuery string) (string, error) {
	contents := historyContents(history)
	contents = append(contents, userContent("The query that found nothing was: "+failedQuery))

	answer, err := c.generateText(ctx, "recovery_query", recoveryQuerySystemPrompt, contents)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "NONE") {
		return "", nil
	}
	return answer, nil
}

// Respond generates free text for the given system prompt and conversation.
func (c *Client) Respond(ctx context.Context, system string, history []domain.Turn, latest string) (string, error) {
	if system == "" {
		system = respondFallbackSystemPrompt
	}
	contents := historyContents(history)
	if latest != "" {
		contents = append(contents, userContent(latest))
	}
	return c.generateText(ctx, "respond", system, contents)
}

// SummarizeOptions writes the message presenting candidate products.
func (c *Client) SummarizeOptions(ctx context.Context, history []domain.Turn, options []domain.CandidateProduct) (string, error) {
	contents := historyContents(history)
	contents = append(contents, userContent("Products to present:\n"+renderOptions(options)))
	return c.generateText(ctx, "summarize_options", summarizeOptionsSystemPrompt, contents)
}

// SelectOption maps a reply onto one presented candidate's key, or "".
func (c *Client) SelectOption(ctx context.Context, reply string, options []domain.CandidateProduct) (string, error) {
	prompt := fmt.Sprintf("Presented products:\n%s\nReply:\n%s", renderOptions(options), reply)
	answer, err := c.generateText(ctx, "select_option", selectOptionSystemPrompt, []*genai.Content{userContent(prompt)})
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "NONE") {
		return "", nil
	}
	for _, opt := range options {
		if strings.Contains(answer, opt.Key) {
			return opt.Key, nil
		}
	}
	return "", nil
}

// ExtractSellerCriteria interprets what the user wants from a seller.
func (c *Client) ExtractSellerCriteria(ctx context.Context, reply string) (domain.SellerCriteria, error) {
	answer, err := c.generateText(ctx, "extract_seller_criteria", sellerCriteriaSystemPrompt, []*genai.Content{userContent(reply)})
	if err != nil {
		return domain.SellerCriteria{}, err
	}
	var criteria domain.SellerCriteria
	if err := unmarshalLoose(answer, &criteria); err != nil {
		return domain.SellerCriteria{}, nil
	}
	if criteria.PriceMin != nil && criteria.PriceMax != nil && *criteria.PriceMin > *criteria.PriceMax {
		criteria.PriceMin, criteria.PriceMax = criteria.PriceMax, criteria.PriceMin
	}
	return criteria, nil
}

// InterpretSellerChoice picks a member key for a free-form seller wish, or "".
func (c *Client) InterpretSellerChoice(ctx context.Context, reply string, sellers []domain.SellerOffer) (string, error) {
	var b strings.Builder
	b.WriteString("Seller listings:\n")
	for i, s := range sellers {
		fmt.Fprintf(&b, "%d. member_key=%s price=%d city=%s score=%.2f warranty=%t\n",
			i+1, s.MemberKey, s.Price, s.City, s.ShopScore, s.HasWarranty)
	}
	fmt.Fprintf(&b, "\nReply:\n%s", reply)

	answer, err := c.generateText(ctx, "interpret_seller_choice", interpretSellerChoiceSystemPrompt, []*genai.Content{userContent(b.String())})
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, "NONE") {
		return "", nil
	}
	for _, s := range sellers {
		if strings.Contains(answer, s.MemberKey) {
			return s.MemberKey, nil
		}
	}
	return "", nil
}

// SplitComparison extracts both product mentions of a comparison request.
func (c *Client) SplitComparison(ctx context.Context, message string) (string, string, error) {
	answer, err := c.generateText(ctx, "split_comparison", splitComparisonSystemPrompt, []*genai.Content{userContent(message)})
	if err != nil {
		return "", "", err
	}
	var parsed struct {
		First  string `json:"first"`
		Second string `json:"second"`
	}
	if err := unmarshalLoose(answer, &parsed); err != nil {
		return "", "", fmt.Errorf("oracle comparison split: %w", err)
	}
	first := strings.TrimSpace(parsed.First)
	second := strings.TrimSpace(parsed.Second)
	if first == "" || second == "" {
		return "", "", fmt.Errorf("oracle comparison split: missing product mention")
	}
	return first, second, nil
}

// GenerateProcedure produces a whitelisted seller-analysis computation.
// Output failing the whitelist is an error; the interpreter never sees it.
func (c *Client) GenerateProcedure(ctx context.Context, question string) (domain.Procedure, error) {
	answer, err := c.generateText(ctx, "generate_procedure", generateProcedureSystemPrompt, []*genai.Content{userContent(question)})
	if err != nil {
		return domain.Procedure{}, err
	}
	var proc domain.Procedure
	if err := unmarshalLoose(answer, &proc); err != nil {
		return domain.Procedure{}, fmt.Errorf("oracle procedure: %w", err)
	}
	if err := proc.Validate(); err != nil {
		return domain.Procedure{}, fmt.Errorf("oracle procedure: %w", err)
	}
	return proc, nil
}

// Adjudicate decides a product comparison from both compiled detail blocks.
// The winner key is returned as-is; the caller maps it back fail-closed.
func (c *Client) Adjudicate(ctx context.Context, userQuery, detailsA, detailsB string) (domain.Verdict, error) {
	prompt := fmt.Sprintf("Request:\n%s\n\nProduct A:\n%s\n\nProduct B:\n%s", userQuery, detailsA, detailsB)
	answer, err := c.generateText(ctx, "adjudicate", adjudicateSystemPrompt, []*genai.Content{userContent(prompt)})
	if err != nil {
		return domain.Verdict{}, err
	}
	var verdict domain.Verdict
	if err := unmarshalLoose(answer, &verdict); err != nil {
		return domain.Verdict{Rationale: strings.TrimSpace(answer)}, nil
	}
	verdict.WinnerKey = strings.TrimSpace(verdict.WinnerKey)
	return verdict, nil
}

// AnswerFeatureQuestion answers from the product's feature map only.
func (c *Client) AnswerFeatureQuestion(ctx context.Context, question, productName string, features map[string]string) (string, error) {
	featuresJSON, _ := json.Marshal(features)
	prompt := fmt.Sprintf("Product: %s\nFeatures: %s\n\nQuestion: %s", productName, featuresJSON, question)
	return c.generateText(ctx, "answer_feature_question", featureAnswerSystemPrompt, []*genai.Content{userContent(prompt)})
}

// WantsProductName reports whether an image lookup asks for the name.
func (c *Client) WantsProductName(ctx context.Context, question string) (bool, error) {
	answer, err := c.generateText(ctx, "wants_product_name", wantsNameSystemPrompt, []*genai.Content{userContent(question)})
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "NAME"), nil
}

func renderOptions(options []domain.CandidateProduct) string {
	var b strings.Builder
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. key=%s name=%s", i+1, opt.Key, opt.Name)
		if lo, hi, ok := priceRange(opt.Sellers); ok {
			if lo == hi {
				fmt.Fprintf(&b, " price=%d", lo)
			} else {
				fmt.Fprintf(&b, " price=%d..%d", lo, hi)
			}
		}
		for k, v := range opt.Features {
			fmt.Fprintf(&b, " %s=%s", k, v)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func priceRange(sellers []domain.SellerOffer) (int64, int64, bool) {
	if len(sellers) == 0 {
		return 0, 0, false
	}
	lo, hi := sellers[0].Price, sellers[0].Price
	for _, s := range sellers[1:] {
		if s.Price < lo {
			lo = s.Price
		}
		if s.Price > hi {
			hi = s.Price
		}
	}
	return lo, hi, true
}
