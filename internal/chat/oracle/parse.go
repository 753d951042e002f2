package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"shopchat_backend/internal/chat/domain"
)

func userContent(text string) *genai.Content {
	return &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(text)},
	}
}

// historyContents renders conversation turns into model contents. Image
// turns appear as a placeholder; the raw payload never travels to text-only
// oracle calls.
func historyContents(history []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == "assistant" {
			role = genai.RoleModel
		}
		text := turn.Content
		if turn.Kind == domain.TurnImage {
			text = "[the user attached an image]"
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(text)},
		})
	}
	return contents
}

func responseText(resp *model.LLMResponse) string {
	if resp == nil || resp.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func functionCallArgs(resp *model.LLMResponse, name string) (map[string]any, bool) {
	if resp == nil || resp.Content == nil {
		return nil, false
	}
	for _, part := range resp.Content.Parts {
		if part == nil || part.FunctionCall == nil {
			continue
		}
		if part.FunctionCall.Name == name {
			return part.FunctionCall.Args, true
		}
	}
	return nil, false
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// unmarshalLoose parses a JSON object out of model output that may wrap it in
// a code fence or surrounding prose.
func unmarshalLoose(answer string, out any) error {
	raw := strings.TrimSpace(answer)
	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			raw = raw[start : end+1]
		}
	}
	if raw == "" || raw[0] != '{' {
		return fmt.Errorf("no JSON object in model output")
	}
	return json.Unmarshal([]byte(raw), out)
}
