package oracle

import (
	"testing"

	"shopchat_backend/internal/chat/domain"
)

func TestUnmarshalLooseParsesBareJSON(t *testing.T) {
	var out struct {
		Keywords []string `json:"keywords"`
	}
	if err := unmarshalLoose(`{"keywords": ["a", "b"]}`, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Keywords) != 2 {
		t.Fatalf("expected two keywords, got %v", out.Keywords)
	}
}

func TestUnmarshalLooseStripsCodeFencesAndProse(t *testing.T) {
	answer := "Sure, here you go:\n```json\n{\"search_query\": \"red chair\"}\n```\nHope that helps."
	var filters domain.SearchFilters
	if err := unmarshalLoose(answer, &filters); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Query != "red chair" {
		t.Fatalf("expected the fenced JSON to parse, got %+v", filters)
	}
}

func TestUnmarshalLooseRejectsPlainProse(t *testing.T) {
	var out map[string]any
	if err := unmarshalLoose("I could not produce JSON, sorry.", &out); err == nil {
		t.Fatal("expected an error for output with no JSON object")
	}
}

func TestHistoryContentsMapsRolesAndMasksImages(t *testing.T) {
	turns := []domain.Turn{
		{Role: "user", Kind: domain.TurnText, Content: "hi"},
		{Role: "assistant", Kind: domain.TurnText, Content: "hello"},
		{Role: "user", Kind: domain.TurnImage, Content: "base64base64"},
		{Role: "user", Kind: domain.TurnText, Content: "   "},
	}
	contents := historyContents(turns)
	if len(contents) != 3 {
		t.Fatalf("expected blank turns to drop, got %d contents", len(contents))
	}
	if contents[1].Role != "model" {
		t.Fatalf("assistant turns must map to the model role, got %s", contents[1].Role)
	}
	if contents[2].Parts[0].Text == "base64base64" {
		t.Fatal("raw image payload must never reach a text prompt")
	}
}
