package transport

import (
	"testing"

	"shopchat_backend/internal/chat/domain"
)

func TestToTurnsMapsImageMessages(t *testing.T) {
	turns := ToTurns([]Message{
		{Type: "text", Content: "hello"},
		{Type: "image", Content: "aGVsbG8="},
	})
	if len(turns) != 2 {
		t.Fatalf("expected two turns, got %d", len(turns))
	}
	if turns[0].Kind != domain.TurnText || turns[1].Kind != domain.TurnImage {
		t.Fatalf("unexpected kinds: %+v", turns)
	}
	if turns[0].Role != "user" || turns[1].Role != "user" {
		t.Fatalf("request messages are always user turns: %+v", turns)
	}
}

func TestFromReplyNeverSerializesNilKeyLists(t *testing.T) {
	resp := FromReply(domain.Reply{Message: "hi"})
	if resp.BaseRandomKeys == nil || resp.MemberRandomKeys == nil {
		t.Fatalf("key lists must be empty, not null: %+v", resp)
	}
	if len(resp.BaseRandomKeys) != 0 || len(resp.MemberRandomKeys) != 0 {
		t.Fatalf("expected empty key lists, got %+v", resp)
	}
}

func TestFromReplyCarriesResolvedKeys(t *testing.T) {
	resp := FromReply(domain.ProductReply("found", "bp-1"))
	if len(resp.BaseRandomKeys) != 1 || resp.BaseRandomKeys[0] != "bp-1" {
		t.Fatalf("expected bp-1, got %+v", resp.BaseRandomKeys)
	}
	if len(resp.MemberRandomKeys) != 0 {
		t.Fatalf("expected no member keys, got %+v", resp.MemberRandomKeys)
	}
}
