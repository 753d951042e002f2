// Package transport defines the wire types of the chat API.
package transport

import (
	"shopchat_backend/internal/chat/domain"
)

// Message is one entry of a chat request. Image content is base64-encoded.
type Message struct {
	Type    string `json:"type" validate:"required,oneof=text image"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the single endpoint's request body. Messages arrive oldest
// first; the last one is the turn being answered.
type ChatRequest struct {
	ChatID   string    `json:"chat_id" validate:"required,max=128"`
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
}

// ChatResponse mirrors the pipeline reply. The key lists are always present,
// empty when the scenario resolves nothing.
type ChatResponse struct {
	Message          string   `json:"message"`
	BaseRandomKeys   []string `json:"base_random_keys"`
	MemberRandomKeys []string `json:"member_random_keys"`
}

// ToTurns converts request messages into domain turns.
func ToTurns(messages []Message) []domain.Turn {
	turns := make([]domain.Turn, 0, len(messages))
	for _, msg := range messages {
		kind := domain.TurnText
		if msg.Type == "image" {
			kind = domain.TurnImage
		}
		turns = append(turns, domain.Turn{Role: "user", Kind: kind, Content: msg.Content})
	}
	return turns
}

// FromReply converts a pipeline reply into the response body.
func FromReply(reply domain.Reply) ChatResponse {
	resp := ChatResponse{
		Message:          reply.Message,
		BaseRandomKeys:   reply.BaseKeys,
		MemberRandomKeys: reply.MemberKeys,
	}
	if resp.BaseRandomKeys == nil {
		resp.BaseRandomKeys = []string{}
	}
	if resp.MemberRandomKeys == nil {
		resp.MemberRandomKeys = []string{}
	}
	return resp
}
