package domain

// ConversationState enumerates the states of the narrowing state machine.
// DONE and ABANDONED are terminal; a session in a terminal state is never
// persisted, it is deleted.
type ConversationState string

const (
	StateGreet            ConversationState = "GREET"
	StateExtractAndSearch ConversationState = "EXTRACT_AND_SEARCH"
	StatePresentOptions   ConversationState = "PRESENT_OPTIONS"
	StateSelectSeller     ConversationState = "SELECT_SELLER"
	StateDone             ConversationState = "DONE"
	StateAbandoned        ConversationState = "ABANDONED"
)

// Session is the persisted state of one in-progress conversational
// resolution, keyed by conversation id. It exists if and only if the
// conversation is mid-resolution; its removal signals completion or
// abandonment.
type Session struct {
	State         ConversationState  `json:"state"`
	Turns         []Turn             `json:"turns"`
	FeatureSchema string             `json:"feature_schema,omitempty"`
	Filters       *SearchFilters     `json:"filters,omitempty"`
	Candidates    []CandidateProduct `json:"candidates,omitempty"`
	Selected      *CandidateProduct  `json:"selected,omitempty"`
}

// NewSession starts a session at the greeting state.
func NewSession() *Session {
	return &Session{State: StateGreet}
}

// AppendTurn records a message in the session history.
func (s *Session) AppendTurn(role, content string) {
	s.Turns = append(s.Turns, Turn{Role: role, Kind: TurnText, Content: content})
}

// CandidateProduct is one product surviving the conversational narrowing,
// carried inside the session together with its matching sellers.
type CandidateProduct struct {
	Key      string            `json:"key"`
	Name     string            `json:"name"`
	Features map[string]string `json:"features,omitempty"`
	Sellers  []SellerOffer     `json:"sellers"`
}

// SellerOffer is one seller listing of a product as the selection algorithm
// sees it.
type SellerOffer struct {
	MemberKey   string  `json:"member_key"`
	Price       int64   `json:"price"`
	City        string  `json:"city"`
	ShopScore   float64 `json:"shop_score"`
	HasWarranty bool    `json:"has_warranty"`
}
