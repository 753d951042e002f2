// Package domain holds the conversation-scoped types of the resolution
// pipeline. Catalog entities live behind the gateway and are referenced here
// only by opaque keys.
package domain

// ScenarioLabel is the closed set of intent categories a request can be
// classified into. Anything the classifier cannot place lands on
// LabelUncategorized rather than an error.
type ScenarioLabel string

const (
	LabelDirectSearch         ScenarioLabel = "DIRECT_SEARCH"
	LabelFeatureExtraction    ScenarioLabel = "FEATURE_EXTRACTION"
	LabelSellerInfo           ScenarioLabel = "SELLER_INFO"
	LabelConversationalSearch ScenarioLabel = "CONVERSATIONAL_SEARCH"
	LabelComparison           ScenarioLabel = "COMPARISON"
	LabelImageLookup          ScenarioLabel = "IMAGE_LOOKUP"
	LabelUncategorized        ScenarioLabel = "UNCATEGORIZED"
)

// ParseScenarioLabel validates a classifier output against the closed set.
// Unknown values fold into LabelUncategorized.
func ParseScenarioLabel(s string) ScenarioLabel {
	switch ScenarioLabel(s) {
	case LabelDirectSearch, LabelFeatureExtraction, LabelSellerInfo,
		LabelConversationalSearch, LabelComparison, LabelImageLookup:
		return ScenarioLabel(s)
	default:
		return LabelUncategorized
	}
}

// RequiresResolution reports whether the dispatcher must resolve a product
// key before routing to the scenario handler.
func (l ScenarioLabel) RequiresResolution() bool {
	switch l {
	case LabelDirectSearch, LabelFeatureExtraction, LabelSellerInfo:
		return true
	default:
		return false
	}
}

// Classification is the result of one classifier call: the label plus an
// optional short product-name hint extracted alongside it.
type Classification struct {
	Label ScenarioLabel
	Hint  string
}

// TurnKind distinguishes text from image content in a message turn.
type TurnKind string

const (
	TurnText  TurnKind = "text"
	TurnImage TurnKind = "image"
)

// Turn is one message in a conversation. Immutable once received.
type Turn struct {
	Role    string   `json:"role"`
	Kind    TurnKind `json:"kind"`
	Content string   `json:"content"`
}

// Reply is the transport-agnostic response of the pipeline. At most one of
// Message / key lists carries the real payload per scenario; the key slices
// are never nil so "not found" serializes as an empty list.
type Reply struct {
	Message    string
	BaseKeys   []string
	MemberKeys []string
}

// MessageReply builds a text-only reply with empty key lists.
func MessageReply(text string) Reply {
	return Reply{Message: text, BaseKeys: []string{}, MemberKeys: []string{}}
}

// ProductReply builds a reply carrying resolved product keys.
func ProductReply(message string, keys ...string) Reply {
	return Reply{Message: message, BaseKeys: keys, MemberKeys: []string{}}
}

// SellerReply builds a reply carrying resolved seller (member) keys.
func SellerReply(message string, keys ...string) Reply {
	return Reply{Message: message, BaseKeys: []string{}, MemberKeys: keys}
}
