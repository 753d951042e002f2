package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
)

func newTestDispatcher(t *testing.T, oracle *fakeOracle, gateway *fakeGateway, images ports.ImageSearcher) *Dispatcher {
	t.Helper()
	return NewDispatcher(oracle, gateway, images, testStore(t), testLogger(), 5, 10, 5, 9, 30*time.Second)
}

func textTurns(messages ...string) []domain.Turn {
	turns := make([]domain.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, domain.Turn{Role: "user", Kind: domain.TurnText, Content: m})
	}
	return turns
}

func TestDispatcherAnswersPingWithPong(t *testing.T) {
	d := newTestDispatcher(t, &fakeOracle{}, &fakeGateway{}, nil)

	reply, err := d.Handle(context.Background(), "c1", textTurns("ping"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Message != "pong" {
		t.Fatalf("expected pong, got %q", reply.Message)
	}
	if len(reply.BaseKeys) != 0 || len(reply.MemberKeys) != 0 {
		t.Fatal("ping must not carry keys")
	}
}

func TestDispatcherEchoesBaseAndMemberKeys(t *testing.T) {
	d := newTestDispatcher(t, &fakeOracle{}, &fakeGateway{}, nil)

	reply, err := d.Handle(context.Background(), "c1", textTurns("return base random key: abc123"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.BaseKeys) != 1 || reply.BaseKeys[0] != "abc123" {
		t.Fatalf("expected base key echo, got %v", reply.BaseKeys)
	}

	reply, err = d.Handle(context.Background(), "c1", textTurns("Return member random key: m-9"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.MemberKeys) != 1 || reply.MemberKeys[0] != "m-9" {
		t.Fatalf("expected member key echo, got %v", reply.MemberKeys)
	}
}

func TestDispatcherRejectsEmptyMessageList(t *testing.T) {
	d := newTestDispatcher(t, &fakeOracle{}, &fakeGateway{}, nil)

	if _, err := d.Handle(context.Background(), "c1", nil); err == nil {
		t.Fatal("expected an error for an empty message list")
	}
}

func TestDispatcherRoutesDirectSearchThroughResolution(t *testing.T) {
	oracle := &fakeOracle{
		classify: func(latest string) (domain.Classification, error) {
			return domain.Classification{Label: domain.LabelDirectSearch, Hint: "X200"}, nil
		},
	}
	gateway := &fakeGateway{
		searchByKeywords: func(required, optional []string) ([]ports.ProductRef, error) {
			return []ports.ProductRef{{Key: "bp-1", Name: "X200"}}, nil
		},
	}
	d := newTestDispatcher(t, oracle, gateway, nil)

	reply, err := d.Handle(context.Background(), "c1", textTurns("find me the X200"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.BaseKeys) != 1 || reply.BaseKeys[0] != "bp-1" {
		t.Fatalf("expected base key bp-1, got %v", reply.BaseKeys)
	}
}

func TestDispatcherReportsNotFoundAsMessageNotError(t *testing.T) {
	oracle := &fakeOracle{
		classify: func(latest string) (domain.Classification, error) {
			return domain.Classification{Label: domain.LabelDirectSearch}, nil
		},
		proposeQuery: func(tried []string, status domain.CandidateStatus) ([]string, error) {
			return nil, nil
		},
	}
	d := newTestDispatcher(t, oracle, &fakeGateway{}, nil)

	reply, err := d.Handle(context.Background(), "c1", textTurns("find the unfindable"))
	if err != nil {
		t.Fatalf("resolution exhaustion must not surface as an error: %v", err)
	}
	if reply.Message == "" || len(reply.BaseKeys) != 0 {
		t.Fatalf("expected an apologetic message with no keys, got %+v", reply)
	}
}

func TestDispatcherActiveSessionOverridesClassifier(t *testing.T) {
	classifications := 0
	oracle := &fakeOracle{
		classify: func(latest string) (domain.Classification, error) {
			classifications++
			return domain.Classification{Label: domain.LabelConversationalSearch}, nil
		},
	}
	d := newTestDispatcher(t, oracle, &fakeGateway{}, nil)

	if _, err := d.Handle(context.Background(), "c1", textTurns("help me pick a phone")); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if _, err := d.Handle(context.Background(), "c1", textTurns("under 500")); err != nil {
		t.Fatalf("second turn failed: %v", err)
	}
	if classifications != 1 {
		t.Fatalf("a live session must bypass classification, classifier ran %d times", classifications)
	}
}

func TestDispatcherFallsBackToAssistantForUncategorized(t *testing.T) {
	oracle := &fakeOracle{
		respond: func(system, latest string) (string, error) {
			return "I can help you shop.", nil
		},
	}
	d := newTestDispatcher(t, oracle, &fakeGateway{}, nil)

	reply, err := d.Handle(context.Background(), "c1", textTurns("tell me a joke"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Message != "I can help you shop." {
		t.Fatalf("expected the fallback answer, got %q", reply.Message)
	}
}

func TestDispatcherTreatsClassificationFailureAsUncategorized(t *testing.T) {
	oracle := &fakeOracle{
		classify: func(string) (domain.Classification, error) {
			return domain.Classification{}, errors.New("oracle transport down")
		},
		respond: func(system, latest string) (string, error) {
			return "Could you tell me more about the product?", nil
		},
	}
	d := newTestDispatcher(t, oracle, &fakeGateway{}, nil)

	reply, err := d.Handle(context.Background(), "c1", textTurns("find me a lamp"))
	if err != nil {
		t.Fatalf("classification failure must not surface as an error: %v", err)
	}
	if reply.Message != "Could you tell me more about the product?" {
		t.Fatalf("expected the clarification answer, got %q", reply.Message)
	}
}

func TestDispatcherAnswersStaticallyWhenOracleIsFullyDown(t *testing.T) {
	down := errors.New("oracle transport down")
	oracle := &fakeOracle{
		classify: func(string) (domain.Classification, error) {
			return domain.Classification{}, down
		},
		respond: func(system, latest string) (string, error) {
			return "", down
		},
	}
	d := newTestDispatcher(t, oracle, &fakeGateway{}, nil)

	reply, err := d.Handle(context.Background(), "c1", textTurns("find me a lamp"))
	if err != nil {
		t.Fatalf("oracle outage must not surface as an error: %v", err)
	}
	if reply.Message == "" {
		t.Fatal("expected a fallback clarification message")
	}
	if len(reply.BaseKeys) != 0 || len(reply.MemberKeys) != 0 {
		t.Fatalf("fallback reply must carry no keys, got %v / %v", reply.BaseKeys, reply.MemberKeys)
	}
}

func TestDispatcherRoutesImageTurnsToImageLookup(t *testing.T) {
	images := &fakeImages{matches: []ports.ImageMatch{{ProductKey: "bp-img", Name: "Mystery Lamp", Score: 0.97}}}
	d := newTestDispatcher(t, &fakeOracle{}, &fakeGateway{}, images)

	turns := []domain.Turn{
		{Role: "user", Kind: domain.TurnText, Content: "what is the key of this product?"},
		{Role: "user", Kind: domain.TurnImage, Content: "aGVsbG8="},
	}
	reply, err := d.Handle(context.Background(), "c1", turns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.BaseKeys) != 1 || reply.BaseKeys[0] != "bp-img" {
		t.Fatalf("expected the matched product key, got %v", reply.BaseKeys)
	}
}

func TestDispatcherImageLookupAnswersNameWhenAsked(t *testing.T) {
	images := &fakeImages{matches: []ports.ImageMatch{{ProductKey: "bp-img", Name: "Mystery Lamp", Score: 0.97}}}
	oracle := &fakeOracle{
		wantsName: func(question string) (bool, error) { return true, nil },
	}
	d := newTestDispatcher(t, oracle, &fakeGateway{}, images)

	turns := []domain.Turn{
		{Role: "user", Kind: domain.TurnText, Content: "what is this called?"},
		{Role: "user", Kind: domain.TurnImage, Content: "aGVsbG8="},
	}
	reply, err := d.Handle(context.Background(), "c1", turns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Message != "Mystery Lamp" {
		t.Fatalf("expected the product name, got %q", reply.Message)
	}
	if len(reply.BaseKeys) != 0 {
		t.Fatalf("a name answer must not carry keys, got %v", reply.BaseKeys)
	}
}

func TestDispatcherSellerInfoUsesProcedureResult(t *testing.T) {
	oracle := &fakeOracle{
		classify: func(latest string) (domain.Classification, error) {
			return domain.Classification{Label: domain.LabelSellerInfo, Hint: "X200"}, nil
		},
		generateProcedure: func(question string) (domain.Procedure, error) {
			return domain.Procedure{Op: "min", Field: "price"}, nil
		},
	}
	gateway := &fakeGateway{
		searchByKeywords: func(required, optional []string) ([]ports.ProductRef, error) {
			return []ports.ProductRef{{Key: "bp-1", Name: "X200"}}, nil
		},
		fetchByKey: func(key string) (*ports.Product, error) {
			return &ports.Product{Key: key, Name: "X200", MemberKeys: []string{"m1", "m2"}}, nil
		},
		fetchSellers: func(memberKeys []string) ([]domain.SellerOffer, error) {
			return []domain.SellerOffer{
				{MemberKey: "m1", Price: 900},
				{MemberKey: "m2", Price: 700},
			}, nil
		},
	}
	d := newTestDispatcher(t, oracle, gateway, nil)

	reply, err := d.Handle(context.Background(), "c1", textTurns("what is the lowest price of the X200?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Message != "700" {
		t.Fatalf("expected the aggregate 700, got %q", reply.Message)
	}
}
