package agent

import (
	"context"
	"testing"

	"shopchat_backend/internal/chat/domain"
)

func narrowingProducts() []domain.CandidateProduct {
	return []domain.CandidateProduct{
		{
			Key:  "bp-a",
			Name: "Phone A",
			Sellers: []domain.SellerOffer{
				{MemberKey: "m-a1", Price: 800, City: "Tehran", ShopScore: 4.2, HasWarranty: true},
				{MemberKey: "m-a2", Price: 650, City: "Shiraz", ShopScore: 3.9, HasWarranty: false},
			},
		},
		{
			Key:  "bp-b",
			Name: "Phone B",
			Sellers: []domain.SellerOffer{
				{MemberKey: "m-b1", Price: 500, City: "Tehran", ShopScore: 4.0, HasWarranty: false},
			},
		},
	}
}

func TestConversationWalksGreetSearchPresentSelectToCompletion(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	gateway := &fakeGateway{
		categories: []string{"phone"},
		searchByFilters: func(domain.SearchFilters) ([]domain.CandidateProduct, error) {
			return narrowingProducts(), nil
		},
	}
	oracle := &fakeOracle{
		selectOption: func(reply string, options []domain.CandidateProduct) (string, error) {
			return "bp-a", nil
		},
		extractSellerCriteria: func(reply string) (domain.SellerCriteria, error) {
			return domain.SellerCriteria{City: "Tehran"}, nil
		},
	}
	conv := NewConversation(gateway, oracle, store, testLogger(), 5, 9)

	if _, err := conv.Handle(ctx, "chat-1", "I am looking for a phone"); err != nil {
		t.Fatalf("greet turn failed: %v", err)
	}
	if !conv.Active(ctx, "chat-1") {
		t.Fatal("expected an active session after the greeting")
	}

	if _, err := conv.Handle(ctx, "chat-1", "something around 800"); err != nil {
		t.Fatalf("search turn failed: %v", err)
	}

	if _, err := conv.Handle(ctx, "chat-1", "the first one"); err != nil {
		t.Fatalf("option turn failed: %v", err)
	}

	reply, err := conv.Handle(ctx, "chat-1", "a seller in Tehran please")
	if err != nil {
		t.Fatalf("seller turn failed: %v", err)
	}
	if len(reply.MemberKeys) != 1 || reply.MemberKeys[0] != "m-a1" {
		t.Fatalf("expected member key m-a1, got %v", reply.MemberKeys)
	}
	if conv.Active(ctx, "chat-1") {
		t.Fatal("expected the session to be removed after completion")
	}
}

func TestConversationSingleSellerProductSkipsSellerSelection(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	gateway := &fakeGateway{
		searchByFilters: func(domain.SearchFilters) ([]domain.CandidateProduct, error) {
			return narrowingProducts(), nil
		},
	}
	oracle := &fakeOracle{
		selectOption: func(reply string, options []domain.CandidateProduct) (string, error) {
			return "bp-b", nil
		},
	}
	conv := NewConversation(gateway, oracle, store, testLogger(), 5, 9)

	if _, err := conv.Handle(ctx, "chat-2", "help me find a phone"); err != nil {
		t.Fatalf("greet turn failed: %v", err)
	}
	if _, err := conv.Handle(ctx, "chat-2", "cheap one"); err != nil {
		t.Fatalf("search turn failed: %v", err)
	}

	reply, err := conv.Handle(ctx, "chat-2", "phone B")
	if err != nil {
		t.Fatalf("option turn failed: %v", err)
	}
	if len(reply.MemberKeys) != 1 || reply.MemberKeys[0] != "m-b1" {
		t.Fatalf("expected the only seller m-b1, got %v", reply.MemberKeys)
	}
	if conv.Active(ctx, "chat-2") {
		t.Fatal("expected a terminal session to be deleted")
	}
}

func TestConversationAsksToNarrowWhenTooManyProductsMatch(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	many := make([]domain.CandidateProduct, 8)
	for i := range many {
		many[i] = domain.CandidateProduct{Key: "bp", Name: "p"}
	}
	gateway := &fakeGateway{
		searchByFilters: func(domain.SearchFilters) ([]domain.CandidateProduct, error) {
			return many, nil
		},
	}
	conv := NewConversation(gateway, &fakeOracle{}, store, testLogger(), 5, 9)

	if _, err := conv.Handle(ctx, "chat-3", "I want a phone"); err != nil {
		t.Fatalf("greet turn failed: %v", err)
	}
	reply, err := conv.Handle(ctx, "chat-3", "any phone")
	if err != nil {
		t.Fatalf("search turn failed: %v", err)
	}
	if len(reply.BaseKeys) != 0 || len(reply.MemberKeys) != 0 {
		t.Fatalf("a narrowing question must carry no keys, got %v / %v", reply.BaseKeys, reply.MemberKeys)
	}
	if !conv.Active(ctx, "chat-3") {
		t.Fatal("session must stay alive while narrowing")
	}
}

func TestConversationRecoversFromEmptySearchWithBroaderQuery(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	calls := 0
	gateway := &fakeGateway{
		searchByFilters: func(filters domain.SearchFilters) ([]domain.CandidateProduct, error) {
			calls++
			if filters.Query == "broader" {
				return narrowingProducts(), nil
			}
			return nil, nil
		},
	}
	oracle := &fakeOracle{
		recoveryQuery: func(failed string) (string, error) {
			return "broader", nil
		},
	}
	conv := NewConversation(gateway, oracle, store, testLogger(), 5, 9)

	if _, err := conv.Handle(ctx, "chat-4", "looking for a phone"); err != nil {
		t.Fatalf("greet turn failed: %v", err)
	}
	if _, err := conv.Handle(ctx, "chat-4", "a very obscure model"); err != nil {
		t.Fatalf("search turn failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected the original and one recovery search, got %d", calls)
	}

	sess, err := store.Get(ctx, "chat-4")
	if err != nil || sess == nil {
		t.Fatalf("expected a live session, err=%v", err)
	}
	if sess.State != domain.StatePresentOptions {
		t.Fatalf("expected PRESENT_OPTIONS after recovery, got %s", sess.State)
	}
}

func TestConversationEscalatesPastTurnCap(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	conv := NewConversation(&fakeGateway{}, &fakeOracle{}, store, testLogger(), 5, 1)

	if _, err := conv.Handle(ctx, "chat-5", "hello"); err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	reply, err := conv.Handle(ctx, "chat-5", "still browsing")
	if err != nil {
		t.Fatalf("escalation turn failed: %v", err)
	}
	if reply.Message == "" {
		t.Fatal("escalation must answer with something")
	}
	if conv.Active(ctx, "chat-5") {
		t.Fatal("expected the session to be closed by escalation")
	}
}

func TestConversationAbandonMarksSessionAbandoned(t *testing.T) {
	conv := NewConversation(&fakeGateway{}, &fakeOracle{}, testStore(t), testLogger(), 5, 1)

	sess := domain.NewSession()
	sess.AppendTurn("user", "hello")
	sess.AppendTurn("user", "still browsing")

	reply := conv.abandon(sess)
	if reply.Message == "" {
		t.Fatal("abandoning must still answer with something")
	}
	if sess.State != domain.StateAbandoned {
		t.Fatalf("expected state %q, got %q", domain.StateAbandoned, sess.State)
	}
}

func TestConversationEscalationPicksDefaultSellerOfSelectedProduct(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	conv := NewConversation(&fakeGateway{}, &fakeOracle{}, store, testLogger(), 5, 2)

	products := narrowingProducts()
	sess := domain.NewSession()
	sess.State = domain.StateSelectSeller
	sess.Candidates = products
	sess.Selected = &products[0]
	sess.AppendTurn("user", "one")
	sess.AppendTurn("user", "two")
	if err := store.Put(ctx, "chat-6", sess); err != nil {
		t.Fatalf("seeding session failed: %v", err)
	}

	reply, err := conv.Handle(ctx, "chat-6", "hmm let me think")
	if err != nil {
		t.Fatalf("escalation turn failed: %v", err)
	}
	// Default criteria pick the cheapest listing of the selected product.
	if len(reply.MemberKeys) != 1 || reply.MemberKeys[0] != "m-a2" {
		t.Fatalf("expected m-a2, got %v", reply.MemberKeys)
	}
}
