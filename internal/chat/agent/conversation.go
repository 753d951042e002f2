package agent

import (
	"context"
	"fmt"
	"strings"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/internal/chat/session"
	"shopchat_backend/platform/logger"
)

// Conversation drives multi-turn narrowing: greet, extract filters and
// search, present options, select a seller. Session state lives in the store
// under the conversation id; a terminal step deletes it, so session presence
// doubles as the "mid-resolution" flag the dispatcher checks.
type Conversation struct {
	gateway     ports.CatalogGateway
	oracle      ports.Oracle
	store       *session.Store
	log         *logger.Logger
	narrowLimit int
	turnCap     int
}

// NewConversation wires the narrowing state machine.
func NewConversation(gateway ports.CatalogGateway, oracle ports.Oracle, store *session.Store, log *logger.Logger, narrowLimit, turnCap int) *Conversation {
	if narrowLimit < 1 {
		narrowLimit = 1
	}
	if turnCap < 1 {
		turnCap = 1
	}
	return &Conversation{
		gateway:     gateway,
		oracle:      oracle,
		store:       store,
		log:         log,
		narrowLimit: narrowLimit,
		turnCap:     turnCap,
	}
}

// Active reports whether a narrowing session exists for the conversation.
func (c *Conversation) Active(ctx context.Context, chatID string) bool {
	exists, err := c.store.Exists(ctx, chatID)
	if err != nil {
		c.log.Warn("session lookup failed", "error", err)
		return false
	}
	return exists
}

// Handle advances the state machine by one user message and persists or
// clears the session accordingly.
func (c *Conversation) Handle(ctx context.Context, chatID, message string) (domain.Reply, error) {
	sess, err := c.store.Get(ctx, chatID)
	if err != nil {
		return domain.Reply{}, err
	}
	if sess == nil {
		sess = domain.NewSession()
	}
	sess.AppendTurn("user", message)

	var reply domain.Reply
	if userTurns(sess) > c.turnCap {
		reply = c.abandon(sess)
	} else {
		reply, err = c.step(ctx, sess, message)
		if err != nil {
			return domain.Reply{}, err
		}
	}

	if sess.State == domain.StateDone || sess.State == domain.StateAbandoned {
		if err := c.store.Delete(ctx, chatID); err != nil {
			c.log.Warn("session delete failed", "chat_id", chatID, "error", err)
		}
		return reply, nil
	}

	sess.AppendTurn("assistant", reply.Message)
	if err := c.store.Put(ctx, chatID, sess); err != nil {
		return domain.Reply{}, err
	}
	return reply, nil
}

func (c *Conversation) step(ctx context.Context, sess *domain.Session, message string) (domain.Reply, error) {
	switch sess.State {
	case domain.StateGreet:
		return c.greet(ctx, sess, message)
	case domain.StateExtractAndSearch:
		return c.extractAndSearch(ctx, sess)
	case domain.StatePresentOptions:
		return c.presentOptions(ctx, sess, message)
	case domain.StateSelectSeller:
		return c.selectSeller(ctx, sess, message)
	default:
		// A session should never persist in a terminal state; recover by
		// restarting the narrowing.
		sess.State = domain.StateGreet
		return c.greet(ctx, sess, message)
	}
}

// greet acknowledges the request, snapshots the category's feature schema
// when one can be matched, and asks the first narrowing question.
func (c *Conversation) greet(ctx context.Context, sess *domain.Session, message string) (domain.Reply, error) {
	if category := c.matchCategory(ctx, message); category != "" {
		schema, err := c.gateway.CategoryFeatureExample(ctx, category)
		if err != nil {
			c.log.Warn("feature schema lookup failed", "category", category, "error", err)
		} else {
			sess.FeatureSchema = schema
		}
	}

	prompt := "You are helping a shopper find a product on an online marketplace. " +
		"Greet briefly in the shopper's language and ask one concrete question about what they are looking for " +
		"(kind of product, budget, must-have features). One short paragraph."
	text, err := c.oracle.Respond(ctx, prompt, sess.Turns, "")
	if err != nil {
		return domain.Reply{}, err
	}
	sess.State = domain.StateExtractAndSearch
	return domain.MessageReply(text), nil
}

// extractAndSearch turns the accumulated conversation into filters, runs the
// aggregate search and branches on cardinality.
func (c *Conversation) extractAndSearch(ctx context.Context, sess *domain.Session) (domain.Reply, error) {
	filters, err := c.oracle.ExtractFilters(ctx, sess.Turns, sess.FeatureSchema)
	if err != nil {
		return domain.Reply{}, err
	}
	sess.Filters = &filters

	products, err := c.gateway.SearchByFilters(ctx, filters)
	if err != nil {
		return domain.Reply{}, err
	}

	if len(products) == 0 {
		return c.recoverFromEmpty(ctx, sess, filters)
	}
	if len(products) > c.narrowLimit {
		prompt := fmt.Sprintf("The running product search matched %d products, too many to list. "+
			"Ask the shopper, in their language, one short question about a concrete attribute "+
			"(budget, brand, a key feature) that would narrow the search the most.", len(products))
		text, err := c.oracle.Respond(ctx, prompt, sess.Turns, "")
		if err != nil {
			return domain.Reply{}, err
		}
		return domain.MessageReply(text), nil
	}

	sess.Candidates = products
	text, err := c.oracle.SummarizeOptions(ctx, sess.Turns, products)
	if err != nil {
		return domain.Reply{}, err
	}
	sess.State = domain.StatePresentOptions
	return domain.MessageReply(text), nil
}

// recoverFromEmpty tries one oracle-suggested broader query before admitting
// defeat and asking the shopper to adjust.
func (c *Conversation) recoverFromEmpty(ctx context.Context, sess *domain.Session, filters domain.SearchFilters) (domain.Reply, error) {
	recovery, err := c.oracle.RecoveryQuery(ctx, sess.Turns, filters.Query)
	if err != nil {
		c.log.Warn("recovery query failed", "error", err)
		recovery = ""
	}
	if recovery != "" {
		retry := filters
		retry.Query = recovery
		retry.Features = nil
		products, err := c.gateway.SearchByFilters(ctx, retry)
		if err != nil {
			return domain.Reply{}, err
		}
		if n := len(products); n > 0 && n <= c.narrowLimit {
			sess.Candidates = products
			text, err := c.oracle.SummarizeOptions(ctx, sess.Turns, products)
			if err != nil {
				return domain.Reply{}, err
			}
			sess.State = domain.StatePresentOptions
			return domain.MessageReply(text), nil
		}
	}

	prompt := "The product search found nothing for what the shopper described. " +
		"Say so briefly in their language and ask them to loosen one requirement or describe the product differently."
	text, err := c.oracle.Respond(ctx, prompt, sess.Turns, "")
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.MessageReply(text), nil
}

// presentOptions maps the reply onto one presented candidate and moves on to
// seller selection.
func (c *Conversation) presentOptions(ctx context.Context, sess *domain.Session, message string) (domain.Reply, error) {
	key, err := c.oracle.SelectOption(ctx, message, sess.Candidates)
	if err != nil {
		return domain.Reply{}, err
	}
	if key == "" {
		// The reply may add new constraints instead of picking; fold it back
		// into the search.
		return c.extractAndSearch(ctx, sess)
	}

	for i := range sess.Candidates {
		if sess.Candidates[i].Key == key {
			sess.Selected = &sess.Candidates[i]
			break
		}
	}
	if sess.Selected == nil {
		return c.extractAndSearch(ctx, sess)
	}

	if len(sess.Selected.Sellers) == 1 {
		// Nothing to choose between.
		sess.State = domain.StateDone
		return domain.SellerReply(
			fmt.Sprintf("%s has one seller listing.", sess.Selected.Name),
			sess.Selected.Sellers[0].MemberKey,
		), nil
	}

	prompt := fmt.Sprintf("The shopper picked %q, which has %d seller listings differing in price, city, "+
		"shop score and warranty. Ask, in their language, one short question about what matters most in a seller.",
		sess.Selected.Name, len(sess.Selected.Sellers))
	text, err := c.oracle.Respond(ctx, prompt, sess.Turns, "")
	if err != nil {
		return domain.Reply{}, err
	}
	sess.State = domain.StateSelectSeller
	return domain.MessageReply(text), nil
}

// selectSeller applies the stated criteria deterministically, falling back to
// oracle interpretation when the hard filters eliminate everything.
func (c *Conversation) selectSeller(ctx context.Context, sess *domain.Session, message string) (domain.Reply, error) {
	if sess.Selected == nil {
		return c.extractAndSearch(ctx, sess)
	}
	criteria, err := c.oracle.ExtractSellerCriteria(ctx, message)
	if err != nil {
		return domain.Reply{}, err
	}

	if offer, ok := SelectSeller(sess.Selected.Sellers, criteria); ok {
		sess.State = domain.StateDone
		return domain.SellerReply(sellerFoundMessage(sess.Selected.Name, offer), offer.MemberKey), nil
	}

	key, err := c.oracle.InterpretSellerChoice(ctx, message, sess.Selected.Sellers)
	if err != nil {
		c.log.Warn("seller choice interpretation failed", "error", err)
		key = ""
	}
	if key != "" {
		sess.State = domain.StateDone
		for _, offer := range sess.Selected.Sellers {
			if offer.MemberKey == key {
				return domain.SellerReply(sellerFoundMessage(sess.Selected.Name, offer), key), nil
			}
		}
		return domain.SellerReply("Found a seller listing for you.", key), nil
	}

	prompt := "No seller listing of the chosen product satisfies everything the shopper asked for. " +
		"Say so briefly in their language and ask which requirement they would relax."
	text, err := c.oracle.Respond(ctx, prompt, sess.Turns, "")
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.MessageReply(text), nil
}

// abandon closes an over-long conversation: best-effort answer, then the
// terminal ABANDONED state so the session gets dropped.
func (c *Conversation) abandon(sess *domain.Session) domain.Reply {
	reply := c.escalate(sess)
	sess.State = domain.StateAbandoned
	return reply
}

// escalate produces the best answer the collected state supports.
func (c *Conversation) escalate(sess *domain.Session) domain.Reply {
	if sess.Selected != nil {
		if offer, ok := SelectSeller(sess.Selected.Sellers, domain.SellerCriteria{}); ok {
			return domain.SellerReply(sellerFoundMessage(sess.Selected.Name, offer), offer.MemberKey)
		}
		return domain.ProductReply("Going with this product.", sess.Selected.Key)
	}
	if len(sess.Candidates) > 0 {
		best := sess.Candidates[0]
		if offer, ok := SelectSeller(best.Sellers, domain.SellerCriteria{}); ok {
			return domain.SellerReply(sellerFoundMessage(best.Name, offer), offer.MemberKey)
		}
		return domain.ProductReply("Based on our conversation this is the closest match.", best.Key)
	}
	return domain.MessageReply("I could not narrow this down to a product. Please start over with a more specific description.")
}

// matchCategory finds a catalog category mentioned in the message, if any.
func (c *Conversation) matchCategory(ctx context.Context, message string) string {
	categories, err := c.gateway.Categories(ctx)
	if err != nil {
		c.log.Warn("category listing failed", "error", err)
		return ""
	}
	lowered := strings.ToLower(message)
	for _, category := range categories {
		if category != "" && strings.Contains(lowered, strings.ToLower(category)) {
			return category
		}
	}
	return ""
}

func sellerFoundMessage(productName string, offer domain.SellerOffer) string {
	return fmt.Sprintf("Found a seller for %s: %d from %s (score %.1f).",
		productName, offer.Price, offer.City, offer.ShopScore)
}

func userTurns(sess *domain.Session) int {
	n := 0
	for _, turn := range sess.Turns {
		if turn.Role == "user" {
			n++
		}
	}
	return n
}
