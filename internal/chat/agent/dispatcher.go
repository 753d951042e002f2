package agent

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/internal/chat/session"
	"shopchat_backend/platform/apperr"
	"shopchat_backend/platform/logger"
)

// Sanity-check commands the platform's health probes send through the chat
// endpoint. They bypass classification entirely.
const (
	pingCommand         = "ping"
	echoBasePrefix      = "return base random key:"
	echoMemberPrefix    = "return member random key:"
	lockStripes         = 64
	uncategorizedPrompt = "" // Respond falls back to its default assistant prompt
)

const clarificationReply = "I did not quite catch what you are looking for. Could you describe the product or question in a bit more detail?"

// Dispatcher is the entry point of the pipeline: it serializes turns per
// conversation, classifies the latest message and routes it to exactly one
// scenario path.
type Dispatcher struct {
	oracle       ports.Oracle
	gateway      ports.CatalogGateway
	resolver     *Resolver
	conversation *Conversation
	comparison   *Comparison
	scenarios    *scenarios
	store        *session.Store
	log          *logger.Logger
	timeout      time.Duration
	locks        [lockStripes]sync.Mutex
}

// NewDispatcher wires the full pipeline.
func NewDispatcher(
	oracle ports.Oracle,
	gateway ports.CatalogGateway,
	images ports.ImageSearcher,
	store *session.Store,
	log *logger.Logger,
	attemptBudget, maxCandidates, narrowLimit, turnCap int,
	timeout time.Duration,
) *Dispatcher {
	resolver := NewResolver(gateway, oracle, log, attemptBudget, maxCandidates)
	return &Dispatcher{
		oracle:       oracle,
		gateway:      gateway,
		resolver:     resolver,
		conversation: NewConversation(gateway, oracle, store, log, narrowLimit, turnCap),
		comparison:   NewComparison(gateway, oracle, resolver, log),
		scenarios:    &scenarios{gateway: gateway, oracle: oracle, images: images, log: log},
		store:        store,
		log:          log,
		timeout:      timeout,
	}
}

// Handle processes one chat request. turns is the full conversation as the
// client sent it, latest last. Turns of the same conversation never
// interleave; a second request for the same chat id waits for the first.
func (d *Dispatcher) Handle(ctx context.Context, chatID string, turns []domain.Turn) (domain.Reply, error) {
	if len(turns) == 0 {
		return domain.Reply{}, apperr.BadRequest("empty message list")
	}

	lock := &d.locks[stripeFor(chatID)]
	lock.Lock()
	defer lock.Unlock()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, logger.ChatIDKey, chatID)

	reply, err := d.route(ctx, chatID, turns)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// Out of time mid-pipeline. Answer something rather than erroring.
		d.log.WithContext(ctx).Warn("request deadline exceeded", "error", err)
		return domain.MessageReply(productNotFoundReply), nil
	}
	return reply, err
}

func (d *Dispatcher) route(ctx context.Context, chatID string, turns []domain.Turn) (domain.Reply, error) {
	message, image := splitLatest(turns)

	if reply, ok := sanityReply(message); ok {
		return reply, nil
	}
	if image != "" {
		return d.scenarios.imageLookup(ctx, message, image)
	}

	// A live narrowing session owns the conversation regardless of what the
	// classifier would say about the message in isolation.
	if d.conversation.Active(ctx, chatID) {
		return d.conversation.Handle(ctx, chatID, message)
	}

	history := turns[:len(turns)-1]
	cls, err := d.oracle.Classify(ctx, message, history)
	if err != nil {
		// Classification failure is soft: treat the message as uncategorized
		// and keep answering rather than surfacing an error to the client.
		d.log.WithContext(ctx).Warn("classification failed", "error", err)
		cls = domain.Classification{Label: domain.LabelUncategorized}
	}
	d.log.WithContext(ctx).Info("classified request", "label", string(cls.Label), "hint", cls.Hint)

	if cls.Label.RequiresResolution() {
		return d.handleResolved(ctx, cls, message)
	}

	switch cls.Label {
	case domain.LabelConversationalSearch:
		return d.conversation.Handle(ctx, chatID, message)
	case domain.LabelComparison:
		return d.comparison.Compare(ctx, message)
	case domain.LabelImageLookup:
		return domain.MessageReply("Please attach the image you want me to look up."), nil
	default:
		text, err := d.oracle.Respond(ctx, uncategorizedPrompt, history, message)
		if err != nil || strings.TrimSpace(text) == "" {
			// Even with the oracle fully down the endpoint still answers.
			return domain.MessageReply(clarificationReply), nil
		}
		return domain.MessageReply(text), nil
	}
}

// handleResolved runs the refinement loop once and fans out to the scenario
// handler that needs the resolved product.
func (d *Dispatcher) handleResolved(ctx context.Context, cls domain.Classification, message string) (domain.Reply, error) {
	key, err := d.resolver.Resolve(ctx, message, cls.Hint)
	if err != nil {
		if errors.Is(err, domain.ErrUnresolved) {
			return domain.MessageReply(productNotFoundReply), nil
		}
		return domain.Reply{}, err
	}

	product, err := d.gateway.FetchByKey(ctx, key)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind == apperr.KindNotFound {
			// The oracle picked a key the catalog no longer has.
			return domain.MessageReply(productNotFoundReply), nil
		}
		return domain.Reply{}, err
	}

	switch cls.Label {
	case domain.LabelFeatureExtraction:
		return d.scenarios.featureQuestion(ctx, message, product)
	case domain.LabelSellerInfo:
		return d.scenarios.sellerQuestion(ctx, message, product)
	default:
		return d.scenarios.directSearch(product), nil
	}
}

// splitLatest returns the text of the latest user message plus the most
// recent image payload, when the request carries one.
func splitLatest(turns []domain.Turn) (message, image string) {
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		if turn.Role != "user" {
			continue
		}
		if turn.Kind == domain.TurnImage && image == "" {
			image = turn.Content
			continue
		}
		if message == "" {
			message = turn.Content
		}
		if message != "" && image != "" {
			break
		}
	}
	// An image-only request still needs an intent question downstream.
	if message == "" && image != "" {
		message = "What product is this?"
	}
	return message, image
}

// sanityReply short-circuits the deployment probes.
func sanityReply(message string) (domain.Reply, bool) {
	trimmed := strings.TrimSpace(message)
	if strings.EqualFold(trimmed, pingCommand) {
		return domain.MessageReply("pong"), true
	}
	lowered := strings.ToLower(trimmed)
	if strings.HasPrefix(lowered, echoBasePrefix) {
		key := strings.TrimSpace(trimmed[len(echoBasePrefix):])
		return domain.ProductReply("", key), true
	}
	if strings.HasPrefix(lowered, echoMemberPrefix) {
		key := strings.TrimSpace(trimmed[len(echoMemberPrefix):])
		return domain.SellerReply("", key), true
	}
	return domain.Reply{}, false
}

func stripeFor(chatID string) int {
	h := fnv.New32a()
	h.Write([]byte(chatID))
	return int(h.Sum32() % lockStripes)
}
