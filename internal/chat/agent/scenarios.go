package agent

import (
	"context"
	"fmt"
	"strings"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/platform/logger"
)

const productNotFoundReply = "I could not find that product in the catalog. Could you describe it more precisely?"

// scenarios holds the single-shot handlers that run after a product key has
// been resolved, plus image lookup which resolves through the vector index
// instead of the refinement loop.
type scenarios struct {
	gateway ports.CatalogGateway
	oracle  ports.Oracle
	images  ports.ImageSearcher
	log     *logger.Logger
}

// directSearch is the terminal step of a plain product lookup.
func (s *scenarios) directSearch(product *ports.Product) domain.Reply {
	return domain.ProductReply(fmt.Sprintf("Found it: %s.", product.Name), product.Key)
}

// featureQuestion answers a question about one resolved product from its
// stored feature map.
func (s *scenarios) featureQuestion(ctx context.Context, question string, product *ports.Product) (domain.Reply, error) {
	answer, err := s.oracle.AnswerFeatureQuestion(ctx, question, product.Name, product.Features)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.MessageReply(answer), nil
}

// sellerQuestion answers a seller question about one resolved product. The
// preferred path is a whitelisted aggregate over the listings; when the
// oracle cannot produce one, the raw listings go back to it as plain context.
func (s *scenarios) sellerQuestion(ctx context.Context, question string, product *ports.Product) (domain.Reply, error) {
	sellers, err := s.gateway.FetchSellers(ctx, product.MemberKeys)
	if err != nil {
		return domain.Reply{}, err
	}
	if len(sellers) == 0 {
		return domain.MessageReply(fmt.Sprintf("%s has no seller listings right now.", product.Name)), nil
	}

	proc, err := s.oracle.GenerateProcedure(ctx, question)
	if err == nil {
		if value, runErr := RunProcedure(proc, sellers); runErr == nil {
			return domain.MessageReply(FormatProcedureResult(proc, value)), nil
		} else {
			s.log.Warn("seller analysis fell back to free text", "error", runErr)
		}
	} else {
		s.log.Warn("seller analysis fell back to free text", "error", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Seller listings of %s:\n", product.Name)
	for _, offer := range sellers {
		fmt.Fprintf(&b, "- price=%d city=%s score=%.2f warranty=%t\n",
			offer.Price, offer.City, offer.ShopScore, offer.HasWarranty)
	}
	prompt := "Answer the shopper's question using only the seller listings provided. " +
		"Reply with the bare value when the question asks for a number."
	answer, err := s.oracle.Respond(ctx, prompt, nil, b.String()+"\nQuestion: "+question)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.MessageReply(answer), nil
}

// imageLookup resolves an uploaded image to a product and answers with its
// key or, when asked, its name.
func (s *scenarios) imageLookup(ctx context.Context, question, imageBase64 string) (domain.Reply, error) {
	if s.images == nil {
		return domain.MessageReply("Image lookup is not available right now."), nil
	}
	matches, err := s.images.SearchByImage(ctx, imageBase64, 1)
	if err != nil {
		return domain.Reply{}, err
	}
	if len(matches) == 0 {
		return domain.MessageReply("I could not match that image to any product."), nil
	}
	best := matches[0]

	wantsName, err := s.oracle.WantsProductName(ctx, question)
	if err != nil {
		s.log.Warn("image intent check failed, defaulting to key", "error", err)
		wantsName = false
	}
	if wantsName {
		return domain.MessageReply(best.Name), nil
	}
	return domain.ProductReply("", best.ProductKey), nil
}
