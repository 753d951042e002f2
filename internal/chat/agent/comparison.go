package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/platform/logger"
)

// Comparison resolves both sides of a two-product comparison concurrently,
// enriches each side with a seller analysis, and has the oracle adjudicate.
// Either resolution failing cancels the other in-flight work.
type Comparison struct {
	gateway  ports.CatalogGateway
	oracle   ports.Oracle
	resolver *Resolver
	log      *logger.Logger
}

// NewComparison wires the comparison orchestrator.
func NewComparison(gateway ports.CatalogGateway, oracle ports.Oracle, resolver *Resolver, log *logger.Logger) *Comparison {
	return &Comparison{gateway: gateway, oracle: oracle, resolver: resolver, log: log}
}

// comparisonSide is one fully compiled product of the comparison.
type comparisonSide struct {
	key     string
	details string
	sellers []domain.SellerOffer
}

// Compare handles one comparison request end to end.
func (c *Comparison) Compare(ctx context.Context, message string) (domain.Reply, error) {
	first, second, err := c.oracle.SplitComparison(ctx, message)
	if err != nil {
		return domain.Reply{}, err
	}

	var (
		sideA, sideB comparisonSide
		proc         *domain.Procedure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		side, err := c.compileSide(gctx, first)
		if err != nil {
			return err
		}
		sideA = side
		return nil
	})
	g.Go(func() error {
		side, err := c.compileSide(gctx, second)
		if err != nil {
			return err
		}
		sideB = side
		return nil
	})
	g.Go(func() error {
		// The analysis is enrichment; a rejected procedure degrades the
		// comparison instead of failing it.
		p, err := c.oracle.GenerateProcedure(gctx, message)
		if err != nil {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			c.log.Warn("comparison analysis skipped", "error", err)
			return nil
		}
		proc = &p
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrUnresolved) {
			return domain.MessageReply("I could not identify both products to compare. Please name them more precisely."), nil
		}
		return domain.Reply{}, err
	}

	if proc != nil {
		sideA.details += analysisLine(*proc, sideA.sellers)
		sideB.details += analysisLine(*proc, sideB.sellers)
	}

	verdict, err := c.oracle.Adjudicate(ctx, message, sideA.details, sideB.details)
	if err != nil {
		return domain.Reply{}, err
	}

	// The winner must map back onto one of the two resolved keys; anything
	// else ships as text without a key.
	switch verdict.WinnerKey {
	case sideA.key, sideB.key:
		return domain.ProductReply(verdict.Rationale, verdict.WinnerKey), nil
	default:
		c.log.Warn("comparison verdict named no resolved key", "winner", verdict.WinnerKey)
		if verdict.Rationale != "" {
			return domain.MessageReply(verdict.Rationale), nil
		}
		return domain.MessageReply("I could not pick a clear winner between the two."), nil
	}
}

// compileSide resolves one product mention and flattens everything the
// adjudicator may use into a detail block.
func (c *Comparison) compileSide(ctx context.Context, mention string) (comparisonSide, error) {
	key, err := c.resolver.Resolve(ctx, mention, mention)
	if err != nil {
		return comparisonSide{}, err
	}
	product, err := c.gateway.FetchByKey(ctx, key)
	if err != nil {
		return comparisonSide{}, err
	}
	sellers, err := c.gateway.FetchSellers(ctx, product.MemberKeys)
	if err != nil {
		return comparisonSide{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "random key: %s\nname: %s\n", product.Key, product.Name)
	for k, v := range product.Features {
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	if lo, hi, ok := priceBounds(sellers); ok {
		fmt.Fprintf(&b, "sellers: %d, price range %d to %d\n", len(sellers), lo, hi)
	} else {
		b.WriteString("sellers: none listed\n")
	}
	return comparisonSide{key: product.Key, details: b.String(), sellers: sellers}, nil
}

func analysisLine(proc domain.Procedure, sellers []domain.SellerOffer) string {
	value, err := RunProcedure(proc, sellers)
	if err != nil {
		return ""
	}
	field := proc.Field
	if proc.Op == "count" {
		field = "listings"
	}
	return fmt.Sprintf("analysis %s(%s): %s\n", proc.Op, field, FormatProcedureResult(proc, value))
}

func priceBounds(sellers []domain.SellerOffer) (int64, int64, bool) {
	if len(sellers) == 0 {
		return 0, 0, false
	}
	lo, hi := sellers[0].Price, sellers[0].Price
	for _, s := range sellers[1:] {
		if s.Price < lo {
			lo = s.Price
		}
		if s.Price > hi {
			hi = s.Price
		}
	}
	return lo, hi, true
}
