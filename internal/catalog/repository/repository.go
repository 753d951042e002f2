// Package repository implements the catalog gateway against Postgres.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopchat_backend/internal/chat/domain"
	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/platform/apperr"
	"shopchat_backend/platform/logger"
)

const productNotFoundMessage = "product not found"

// defaultSearchCap bounds how many rows a keyword search returns. Anything
// past the cap only matters as a "too many" signal upstream, so there is no
// point shipping the full set.
const defaultSearchCap = 200

// aggregateSearchLimit bounds the filtered aggregate search.
const aggregateSearchLimit = 10

// Repo implements the catalog gateway.
type Repo struct {
	pool      *pgxpool.Pool
	log       *logger.Logger
	searchCap int
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool, log *logger.Logger) *Repo {
	return &Repo{pool: pool, log: log, searchCap: defaultSearchCap}
}

// fail records the database error and wraps it with the failing operation.
func (r *Repo) fail(op string, err error) error {
	r.log.DatabaseError(op, err)
	return fmt.Errorf("%s: %w", op, err)
}

// Compile-time check that Repo implements the chat gateway contract.
var _ ports.CatalogGateway = (*Repo)(nil)

// SearchByKeywords finds products whose name matches every required term,
// ordered by how many optional terms also match.
func (r *Repo) SearchByKeywords(ctx context.Context, required, optional []string) ([]ports.ProductRef, error) {
	var (
		conds []string
		args  []any
	)
	for _, term := range required {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		args = append(args, "%"+term+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(conds) == 0 {
		return nil, apperr.BadRequest("at least one search term is required")
	}

	rank := "0"
	var rankParts []string
	for _, term := range optional {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		args = append(args, "%"+term+"%")
		rankParts = append(rankParts, fmt.Sprintf("(CASE WHEN name ILIKE $%d THEN 1 ELSE 0 END)", len(args)))
	}
	if len(rankParts) > 0 {
		rank = strings.Join(rankParts, " + ")
	}

	args = append(args, r.searchCap)
	query := fmt.Sprintf(`
		SELECT random_key, name
		FROM base_products
		WHERE %s
		ORDER BY %s DESC, name
		LIMIT $%d`,
		strings.Join(conds, " AND "), rank, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, r.fail("search by keywords", err)
	}
	defer rows.Close()

	var refs []ports.ProductRef
	for rows.Next() {
		var ref ports.ProductRef
		if err := rows.Scan(&ref.Key, &ref.Name); err != nil {
			return nil, r.fail("search by keywords", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SearchByFilters returns products matching the free-text query that have at
// least one seller satisfying the structured filters, with those sellers
// aggregated per product.
func (r *Repo) SearchByFilters(ctx context.Context, filters domain.SearchFilters) ([]domain.CandidateProduct, error) {
	var (
		sellerConds []string
		args        []any
	)
	if filters.PriceMin != nil {
		args = append(args, *filters.PriceMin)
		sellerConds = append(sellerConds, fmt.Sprintf("m.price >= $%d", len(args)))
	}
	if filters.PriceMax != nil {
		args = append(args, *filters.PriceMax)
		sellerConds = append(sellerConds, fmt.Sprintf("m.price <= $%d", len(args)))
	}
	if filters.HasWarranty {
		sellerConds = append(sellerConds, "s.has_warranty = TRUE")
	}
	if filters.City != "" {
		args = append(args, filters.City)
		sellerConds = append(sellerConds, fmt.Sprintf("c.name = $%d", len(args)))
	}
	sellerWhere := "TRUE"
	if len(sellerConds) > 0 {
		sellerWhere = strings.Join(sellerConds, " AND ")
	}

	var productConds []string
	if q := strings.TrimSpace(filters.Query); q != "" {
		args = append(args, "%"+q+"%")
		productConds = append(productConds, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}
	for key, value := range filters.Features {
		args = append(args, key)
		keyArg := len(args)
		args = append(args, value)
		productConds = append(productConds, fmt.Sprintf("p.features->>$%d = $%d", keyArg, len(args)))
	}
	productWhere := "TRUE"
	if len(productConds) > 0 {
		productWhere = strings.Join(productConds, " AND ")
	}

	args = append(args, aggregateSearchLimit)
	query := fmt.Sprintf(`
		WITH filtered_sellers AS (
			SELECT m.base_random_key,
			       jsonb_build_object(
			           'member_key', m.random_key,
			           'price', m.price,
			           'city', c.name,
			           'shop_score', s.score,
			           'has_warranty', s.has_warranty
			       ) AS seller_data
			FROM members m
			JOIN shops s ON m.shop_id = s.id
			JOIN cities c ON s.city_id = c.id
			WHERE %s
		)
		SELECT p.random_key, p.name, COALESCE(p.features, '{}'::jsonb)::text,
		       jsonb_agg(fs.seller_data)::text
		FROM base_products p
		JOIN filtered_sellers fs ON p.random_key = fs.base_random_key
		WHERE %s
		GROUP BY p.random_key, p.name, p.features
		ORDER BY count(fs.seller_data) DESC
		LIMIT $%d`,
		sellerWhere, productWhere, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, r.fail("search by filters", err)
	}
	defer rows.Close()

	var products []domain.CandidateProduct
	for rows.Next() {
		var (
			prod        domain.CandidateProduct
			featuresRaw string
			sellersRaw  string
		)
		if err := rows.Scan(&prod.Key, &prod.Name, &featuresRaw, &sellersRaw); err != nil {
			return nil, r.fail("search by filters", err)
		}
		prod.Features = decodeFeatures(featuresRaw)
		if err := json.Unmarshal([]byte(sellersRaw), &prod.Sellers); err != nil {
			return nil, r.fail("search by filters: decode sellers", err)
		}
		products = append(products, prod)
	}
	return products, rows.Err()
}

// FetchByKey loads one product with its member keys.
func (r *Repo) FetchByKey(ctx context.Context, key string) (*ports.Product, error) {
	query := `
		SELECT p.random_key, p.name, COALESCE(p.features, '{}'::jsonb)::text,
		       COALESCE(
		           (SELECT array_agg(m.random_key) FROM members m WHERE m.base_random_key = p.random_key),
		           '{}'
		       )
		FROM base_products p
		WHERE p.random_key = $1`

	var (
		prod        ports.Product
		featuresRaw string
	)
	if err := r.pool.QueryRow(ctx, query, key).Scan(&prod.Key, &prod.Name, &featuresRaw, &prod.MemberKeys); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(productNotFoundMessage)
		}
		return nil, r.fail("fetch product", err)
	}
	prod.Features = decodeFeatures(featuresRaw)
	return &prod, nil
}

// FetchSellers loads seller listings for the given member keys.
func (r *Repo) FetchSellers(ctx context.Context, memberKeys []string) ([]domain.SellerOffer, error) {
	if len(memberKeys) == 0 {
		return nil, nil
	}

	query := `
		SELECT m.random_key, m.price, c.name, s.score, s.has_warranty
		FROM members m
		JOIN shops s ON m.shop_id = s.id
		JOIN cities c ON s.city_id = c.id
		WHERE m.random_key = ANY($1)`

	rows, err := r.pool.Query(ctx, query, memberKeys)
	if err != nil {
		return nil, r.fail("fetch sellers", err)
	}
	defer rows.Close()

	var sellers []domain.SellerOffer
	for rows.Next() {
		var s domain.SellerOffer
		if err := rows.Scan(&s.MemberKey, &s.Price, &s.City, &s.ShopScore, &s.HasWarranty); err != nil {
			return nil, r.fail("fetch sellers", err)
		}
		sellers = append(sellers, s)
	}
	return sellers, rows.Err()
}

// Categories lists all category titles.
func (r *Repo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT title FROM categories ORDER BY title`)
	if err != nil {
		return nil, r.fail("list categories", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, r.fail("list categories", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// CategoryFeatureExample returns the feature schema example for a category.
func (r *Repo) CategoryFeatureExample(ctx context.Context, category string) (string, error) {
	var example *string
	err := r.pool.QueryRow(ctx,
		`SELECT features_example::text FROM categories WHERE title = $1`, category,
	).Scan(&example)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", r.fail("category feature example", err)
	}
	if example == nil {
		return "", nil
	}
	return *example, nil
}

// decodeFeatures tolerates non-string feature values by flattening them to
// their JSON text.
func decodeFeatures(raw string) map[string]string {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return map[string]string{}
	}
	features := make(map[string]string, len(generic))
	for k, v := range generic {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			features[k] = s
			continue
		}
		features[k] = string(v)
	}
	return features
}
