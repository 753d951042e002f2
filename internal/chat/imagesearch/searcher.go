// Package imagesearch resolves uploaded product photos against the catalog's
// vector index: embed the image, then nearest-neighbor over product vectors.
package imagesearch

import (
	"context"
	"fmt"

	"shopchat_backend/internal/chat/ports"
	"shopchat_backend/platform/ai/imageembed"
	"shopchat_backend/platform/qdrant"
)

// Searcher implements ports.ImageSearcher.
type Searcher struct {
	embedder *imageembed.Client
	vectors  *qdrant.Client
}

// New wires the embedding client to the vector index.
func New(embedder *imageembed.Client, vectors *qdrant.Client) *Searcher {
	return &Searcher{embedder: embedder, vectors: vectors}
}

var _ ports.ImageSearcher = (*Searcher)(nil)

// SearchByImage embeds the image and returns the closest catalog products,
// best first.
func (s *Searcher) SearchByImage(ctx context.Context, base64Image string, limit int) ([]ports.ImageMatch, error) {
	vector, err := s.embedder.Embed(ctx, base64Image)
	if err != nil {
		return nil, fmt.Errorf("image embedding: %w", err)
	}

	results, err := s.vectors.Search(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	matches := make([]ports.ImageMatch, 0, len(results))
	for _, res := range results {
		key := res.PayloadString("random_key")
		if key == "" {
			continue
		}
		matches = append(matches, ports.ImageMatch{
			ProductKey: key,
			Name:       res.PayloadString("name"),
			Score:      res.Score,
		})
	}
	return matches, nil
}
