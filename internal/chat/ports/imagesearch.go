package ports

import "context"

// ImageMatch is one product matched against an uploaded image.
type ImageMatch struct {
	ProductKey string
	Name       string
	Score      float64
}

// ImageSearcher resolves a base64-encoded image to catalog products.
type ImageSearcher interface {
	SearchByImage(ctx context.Context, base64Image string, limit int) ([]ImageMatch, error)
}
