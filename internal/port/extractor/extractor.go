// Package extractor defines the port that produces property facts.
package extractor

import (
	"context"

	"github.com/Strob0t/PropExtract/internal/domain/property"
)

// Extractor produces structured facts for a listing URL or uploaded file.
type Extractor interface {
	FetchPropertyFacts(ctx context.Context, url string) (*property.Facts, error)
	ExtractFile(ctx context.Context, fileName string) (*property.Facts, error)
}
