package types

import (
	"context"

	"github.com/beaconhq/beacon/internal/models"
)

// Core interfaces

// Extractor turns raw document bytes into plain text. Pure: no side effects.
type Extractor interface {
	Extract(data []byte, contentType string) (models.ExtractedText, error)
}

// Embedder converts text into a fixed-length vector via an external model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex owns the durable record collection and answers nearest-neighbor
// queries. EnsureSchema is idempotent and safe under concurrent first-callers.
type VectorIndex interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, record models.IndexRecord) error
	Search(ctx context.Context, vector []float32, k int) ([]models.SearchHit, error)
}

// Ingestor runs one document through extract, truncate, embed and index,
// returning the record id it wrote.
type Ingestor interface {
	Ingest(ctx context.Context, doc models.Document) (string, error)
}

// Querier answers one semantic query with ranked hits.
type Querier interface {
	Query(ctx context.Context, text string) ([]models.SearchHit, error)
}
