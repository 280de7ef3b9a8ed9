package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/internal/types"
	"github.com/beaconhq/beacon/pkg/fault"
)

// QueryConfig sets the result count and retry bounds for queries.
type QueryConfig struct {
	TopK  int
	Retry RetryConfig
}

// Query answers one semantic query per call: embed the text, run a
// k-nearest-neighbor search, return ranked hits. Stateless and safe for
// concurrent use. Upstream failure kinds propagate unchanged; an error is
// never downgraded to an empty result.
type Query struct {
	embedder types.Embedder
	index    types.VectorIndex
	config   QueryConfig
	logger   *zap.Logger
}

func NewQuery(embedder types.Embedder, index types.VectorIndex, config QueryConfig, logger *zap.Logger) *Query {
	if config.TopK == 0 {
		config.TopK = 3
	}
	config.Retry = config.Retry.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Query{
		embedder: embedder,
		index:    index,
		config:   config,
		logger:   logger,
	}
}

func (p *Query) Query(ctx context.Context, text string) ([]models.SearchHit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fault.New(fault.EmptyQuery, "query text is empty")
	}

	var vector []float32
	err := retry(ctx, p.config.Retry, func() error {
		v, embedErr := p.embedder.Embed(ctx, text)
		if embedErr != nil {
			return embedErr
		}
		vector = v
		return nil
	})
	if err != nil {
		p.logger.Error("query embedding failed", zap.Error(err))
		return nil, err
	}

	var hits []models.SearchHit
	err = retry(ctx, p.config.Retry, func() error {
		h, searchErr := p.index.Search(ctx, vector, p.config.TopK)
		if searchErr != nil {
			return searchErr
		}
		hits = h
		return nil
	})
	if err != nil {
		p.logger.Error("search failed", zap.Error(err))
		return nil, err
	}

	return hits, nil
}
