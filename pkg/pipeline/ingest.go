package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/internal/types"
	"github.com/beaconhq/beacon/pkg/embed"
	"github.com/beaconhq/beacon/pkg/fault"
)

// Stages an ingestion passes through, in order. A failure at any stage is
// terminal for that document and carries the stage name.
const (
	StageReceived  = "received"
	StageExtracted = "extracted"
	StageTruncated = "truncated"
	StageEmbedded  = "embedded"
	StageIndexed   = "indexed"
)

// IngestionConfig bounds truncation and retries.
type IngestionConfig struct {
	MaxChars int
	Retry    RetryConfig
}

// Ingestion runs one document at a time through extract, truncate, embed and
// upsert. Instances are stateless across invocations and safe for concurrent
// use.
type Ingestion struct {
	extractor types.Extractor
	embedder  types.Embedder
	index     types.VectorIndex
	config    IngestionConfig
	logger    *zap.Logger
}

func NewIngestion(extractor types.Extractor, embedder types.Embedder, index types.VectorIndex, config IngestionConfig, logger *zap.Logger) *Ingestion {
	if config.MaxChars == 0 {
		config.MaxChars = 8192
	}
	config.Retry = config.Retry.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ingestion{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		config:    config,
		logger:    logger,
	}
}

// RecordID derives the stable index key for a source identifier. Two
// ingestions of the same source always target the same record.
func RecordID(sourceID string) string {
	sum := sha1.Sum([]byte(sourceID))
	return hex.EncodeToString(sum[:])
}

// Ingest runs the full pipeline for one document and returns the record id
// it wrote. Extraction failures and empty documents are terminal and never
// retried; throttling and transient upstream failures are retried with
// backoff before the document is failed.
func (p *Ingestion) Ingest(ctx context.Context, doc models.Document) (string, error) {
	log := p.logger.With(zap.String("document_id", doc.ID))

	text, err := p.extractor.Extract(doc.Data, doc.ContentType)
	if err != nil {
		err = fault.WithStage(err, StageReceived)
		log.Warn("extraction failed", zap.Error(err))
		return "", err
	}

	content := embed.Truncate(text.Join(), p.config.MaxChars)
	if strings.TrimSpace(content) == "" {
		err = fault.WithStage(fault.New(fault.EmptyDocument, "document has no extractable text"), StageExtracted)
		log.Warn("empty document", zap.Error(err))
		return "", err
	}

	var vector []float32
	err = retry(ctx, p.config.Retry, func() error {
		v, embedErr := p.embedder.Embed(ctx, content)
		if embedErr != nil {
			return embedErr
		}
		vector = v
		return nil
	})
	if err != nil {
		err = fault.WithStage(err, StageTruncated)
		log.Error("embedding failed", zap.Error(err))
		return "", err
	}

	record := models.IndexRecord{
		ID:        RecordID(doc.ID),
		Content:   content,
		Embedding: vector,
	}
	err = retry(ctx, p.config.Retry, func() error {
		return p.index.Upsert(ctx, record)
	})
	if err != nil {
		err = fault.WithStage(err, StageEmbedded)
		log.Error("index upsert failed", zap.Error(err), zap.String("record_id", record.ID))
		return "", err
	}

	log.Info("document indexed",
		zap.String("record_id", record.ID),
		zap.Int("content_chars", len(content)))
	return record.ID, nil
}
