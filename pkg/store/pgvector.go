package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/pkg/fault"
)

// VectorIndexConfig configures the Postgres+pgvector backed index.
type VectorIndexConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorIndex stores (id, content, embedding) records and answers
// k-nearest-neighbor queries by L2 distance.
type VectorIndex struct {
	config VectorIndexConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config VectorIndexConfig) (*VectorIndex, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &VectorIndex{
		config: config,
		pool:   pool,
	}, nil
}

// EnsureSchema creates the extension, table and vector index if absent.
// Concurrent first-callers may race on creation; duplicate-object errors
// mean somebody else won and are not failures. An existing table or index
// with a different dimensionality or distance operator is a SchemaConflict.
func (vi *VectorIndex) EnsureSchema(ctx context.Context) error {
	if _, err := vi.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		if !isDuplicateObject(err) {
			return fault.Wrap(fault.UpstreamUnavailable, err)
		}
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d),
			seq BIGSERIAL
		)`, vi.config.TableName, vi.config.VectorDim)

	if _, err := vi.pool.Exec(ctx, createTable); err != nil {
		if !isDuplicateObject(err) {
			return fault.Wrap(fault.UpstreamUnavailable, err)
		}
	}

	if err := vi.verifyDimension(ctx); err != nil {
		return err
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_l2_ops)
		WITH (lists = 100)`,
		vi.config.TableName, vi.config.TableName)

	if _, err := vi.pool.Exec(ctx, createIndex); err != nil {
		if !isDuplicateObject(err) {
			return fault.Wrap(fault.UpstreamUnavailable, err)
		}
	}

	return vi.verifyIndexOperator(ctx)
}

// verifyDimension compares the live embedding column's typmod against the
// configured dimensionality. For the vector type the typmod is the
// dimension itself.
func (vi *VectorIndex) verifyDimension(ctx context.Context) error {
	var typmod int
	err := vi.pool.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON a.attrelid = c.oid
		WHERE c.relname = $1 AND a.attname = 'embedding'`,
		vi.config.TableName).Scan(&typmod)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fault.New(fault.SchemaConflict,
				fmt.Sprintf("table %s exists without an embedding column", vi.config.TableName))
		}
		return fault.Wrap(fault.UpstreamUnavailable, err)
	}
	if typmod != vi.config.VectorDim {
		return fault.New(fault.SchemaConflict,
			fmt.Sprintf("table %s has embedding dimension %d, configured %d",
				vi.config.TableName, typmod, vi.config.VectorDim))
	}
	return nil
}

func (vi *VectorIndex) verifyIndexOperator(ctx context.Context) error {
	var indexdef string
	err := vi.pool.QueryRow(ctx, `
		SELECT indexdef FROM pg_indexes
		WHERE tablename = $1 AND indexname = $2`,
		vi.config.TableName, vi.config.TableName+"_embedding_idx").Scan(&indexdef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another creator may still be building it.
			return nil
		}
		return fault.Wrap(fault.UpstreamUnavailable, err)
	}
	if !strings.Contains(indexdef, "vector_l2_ops") {
		return fault.New(fault.SchemaConflict,
			fmt.Sprintf("index %s_embedding_idx uses a different distance operator", vi.config.TableName))
	}
	return nil
}

// Upsert replaces any existing record with the same id. The replace is a
// single statement, so a failed call never leaves a half-written record.
// The seq column is assigned on first insert only, preserving insertion
// order for search tie-breaking.
func (vi *VectorIndex) Upsert(ctx context.Context, record models.IndexRecord) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vi.config.TableName)

	_, err := vi.pool.Exec(ctx, stmt,
		record.ID,
		record.Content,
		pgvector.NewVector(record.Embedding),
	)
	if err != nil {
		return fault.Wrap(fault.UpstreamUnavailable, err)
	}
	return nil
}

// Search returns up to k hits ordered by ascending L2 distance, ties broken
// by insertion order. The score reported is 1/(1+distance), descending.
func (vi *VectorIndex) Search(ctx context.Context, vector []float32, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		return nil, fault.New(fault.InvalidQuery, fmt.Sprintf("k must be positive, got %d", k))
	}
	if len(vector) != vi.config.VectorDim {
		return nil, fault.New(fault.InvalidQuery,
			fmt.Sprintf("query vector has dimension %d, index expects %d", len(vector), vi.config.VectorDim))
	}

	query := fmt.Sprintf(`
		SELECT content, embedding <-> $1 AS distance
		FROM %s
		ORDER BY embedding <-> $1, seq
		LIMIT $2`,
		vi.config.TableName)

	rows, err := vi.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fault.Wrap(fault.UpstreamUnavailable, err)
	}
	defer rows.Close()

	var hits []models.SearchHit
	for rows.Next() {
		var content string
		var distance float64
		if err := rows.Scan(&content, &distance); err != nil {
			return nil, fault.Wrap(fault.UpstreamUnavailable, err)
		}
		hits = append(hits, models.SearchHit{
			Text:  content,
			Score: 1 / (1 + distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.UpstreamUnavailable, err)
	}

	return hits, nil
}

func (vi *VectorIndex) Close() {
	if vi.pool != nil {
		vi.pool.Close()
	}
}

// isDuplicateObject reports whether err is Postgres telling us the object we
// tried to create already exists, which happens when concurrent callers race
// through CREATE ... IF NOT EXISTS.
func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "42P07", // duplicate_table
		"42710", // duplicate_object
		"23505": // unique_violation (pg_type race inside CREATE TABLE)
		return true
	}
	return false
}
