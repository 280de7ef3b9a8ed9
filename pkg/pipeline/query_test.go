package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconhq/beacon/internal/models"
	"github.com/beaconhq/beacon/pkg/fault"
	"github.com/beaconhq/beacon/pkg/pipeline"
)

// fakeSearcher records the search it was asked for and returns canned hits.
type fakeSearcher struct {
	fakeIndex
	lastK    int
	hits     []models.SearchHit
	searchCt int
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, vector []float32, k int) ([]models.SearchHit, error) {
	f.searchCt++
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func newQuery(emb *fakeEmbedder, idx *fakeSearcher, k int) *pipeline.Query {
	return pipeline.NewQuery(emb, idx, pipeline.QueryConfig{TopK: k, Retry: fastRetry()}, nil)
}

func TestQueryHappyPath(t *testing.T) {
	idx := &fakeSearcher{hits: []models.SearchHit{
		{Text: "access control policies restrict actions", Score: 0.92},
		{Text: "S3 stores objects", Score: 0.41},
	}}
	p := newQuery(&fakeEmbedder{}, idx, 3)

	hits, err := p.Query(context.Background(), "What is access control?")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "access control policies restrict actions", hits[0].Text)
	assert.Equal(t, 3, idx.lastK)
}

func TestQueryEmptyText(t *testing.T) {
	idx := &fakeSearcher{}
	emb := &fakeEmbedder{}
	p := newQuery(emb, idx, 3)

	_, err := p.Query(context.Background(), "  \t ")
	require.Error(t, err)
	assert.Equal(t, fault.EmptyQuery, fault.KindOf(err))
	assert.Zero(t, emb.calls)
	assert.Zero(t, idx.searchCt)
}

func TestQueryPropagatesSearchFailure(t *testing.T) {
	// Search service unreachable: the error kind survives to the caller,
	// it is not masked as an empty result set.
	idx := &fakeSearcher{err: fault.New(fault.UpstreamUnavailable, "no route to host")}
	p := newQuery(&fakeEmbedder{}, idx, 3)

	hits, err := p.Query(context.Background(), "anything")
	require.Error(t, err)
	assert.Nil(t, hits)
	assert.Equal(t, fault.UpstreamUnavailable, fault.KindOf(err))
	assert.Equal(t, 4, idx.searchCt)
}

func TestQueryInvalidKindNotRetried(t *testing.T) {
	idx := &fakeSearcher{err: fault.New(fault.InvalidQuery, "dimension mismatch")}
	p := newQuery(&fakeEmbedder{}, idx, 3)

	_, err := p.Query(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, fault.InvalidQuery, fault.KindOf(err))
	assert.Equal(t, 1, idx.searchCt)
}

func TestQueryZeroMatchesIsSuccess(t *testing.T) {
	idx := &fakeSearcher{hits: nil}
	p := newQuery(&fakeEmbedder{}, idx, 3)

	hits, err := p.Query(context.Background(), "unindexed topic")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
