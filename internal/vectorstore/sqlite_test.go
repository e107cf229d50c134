package vectorstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexora.io/legal-assistant/internal/embedding/embeddingtest"
	"lexora.io/legal-assistant/internal/store"
)

func newTestEmbedder() *embeddingtest.KeywordEmbedder {
	return embeddingtest.NewKeywordEmbedder("notice", "resignation", "leave", "salary", "court")
}

func newChunkStore(t *testing.T) (ChunkStore, *embeddingtest.KeywordEmbedder) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	emb := newTestEmbedder()
	cs, err := NewSQLiteChunkStore(db.DB(), emb)
	require.NoError(t, err)
	return cs, emb
}

// chunkStoreContract holds the behaviour every ChunkStore backend must share.
var chunkStoreContract = []struct {
	name string
	run  func(t *testing.T, cs ChunkStore, emb *embeddingtest.KeywordEmbedder)
}{
	{"UpsertSearchDelete", testUpsertSearchDelete},
	{"SearchCapsAndOrders", testSearchCapsAndOrders},
	{"UpsertIsIdempotentByID", testUpsertIsIdempotentByID},
	{"EmbedFailureWritesNothing", testEmbedFailureWritesNothing},
}

func TestSQLiteChunkStore(t *testing.T) {
	for _, c := range chunkStoreContract {
		t.Run(c.name, func(t *testing.T) {
			cs, emb := newChunkStore(t)
			c.run(t, cs, emb)
		})
	}
}

func testUpsertSearchDelete(t *testing.T, cs ChunkStore, emb *embeddingtest.KeywordEmbedder) {
	ctx := context.Background()

	ids, err := cs.Upsert(ctx, []Chunk{
		{Text: "The notice period for resignation is thirty days.", Metadata: Metadata{FileName: "leave-policy.pdf", Page: 1}},
		{Text: "Annual leave accrues monthly.", Metadata: Metadata{FileName: "leave-policy.pdf", Page: 2}},
		{Text: "Salary is paid on the last day.", Metadata: Metadata{FileName: "pay.pdf", Page: 1}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	results, err := cs.SimilaritySearch(ctx, "notice resignation", 4, 0.7)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ids[0], results[0].ID)
	assert.Equal(t, "leave-policy.pdf", results[0].Metadata.FileName)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)

	byFile, err := cs.IDsByFileName(ctx, "leave-policy.pdf")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[:2], byFile)

	require.NoError(t, cs.Delete(ctx, ids[:2]))
	// Deleting again is a no-op.
	require.NoError(t, cs.Delete(ctx, ids[:2]))

	results, err = cs.SimilaritySearch(ctx, "notice resignation", 4, 0.7)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testSearchCapsAndOrders(t *testing.T, cs ChunkStore, emb *embeddingtest.KeywordEmbedder) {
	ctx := context.Background()

	chunks := []Chunk{
		{Text: "court court court notice", Metadata: Metadata{FileName: "a.pdf", Page: 1}},
		{Text: "court", Metadata: Metadata{FileName: "a.pdf", Page: 2}},
		{Text: "court court notice", Metadata: Metadata{FileName: "a.pdf", Page: 3}},
		{Text: "court notice", Metadata: Metadata{FileName: "a.pdf", Page: 4}},
		{Text: "court court court court court notice", Metadata: Metadata{FileName: "a.pdf", Page: 5}},
	}
	_, err := cs.Upsert(ctx, chunks)
	require.NoError(t, err)

	results, err := cs.SimilaritySearch(ctx, "court", 2, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Metadata.Page)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.Equal(t, 5, results[1].Metadata.Page)
}

func testUpsertIsIdempotentByID(t *testing.T, cs ChunkStore, emb *embeddingtest.KeywordEmbedder) {
	ctx := context.Background()

	ids, err := cs.Upsert(ctx, []Chunk{{ID: "fixed", Text: "leave", Metadata: Metadata{FileName: "x.pdf", Page: 1}}})
	require.NoError(t, err)
	_, err = cs.Upsert(ctx, []Chunk{{ID: "fixed", Text: "salary", Metadata: Metadata{FileName: "x.pdf", Page: 1}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed"}, ids)

	results, err := cs.SimilaritySearch(ctx, "salary", 4, 0.7)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "salary", results[0].Text)
}

func testEmbedFailureWritesNothing(t *testing.T, cs ChunkStore, emb *embeddingtest.KeywordEmbedder) {
	ctx := context.Background()
	emb.Err = errors.New("embedding quota exceeded")

	_, err := cs.Upsert(ctx, []Chunk{{Text: "leave", Metadata: Metadata{FileName: "x.pdf", Page: 1}}})
	require.Error(t, err)

	emb.Err = nil
	ids, err := cs.IDsByFileName(ctx, "x.pdf")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

type blockingStore struct{ ChunkStore }

func (blockingStore) Delete(ctx context.Context, _ []string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	cs := WithTimeout(blockingStore{}, 10*time.Millisecond)
	err := cs.Delete(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	inner := blockingStore{}
	assert.Equal(t, ChunkStore(inner), WithTimeout(inner, 0))
}
