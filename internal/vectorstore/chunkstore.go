package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lexora.io/legal-assistant/internal/embedding"
)

// embedConcurrency bounds parallel embedding requests during Upsert.
const embedConcurrency = 4

type Metadata struct {
	FileName string `json:"fileName"`
	Page     int    `json:"page"`
}

type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"-"`
}

type ScoredChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// ChunkStore is the vector index the core talks to. Delete is idempotent and
// Upsert replaces chunks that already carry a known id.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []Chunk) ([]string, error)
	SimilaritySearch(ctx context.Context, query string, k int, minSimilarity float64) ([]ScoredChunk, error)
	Delete(ctx context.Context, ids []string) error
	IDsByFileName(ctx context.Context, fileName string) ([]string, error)
}

var (
	_ ChunkStore = (*SQLiteChunkStore)(nil)
	_ ChunkStore = (*PgVectorStore)(nil)
	_ ChunkStore = (*timeoutStore)(nil)
)

// embedChunks assigns missing ids and fills embeddings in place.
func embedChunks(ctx context.Context, embedder embedding.Embedder, chunks []Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = uuid.NewString()
		}
		if len(chunks[i].Embedding) > 0 {
			continue
		}
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d of %s: %w", i, chunks[i].Metadata.FileName, err)
			}
			chunks[i].Embedding = vec
			return nil
		})
	}
	return g.Wait()
}

func chunkIDs(chunks []Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

type timeoutStore struct {
	next    ChunkStore
	timeout time.Duration
}

// WithTimeout bounds every call on next by d. A non-positive d returns next unchanged.
func WithTimeout(next ChunkStore, d time.Duration) ChunkStore {
	if d <= 0 {
		return next
	}
	return &timeoutStore{next: next, timeout: d}
}

func (t *timeoutStore) Upsert(ctx context.Context, chunks []Chunk) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Upsert(ctx, chunks)
}

func (t *timeoutStore) SimilaritySearch(ctx context.Context, query string, k int, minSimilarity float64) ([]ScoredChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.SimilaritySearch(ctx, query, k, minSimilarity)
}

func (t *timeoutStore) Delete(ctx context.Context, ids []string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Delete(ctx, ids)
}

func (t *timeoutStore) IDsByFileName(ctx context.Context, fileName string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.IDsByFileName(ctx, fileName)
}
