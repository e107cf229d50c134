package core

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"lexora.io/legal-assistant/internal/embedding"
	"lexora.io/legal-assistant/internal/metrics"
	"lexora.io/legal-assistant/internal/vectorstore"
)

const (
	DefaultTopK                = 4
	DefaultSimilarityThreshold = 0.7
)

// RetrievalService turns a query into grounding context. Results are never
// cached; every call reaches the chunk store.
type RetrievalService struct {
	chunks    vectorstore.ChunkStore
	embedder  embedding.Embedder
	topK      int
	threshold float64
}

func NewRetrievalService(chunks vectorstore.ChunkStore, embedder embedding.Embedder, topK int, threshold float64) *RetrievalService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalService{chunks: chunks, embedder: embedder, topK: topK, threshold: threshold}
}

// RetrieveChunks returns at most topK chunks scoring at or above the
// similarity floor, most similar first.
func (s *RetrievalService) RetrieveChunks(ctx context.Context, query string) ([]vectorstore.ScoredChunk, error) {
	const op = "retrieve"
	if strings.TrimSpace(query) == "" {
		return nil, validation(op, "query is required", nil)
	}

	results, err := s.chunks.SimilaritySearch(ctx, query, s.topK, s.threshold)
	if err != nil {
		log.Error().Err(err).Msg("similarity search failed")
		return nil, upstream(op, "similarity search failed", err)
	}
	if len(results) > s.topK {
		results = results[:s.topK]
	}
	metrics.RetrievedChunks.Observe(float64(len(results)))
	return results, nil
}

// Retrieve joins the ranked chunk texts with a blank line. An empty string
// means nothing cleared the floor.
func (s *RetrievalService) Retrieve(ctx context.Context, query string) (string, error) {
	results, err := s.RetrieveChunks(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatContext(results), nil
}

func FormatContext(results []vectorstore.ScoredChunk) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Text)
	}
	return strings.Join(texts, "\n\n")
}

// Compare embeds two texts and returns their cosine similarity.
func (s *RetrievalService) Compare(ctx context.Context, text1, text2 string) (float64, error) {
	const op = "compare"
	if strings.TrimSpace(text1) == "" || strings.TrimSpace(text2) == "" {
		return 0, validation(op, "text1 and text2 are required", nil)
	}
	v1, err := s.embedder.Embed(ctx, text1)
	if err != nil {
		return 0, upstream(op, "embedding request failed", err)
	}
	v2, err := s.embedder.Embed(ctx, text2)
	if err != nil {
		return 0, upstream(op, "embedding request failed", err)
	}
	sim, err := embedding.CosineSimilarity(v1, v2)
	if err != nil {
		return 0, upstream(op, "embeddings are not comparable", err)
	}
	return sim, nil
}
