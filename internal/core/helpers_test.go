package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"lexora.io/legal-assistant/internal/embedding/embeddingtest"
	"lexora.io/legal-assistant/internal/ingest"
	"lexora.io/legal-assistant/internal/llm"
	"lexora.io/legal-assistant/internal/store"
	"lexora.io/legal-assistant/internal/vectorstore"
)

var testVocabulary = []string{"notice", "resignation", "leave", "salary", "court", "appeal", "contract"}

type fakeReader struct {
	pages []ingest.Page
	err   error
}

func (f fakeReader) ReadPages([]byte) ([]ingest.Page, error) {
	return f.pages, f.err
}

// pageSplitter yields one chunk per page.
type pageSplitter struct{}

func (pageSplitter) SplitPages(pages []ingest.Page) []ingest.PageChunk {
	out := make([]ingest.PageChunk, 0, len(pages))
	for _, p := range pages {
		out = append(out, ingest.PageChunk{Page: p.Number, Text: p.Text})
	}
	return out
}

type fakeLLM struct {
	mu        sync.Mutex
	reply     string
	err       error
	calls     int
	prompts   []string
	histories [][]llm.Turn
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, history []llm.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.histories = append(f.histories, history)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLLM) LastHistory() []llm.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.histories[len(f.histories)-1]
}

type failingDocs struct {
	DocumentStore
	createErr error
	deleteErr error
}

func (f failingDocs) CreateDocument(ctx context.Context, doc *store.DocumentIndex) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.DocumentStore.CreateDocument(ctx, doc)
}

func (f failingDocs) DeleteDocument(ctx context.Context, fileName string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.DocumentStore.DeleteDocument(ctx, fileName)
}

type failingChunks struct {
	vectorstore.ChunkStore
	upsertErr error
	deleteErr error
	searchErr error
}

func (f failingChunks) Upsert(ctx context.Context, chunks []vectorstore.Chunk) ([]string, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return f.ChunkStore.Upsert(ctx, chunks)
}

func (f failingChunks) Delete(ctx context.Context, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.ChunkStore.Delete(ctx, ids)
}

func (f failingChunks) SimilaritySearch(ctx context.Context, query string, k int, minSimilarity float64) ([]vectorstore.ScoredChunk, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.ChunkStore.SimilaritySearch(ctx, query, k, minSimilarity)
}

var errBoom = errors.New("boom")

type fixture struct {
	store     *store.SQLiteStore
	chunks    *vectorstore.SQLiteChunkStore
	embedder  *embeddingtest.KeywordEmbedder
	retrieval *RetrievalService
	llm       *fakeLLM
	chat      *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	emb := embeddingtest.NewKeywordEmbedder(testVocabulary...)
	cs, err := vectorstore.NewSQLiteChunkStore(s.DB(), emb)
	require.NoError(t, err)

	prompt, err := NewPromptTemplate("")
	require.NoError(t, err)

	f := &fixture{
		store:     s,
		chunks:    cs,
		embedder:  emb,
		retrieval: NewRetrievalService(cs, emb, DefaultTopK, DefaultSimilarityThreshold),
		llm:       &fakeLLM{reply: "Thirty days."},
	}
	f.chat = NewChatService(ChatServiceDeps{
		Users:     s,
		Messages:  s,
		Retriever: f.retrieval,
		LLM:       f.llm,
		Prompt:    prompt,
	})
	return f
}

func (f *fixture) documents(pages ...ingest.Page) *DocumentService {
	return NewDocumentService(f.store, f.chunks, fakeReader{pages: pages}, pageSplitter{})
}

func (f *fixture) user(t *testing.T, role store.Role) *store.User {
	t.Helper()
	u := &store.User{FullName: "Ada Counsel", Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}
