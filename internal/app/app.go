// Package app wires configuration into the stores, providers and services
// shared by the HTTP server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"lexora.io/legal-assistant/internal/config"
	"lexora.io/legal-assistant/internal/core"
	"lexora.io/legal-assistant/internal/embedding"
	"lexora.io/legal-assistant/internal/ingest"
	"lexora.io/legal-assistant/internal/llm"
	"lexora.io/legal-assistant/internal/store"
	"lexora.io/legal-assistant/internal/vectorstore"
)

// App holds the wired services. Close releases every resource it opened.
type App struct {
	Store     store.Store
	Chunks    vectorstore.ChunkStore
	Embedder  embedding.Embedder
	Documents *core.DocumentService
	Retrieval *core.RetrievalService
	Chat      *core.ChatService

	closers []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// New builds the App described by cfg. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			if cerr := a.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("failed to release resources after init error")
			}
		}
	}()

	llmClient, embedder, err := a.providers(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cached, err := embedding.NewCachedEmbedder(embedder, cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, err
	}
	a.Embedder = cached

	if err := a.stores(ctx, cfg); err != nil {
		return nil, err
	}

	tok, err := ingest.NewTiktokenTokenizer(cfg.TokenizerEncoding)
	if err != nil {
		return nil, err
	}
	prompt, err := core.LoadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	a.Documents = core.NewDocumentService(a.Store, a.Chunks, ingest.NewPDFReader(), ingest.NewTokenTextSplitter(tok))
	a.Retrieval = core.NewRetrievalService(a.Chunks, a.Embedder, cfg.RAGTopK, cfg.RAGSimilarityThreshold)
	a.Chat = core.NewChatService(core.ChatServiceDeps{
		Users:      a.Store,
		Messages:   a.Store,
		Retriever:  a.Retrieval,
		Memory:     core.NewChatMemory(a.Store, cfg.ChatMemoryMaxMessages),
		LLM:        llmClient,
		Prompt:     prompt,
		Resolver:   core.NewSessionResolver(cfg.SessionResolution, a.Store),
		LLMTimeout: cfg.LLMTimeout,
	})

	log.Info().
		Str("database", cfg.DatabaseDriver).
		Str("vector_store", cfg.VectorStore).
		Str("llm_provider", cfg.LLMProvider).
		Str("session_resolution", cfg.SessionResolution).
		Msg("services initialised")
	return a, nil
}

func (a *App) providers(ctx context.Context, cfg *config.Config) (llm.Client, embedding.Embedder, error) {
	switch cfg.LLMProvider {
	case "gemini":
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			return nil, nil, fmt.Errorf("create GenAI client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return llm.NewGeminiClient(client, cfg.ChatModel), embedding.NewGeminiEmbedder(client, cfg.EmbeddingModel), nil
	case "openai":
		client := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel)
		return client, embedding.NewOpenAIEmbedder(client.Raw(), cfg.EmbeddingModel), nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

// OpenStore opens only the relational store, for tasks that need no providers.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

func (a *App) stores(ctx context.Context, cfg *config.Config) error {
	var chunks vectorstore.ChunkStore
	switch cfg.DatabaseDriver {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, s.Close)
		a.Store = s
		cs, err := vectorstore.NewSQLiteChunkStore(s.DB(), a.Embedder)
		if err != nil {
			return err
		}
		chunks = cs
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, s.Close)
		a.Store = s
		cs, err := vectorstore.NewPgVectorStore(ctx, s.Pool(), a.Embedder, cfg.VectorDimensions)
		if err != nil {
			return err
		}
		chunks = cs
	default:
		return fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
	a.Chunks = vectorstore.WithTimeout(chunks, cfg.ChunkStoreTimeout)
	return nil
}
