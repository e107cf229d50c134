package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"lexora.io/legal-assistant/internal/embedding"
)

// PgVectorStore keeps chunks in a pgvector column and lets Postgres rank them.
type PgVectorStore struct {
	pool       *pgxpool.Pool
	embedder   embedding.Embedder
	dimensions int
}

func NewPgVectorStore(ctx context.Context, pool *pgxpool.Pool, embedder embedding.Embedder, dimensions int) (*PgVectorStore, error) {
	s := &PgVectorStore{pool: pool, embedder: embedder, dimensions: dimensions}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("init vector schema: %w", err)
	}
	return s, nil
}

func (s *PgVectorStore) initSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vector_chunks (
            id TEXT PRIMARY KEY,
            file_name VARCHAR(255) NOT NULL,
            page INTEGER NOT NULL,
            content TEXT NOT NULL,
            embedding vector(%d) NOT NULL
        )`, s.dimensions),
		"CREATE INDEX IF NOT EXISTS vector_chunks_file_idx ON vector_chunks (file_name)",
		"CREATE INDEX IF NOT EXISTS vector_chunks_embedding_idx ON vector_chunks USING hnsw (embedding vector_cosine_ops)",
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, chunks []Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}
	if err := embedChunks(ctx, s.embedder, chunks); err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		if len(c.Embedding) != s.dimensions {
			return nil, fmt.Errorf("chunk %s: embedding has %d dimensions, store expects %d", c.ID, len(c.Embedding), s.dimensions)
		}
		batch.Queue(`
            INSERT INTO vector_chunks (id, file_name, page, content, embedding)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (id) DO UPDATE SET
                file_name = EXCLUDED.file_name,
                page = EXCLUDED.page,
                content = EXCLUDED.content,
                embedding = EXCLUDED.embedding`,
			c.ID, c.Metadata.FileName, c.Metadata.Page, c.Text, pgvector.NewVector(c.Embedding))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin chunk upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("upsert chunks: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit chunk upsert: %w", err)
	}
	return chunkIDs(chunks), nil
}

func (s *PgVectorStore) SimilaritySearch(ctx context.Context, query string, k int, minSimilarity float64) ([]ScoredChunk, error) {
	if k <= 0 {
		return []ScoredChunk{}, nil
	}
	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
        SELECT id, file_name, page, content, 1 - (embedding <=> $1) AS similarity
        FROM vector_chunks
        WHERE 1 - (embedding <=> $1) >= $2
        ORDER BY embedding <=> $1
        LIMIT $3`,
		pgvector.NewVector(queryEmbedding), minSimilarity, k)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	results := []ScoredChunk{}
	for rows.Next() {
		var sc ScoredChunk
		if err := rows.Scan(&sc.ID, &sc.Metadata.FileName, &sc.Metadata.Page, &sc.Text, &sc.Similarity); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

func (s *PgVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM vector_chunks WHERE id = ANY($1)", ids); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (s *PgVectorStore) IDsByFileName(ctx context.Context, fileName string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM vector_chunks WHERE file_name = $1", fileName)
	if err != nil {
		return nil, fmt.Errorf("query chunks by file: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect chunk ids: %w", err)
	}
	return ids, nil
}
