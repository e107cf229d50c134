package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"lexora.io/legal-assistant/internal/embedding"
)

// SQLiteChunkStore keeps embeddings as JSON next to the chunk text and scores
// every row in process. Suitable for development and small corpora.
type SQLiteChunkStore struct {
	db       *sql.DB
	embedder embedding.Embedder
}

func NewSQLiteChunkStore(db *sql.DB, embedder embedding.Embedder) (*SQLiteChunkStore, error) {
	s := &SQLiteChunkStore{db: db, embedder: embedder}
	_, err := db.Exec(`
    CREATE TABLE IF NOT EXISTS data_chunks (
        id TEXT PRIMARY KEY,
        file_name TEXT NOT NULL,
        page INTEGER NOT NULL,
        content TEXT NOT NULL,
        embedding_json TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_data_chunks_file ON data_chunks (file_name);
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data_chunks schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteChunkStore) Upsert(ctx context.Context, chunks []Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}
	if err := embedChunks(ctx, s.embedder, chunks); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO data_chunks (id, file_name, page, content, embedding_json) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET file_name = excluded.file_name, page = excluded.page,
            content = excluded.content, embedding_json = excluded.embedding_json`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data_chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		embeddingBytes, err := json.Marshal(c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Metadata.FileName, c.Metadata.Page, c.Text, string(embeddingBytes)); err != nil {
			return nil, fmt.Errorf("failed to execute data_chunk insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit data_chunks: %w", err)
	}
	return chunkIDs(chunks), nil
}

func (s *SQLiteChunkStore) SimilaritySearch(ctx context.Context, query string, k int, minSimilarity float64) ([]ScoredChunk, error) {
	if k <= 0 {
		return []ScoredChunk{}, nil
	}
	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, file_name, page, content, embedding_json FROM data_chunks")
	if err != nil {
		return nil, fmt.Errorf("failed to query data_chunks: %w", err)
	}
	defer rows.Close()

	scored := []ScoredChunk{}
	for rows.Next() {
		var c Chunk
		var embeddingJSON string
		if err := rows.Scan(&c.ID, &c.Metadata.FileName, &c.Metadata.Page, &c.Text, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("failed to scan data_chunk row: %w", err)
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &c.Embedding); err != nil {
			log.Warn().Err(err).Str("chunk_id", c.ID).Msg("skipping chunk with unreadable embedding")
			continue
		}
		similarity, err := embedding.CosineSimilarity(queryEmbedding, c.Embedding)
		if err != nil {
			log.Warn().Err(err).Str("chunk_id", c.ID).Msg("skipping chunk")
			continue
		}
		if similarity >= minSimilarity {
			scored = append(scored, ScoredChunk{Chunk: c, Similarity: similarity})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate data_chunks: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *SQLiteChunkStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM data_chunks WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("failed to delete data_chunks: %w", err)
	}
	return nil
}

func (s *SQLiteChunkStore) IDsByFileName(ctx context.Context, fileName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM data_chunks WHERE file_name = ? ORDER BY rowid", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to query data_chunks by file: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
