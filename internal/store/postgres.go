package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Pool exposes the connection pool so the pgvector chunk store can share it.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id UUID PRIMARY KEY,
        full_name TEXT NOT NULL,
        email TEXT UNIQUE NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'professional', 'administrator', 'assistant')),
        created_at TIMESTAMPTZ NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        id BIGSERIAL PRIMARY KEY,
        conversation_id UUID NOT NULL,
        user_id UUID NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'professional', 'administrator', 'assistant')),
        content TEXT NOT NULL,
        title VARCHAR(500),
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, user_id, id);

    CREATE TABLE IF NOT EXISTS conversation_claims (
        requested_id UUID NOT NULL,
        user_id UUID NOT NULL,
        conversation_id UUID NOT NULL,
        created_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (requested_id, user_id)
    );

    CREATE TABLE IF NOT EXISTS documents (
        file_name VARCHAR(255) PRIMARY KEY,
        upload_date TIMESTAMPTZ NOT NULL,
        chunk_ids TEXT[] NOT NULL DEFAULT '{}'
    );
    `
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		"INSERT INTO users (id, full_name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.FullName, user.Email, user.Role.String(), user.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	var role string
	err := s.pool.QueryRow(ctx,
		"SELECT id, full_name, email, role, created_at FROM users WHERE id = $1", id).
		Scan(&user.ID, &user.FullName, &user.Email, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if user.Role, err = ParseRole(role); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) ConversationExists(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM messages WHERE conversation_id = $1 AND user_id = $2)",
		conversationID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check conversation: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ClaimConversation(ctx context.Context, requestedID, userID, mintedID uuid.UUID) (uuid.UUID, error) {
	var resolved uuid.UUID
	err := s.pool.QueryRow(ctx, `
        INSERT INTO conversation_claims (requested_id, user_id, conversation_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (requested_id, user_id) DO UPDATE SET requested_id = EXCLUDED.requested_id
        RETURNING conversation_id`,
		requestedID, userID, mintedID, time.Now().UTC()).Scan(&resolved)
	if err != nil {
		return uuid.Nil, fmt.Errorf("claim conversation: %w", err)
	}
	return resolved, nil
}

func (s *PostgresStore) ReleaseClaim(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        DELETE FROM conversation_claims
        WHERE conversation_id = $1 AND user_id = $2
          AND NOT EXISTS (SELECT 1 FROM messages WHERE conversation_id = $1 AND user_id = $2)`,
		conversationID, userID)
	if err != nil {
		return fmt.Errorf("release conversation claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *Message) error {
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	err := s.pool.QueryRow(ctx, `
        INSERT INTO messages (conversation_id, user_id, role, content, title, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`,
		msg.ConversationID, msg.UserID, msg.Role.String(), msg.Content, msg.Title, msg.CreatedAt, msg.UpdatedAt).
		Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func collectMessages(rows pgx.Rows) ([]Message, error) {
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.UserID, &role, &msg.Content, &msg.Title, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		r, err := ParseRole(role)
		if err != nil {
			return nil, err
		}
		msg.Role = r
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE conversation_id = $1 AND user_id = $2 ORDER BY updated_at ASC, id ASC",
		conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return collectMessages(rows)
}

func (s *PostgresStore) RecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int, beforeID int64) ([]Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE conversation_id = $1 AND user_id = $2"
	args := []any{conversationID, userID}
	if beforeID > 0 {
		query += " AND id < $3 ORDER BY id DESC LIMIT $4"
		args = append(args, beforeID, limit)
	} else {
		query += " ORDER BY id DESC LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func (s *PostgresStore) DeleteConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM messages WHERE conversation_id = $1 AND user_id = $2", conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM conversation_claims WHERE conversation_id = $1 AND user_id = $2", conversationID, userID); err != nil {
		return 0, fmt.Errorf("delete conversation claims: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit conversation delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT conversation_id,
               (ARRAY_AGG(title ORDER BY id ASC))[1],
               COUNT(*),
               MAX(updated_at)
        FROM messages
        WHERE user_id = $1
        GROUP BY conversation_id
        ORDER BY MAX(id) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	summaries := []ConversationSummary{}
	for rows.Next() {
		var cs ConversationSummary
		if err := rows.Scan(&cs.ConversationID, &cs.Title, &cs.MessageCount, &cs.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) DocumentExists(ctx context.Context, fileName string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM documents WHERE file_name = $1)", fileName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc *DocumentIndex) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO documents (file_name, upload_date, chunk_ids) VALUES ($1, $2, $3)",
		doc.FileName, doc.UploadDate, doc.ChunkIDs)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("document %s: %w", doc.FileName, ErrDuplicate)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, fileName string) (*DocumentIndex, error) {
	doc := DocumentIndex{FileName: fileName}
	err := s.pool.QueryRow(ctx, "SELECT upload_date, chunk_ids FROM documents WHERE file_name = $1", fileName).
		Scan(&doc.UploadDate, &doc.ChunkIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", fileName, ErrNotFound)
		}
		return nil, fmt.Errorf("query document: %w", err)
	}
	return &doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.pool.Query(ctx, "SELECT file_name, upload_date FROM documents ORDER BY upload_date ASC, file_name ASC")
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentInfo{}
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.FileName, &d.UploadDate); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, fileName string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE file_name = $1", fileName)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", fileName, ErrNotFound)
	}
	return nil
}
