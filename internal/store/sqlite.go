package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; a single connection also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// DB exposes the handle so the SQLite chunk store can share the database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        full_name TEXT NOT NULL,
        email TEXT UNIQUE NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'professional', 'administrator', 'assistant')),
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        conversation_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'professional', 'administrator', 'assistant')),
        content TEXT NOT NULL,
        title TEXT,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, user_id, id);

    CREATE TABLE IF NOT EXISTS conversation_claims (
        requested_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        conversation_id TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        PRIMARY KEY (requested_id, user_id)
    );

    CREATE TABLE IF NOT EXISTS documents (
        file_name TEXT PRIMARY KEY,
        upload_date DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS document_chunks (
        file_name TEXT NOT NULL,
        position INTEGER NOT NULL,
        chunk_id TEXT NOT NULL,
        PRIMARY KEY (file_name, position)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// User methods
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, full_name, email, role, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.FullName, user.Email, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, full_name, email, role, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.FullName, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// Conversation methods
func (s *SQLiteStore) ConversationExists(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM messages WHERE conversation_id = ? AND user_id = ?)",
		conversationID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check conversation: %w", err)
	}
	return exists, nil
}

// ClaimConversation records mintedID for (requestedID, userID) unless a claim
// already exists, in which case the earlier minted id is returned.
func (s *SQLiteStore) ClaimConversation(ctx context.Context, requestedID, userID, mintedID uuid.UUID) (uuid.UUID, error) {
	var resolved uuid.UUID
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO conversation_claims (requested_id, user_id, conversation_id, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (requested_id, user_id) DO UPDATE SET requested_id = excluded.requested_id
        RETURNING conversation_id`,
		requestedID, userID, mintedID, time.Now().UTC()).Scan(&resolved)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to claim conversation: %w", err)
	}
	return resolved, nil
}

// ReleaseClaim drops the claim that resolved to conversationID, provided no
// message has been stored under it yet.
func (s *SQLiteStore) ReleaseClaim(ctx context.Context, conversationID, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
        DELETE FROM conversation_claims
        WHERE conversation_id = ? AND user_id = ?
          AND NOT EXISTS (SELECT 1 FROM messages WHERE conversation_id = ? AND user_id = ?)`,
		conversationID, userID, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to release conversation claim: %w", err)
	}
	return nil
}

// Message methods
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *Message) error {
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (conversation_id, user_id, role, content, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		msg.ConversationID, msg.UserID, msg.Role, msg.Content, msg.Title, msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute message insert: %w", err)
	}
	msg.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}
	return nil
}

const messageColumns = "id, conversation_id, user_id, role, content, title, created_at, updated_at"

func scanMessages(rows *sql.Rows) ([]Message, error) {
	messages := []Message{}
	for rows.Next() {
		var msg Message
		var title sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.UserID, &msg.Role, &msg.Content, &title, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if title.Valid {
			msg.Title = &title.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE conversation_id = ? AND user_id = ? ORDER BY updated_at ASC, id ASC",
		conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentMessages returns up to limit messages with id below beforeID, oldest first.
// A beforeID of zero means no upper bound.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int, beforeID int64) ([]Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE conversation_id = ? AND user_id = ?"
	args := []any{conversationID, userID}
	if beforeID > 0 {
		query += " AND id < ?"
		args = append(args, beforeID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ? AND user_id = ?", conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted messages: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversation_claims WHERE conversation_id = ? AND user_id = ?", conversationID, userID); err != nil {
		return 0, fmt.Errorf("failed to delete conversation claims: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit conversation delete: %w", err)
	}
	return affected, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT m.conversation_id,
               (SELECT f.title FROM messages f
                 WHERE f.conversation_id = m.conversation_id AND f.user_id = m.user_id
                 ORDER BY f.id ASC LIMIT 1),
               COUNT(*),
               MAX(m.updated_at)
        FROM messages m
        WHERE m.user_id = ?
        GROUP BY m.conversation_id, m.user_id
        ORDER BY MAX(m.id) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	summaries := []ConversationSummary{}
	for rows.Next() {
		var cs ConversationSummary
		var title sql.NullString
		var lastUpdated any
		if err := rows.Scan(&cs.ConversationID, &title, &cs.MessageCount, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		if title.Valid {
			cs.Title = &title.String
		}
		// MAX() loses the column's declared type, so the timestamp may come back as text.
		switch v := lastUpdated.(type) {
		case time.Time:
			cs.LastUpdated = v
		case string:
			if cs.LastUpdated, err = parseSQLiteTime(v); err != nil {
				return nil, err
			}
		case []byte:
			if cs.LastUpdated, err = parseSQLiteTime(string(v)); err != nil {
				return nil, err
			}
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}

func parseSQLiteTime(v string) (time.Time, error) {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}

// Document metadata methods
func (s *SQLiteStore) DocumentExists(ctx context.Context, fileName string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM documents WHERE file_name = ?)", fileName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check document: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *DocumentIndex) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO documents (file_name, upload_date) VALUES (?, ?)", doc.FileName, doc.UploadDate); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document %s: %w", doc.FileName, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO document_chunks (file_name, position, chunk_id) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk id insert: %w", err)
	}
	defer stmt.Close()
	for i, id := range doc.ChunkIDs {
		if _, err := stmt.ExecContext(ctx, doc.FileName, i, id); err != nil {
			return fmt.Errorf("failed to insert chunk id: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetDocument(ctx context.Context, fileName string) (*DocumentIndex, error) {
	doc := DocumentIndex{FileName: fileName, ChunkIDs: []string{}}
	err := s.db.QueryRowContext(ctx, "SELECT upload_date FROM documents WHERE file_name = ?", fileName).Scan(&doc.UploadDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", fileName, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT chunk_id FROM document_chunks WHERE file_name = ? ORDER BY position ASC", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk id: %w", err)
		}
		doc.ChunkIDs = append(doc.ChunkIDs, id)
	}
	return &doc, rows.Err()
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file_name, upload_date FROM documents ORDER BY upload_date ASC, file_name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentInfo{}
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.FileName, &d.UploadDate); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, fileName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE file_name = ?", fileName)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("document %s: %w", fileName, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE file_name = ?", fileName); err != nil {
		return fmt.Errorf("failed to delete chunk ids: %w", err)
	}
	return tx.Commit()
}
