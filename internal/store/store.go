package store

import (
	"context"

	"github.com/google/uuid"
)

// Store is the relational message and document metadata log.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	ConversationExists(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	ClaimConversation(ctx context.Context, requestedID, userID, mintedID uuid.UUID) (uuid.UUID, error)
	ReleaseClaim(ctx context.Context, conversationID, userID uuid.UUID) error
	CreateMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]Message, error)
	RecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int, beforeID int64) ([]Message, error)
	DeleteConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error)

	DocumentExists(ctx context.Context, fileName string) (bool, error)
	CreateDocument(ctx context.Context, doc *DocumentIndex) error
	GetDocument(ctx context.Context, fileName string) (*DocumentIndex, error)
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)
	DeleteDocument(ctx context.Context, fileName string) error

	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// reverse flips a newest-first window into chronological order.
func reverse(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
