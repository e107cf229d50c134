package core

import (
	"context"

	"github.com/google/uuid"

	"lexora.io/legal-assistant/internal/ingest"
	"lexora.io/legal-assistant/internal/store"
)

// UserStore resolves the requesting account.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*store.User, error)
}

// MessageStore is the durable message log every session reads from and writes to.
type MessageStore interface {
	ConversationExists(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	ClaimConversation(ctx context.Context, requestedID, userID, mintedID uuid.UUID) (uuid.UUID, error)
	// ReleaseClaim undoes a claim whose conversation never received a message.
	ReleaseClaim(ctx context.Context, conversationID, userID uuid.UUID) error
	CreateMessage(ctx context.Context, msg *store.Message) error
	ListMessages(ctx context.Context, conversationID, userID uuid.UUID) ([]store.Message, error)
	RecentMessages(ctx context.Context, conversationID, userID uuid.UUID, limit int, beforeID int64) ([]store.Message, error)
	DeleteConversation(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]store.ConversationSummary, error)
}

// DocumentStore holds the DocumentIndex rows.
type DocumentStore interface {
	DocumentExists(ctx context.Context, fileName string) (bool, error)
	CreateDocument(ctx context.Context, doc *store.DocumentIndex) error
	GetDocument(ctx context.Context, fileName string) (*store.DocumentIndex, error)
	ListDocuments(ctx context.Context) ([]store.DocumentInfo, error)
	DeleteDocument(ctx context.Context, fileName string) error
}

// Splitter bounds page text into embeddable chunks.
type Splitter interface {
	SplitPages(pages []ingest.Page) []ingest.PageChunk
}
