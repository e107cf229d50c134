package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type User struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	UserID         uuid.UUID `json:"userId"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Title          *string   `json:"title,omitempty"` // first turn only
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ConversationSummary struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Title          *string   `json:"title,omitempty"`
	MessageCount   int       `json:"messageCount"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// DocumentIndex tracks which chunk-store ids belong to an ingested file.
type DocumentIndex struct {
	FileName   string    `json:"fileName"`
	UploadDate time.Time `json:"dateOfUpload"`
	ChunkIDs   []string  `json:"documentIds"`
}

type DocumentInfo struct {
	FileName   string    `json:"fileName"`
	UploadDate time.Time `json:"dateOfUpload"`
}
