package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"lexora.io/legal-assistant/internal/llm"
	"lexora.io/legal-assistant/internal/store"
)

const DefaultMemoryWindow = 10

// ChatMemory is a sliding window over the durable message log. Nothing is
// held in process, so the window survives restarts.
type ChatMemory struct {
	messages    MessageStore
	maxMessages int
}

func NewChatMemory(messages MessageStore, maxMessages int) *ChatMemory {
	if maxMessages <= 0 {
		maxMessages = DefaultMemoryWindow
	}
	return &ChatMemory{messages: messages, maxMessages: maxMessages}
}

// MemoryKey identifies a conversation window.
func MemoryKey(conversationID, userID uuid.UUID) string {
	return conversationID.String() + userID.String()
}

// Window returns up to maxMessages of the most recent messages with id below
// before (0 for no bound), oldest first. Older turns stay in the log.
func (m *ChatMemory) Window(ctx context.Context, conversationID, userID uuid.UUID, before int64) ([]store.Message, error) {
	msgs, err := m.messages.RecentMessages(ctx, conversationID, userID, m.maxMessages, before)
	if err != nil {
		return nil, fmt.Errorf("load memory %s: %w", MemoryKey(conversationID, userID), err)
	}
	return msgs, nil
}

func toTurns(msgs []store.Message) []llm.Turn {
	turns := make([]llm.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = llm.Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}
