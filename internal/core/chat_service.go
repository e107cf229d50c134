package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lexora.io/legal-assistant/internal/llm"
	"lexora.io/legal-assistant/internal/metrics"
	"lexora.io/legal-assistant/internal/store"
)

const (
	MaxMessageLength  = 4000
	maxTitleLength    = 80
	DefaultLLMTimeout = 60 * time.Second
)

// Retriever supplies grounding context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

type ChatServiceDeps struct {
	Users      UserStore
	Messages   MessageStore
	Retriever  Retriever
	Memory     *ChatMemory
	LLM        llm.Client
	Prompt     *PromptTemplate
	Resolver   SessionResolver
	LLMTimeout time.Duration
}

type ChatService struct {
	users      UserStore
	messages   MessageStore
	retriever  Retriever
	memory     *ChatMemory
	llm        llm.Client
	prompt     *PromptTemplate
	resolver   SessionResolver
	llmTimeout time.Duration
}

func NewChatService(d ChatServiceDeps) *ChatService {
	if d.LLMTimeout <= 0 {
		d.LLMTimeout = DefaultLLMTimeout
	}
	if d.Resolver == nil {
		d.Resolver = NewClaimResolver(d.Messages)
	}
	if d.Memory == nil {
		d.Memory = NewChatMemory(d.Messages, DefaultMemoryWindow)
	}
	return &ChatService{
		users:      d.Users,
		messages:   d.Messages,
		retriever:  d.Retriever,
		memory:     d.Memory,
		llm:        d.LLM,
		prompt:     d.Prompt,
		resolver:   d.Resolver,
		llmTimeout: d.LLMTimeout,
	}
}

type AskRequest struct {
	ConversationID *uuid.UUID
	UserID         uuid.UUID
	Message        string
}

type AskResponse struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Reply          string    `json:"response"`
	New            bool      `json:"newConversation"`
}

// Ask runs one turn. The user's message is committed before the model is
// called, and a failed model call is reported, never retried.
func (s *ChatService) Ask(ctx context.Context, req AskRequest) (resp *AskResponse, err error) {
	const op = "ask"
	transition := "unresolved"
	defer func() { metrics.AsksTotal.WithLabelValues(transition, metrics.Outcome(err)).Inc() }()

	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, validation(op, "message is required", nil)
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, validation(op, fmt.Sprintf("message exceeds %d characters", MaxMessageLength), nil)
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(op, "User not found", err)
		}
		return nil, fmt.Errorf("%s: load user: %w", op, err)
	}
	if !user.Role.IsHuman() {
		return nil, validation(op, "the assistant account cannot ask questions", nil)
	}

	res, err := s.resolver.Resolve(ctx, req.ConversationID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: resolve conversation: %w", op, err)
	}
	transition = "continue"
	if res.New {
		transition = "new"
	}
	logger := log.With().Str("conversation_id", res.ConversationID.String()).Str("user_id", user.ID.String()).Logger()

	userMsg := &store.Message{
		ConversationID: res.ConversationID,
		UserID:         user.ID,
		Role:           user.Role,
		Content:        text,
	}
	if res.New {
		title := deriveTitle(text)
		userMsg.Title = &title
	}
	if err := s.messages.CreateMessage(ctx, userMsg); err != nil {
		if res.New {
			// A retry of this first turn must open the conversation again.
			if rerr := s.messages.ReleaseClaim(context.WithoutCancel(ctx), res.ConversationID, user.ID); rerr != nil {
				logger.Warn().Err(rerr).Msg("failed to release conversation claim")
			}
		}
		return nil, fmt.Errorf("%s: store user message: %w", op, err)
	}

	contextText, err := s.retriever.Retrieve(ctx, text)
	if err != nil {
		logger.Error().Err(err).Msg("retrieval failed, user message kept")
		return nil, err
	}

	history, err := s.memory.Window(ctx, res.ConversationID, user.ID, userMsg.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	prompt, err := s.prompt.Render(PromptData{
		FullName:       user.FullName,
		ConversationID: res.ConversationID,
		Role:           user.Role,
		Message:        text,
		Context:        contextText,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reply, err := s.complete(ctx, prompt, toTurns(history))
	if err != nil {
		logger.Error().Err(err).Int("history", len(history)).Msg("LLM call failed, user message kept")
		return nil, upstream(op, "The assistant could not generate a reply. Please try again.", err)
	}

	assistantMsg := &store.Message{
		ConversationID: res.ConversationID,
		UserID:         user.ID,
		Role:           store.RoleAssistant,
		Content:        reply,
	}
	if err := s.messages.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("%s: store assistant message: %w", op, err)
	}

	logger.Info().Str("transition", transition).Int("history", len(history)).Bool("grounded", contextText != "").Msg("turn completed")
	return &AskResponse{ConversationID: res.ConversationID, Reply: reply, New: res.New}, nil
}

func (s *ChatService) complete(ctx context.Context, prompt string, history []llm.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.llm.Complete(ctx, prompt, history)
	metrics.LLMDuration.WithLabelValues(metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	return reply, err
}

// ListSession returns the conversation oldest first; an unknown conversation
// yields an empty slice.
func (s *ChatService) ListSession(ctx context.Context, conversationID, userID uuid.UUID) ([]store.Message, error) {
	msgs, err := s.messages.ListMessages(ctx, conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("list session: %w", err)
	}
	return msgs, nil
}

// DeleteSession removes every message of the conversation and returns the count.
func (s *ChatService) DeleteSession(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	n, err := s.messages.DeleteConversation(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, notFound("delete session", "No chat session found with id: "+conversationID.String(), err)
		}
		return 0, fmt.Errorf("delete session: %w", err)
	}
	log.Info().Str("conversation_id", conversationID.String()).Int64("messages", n).Msg("session deleted")
	return n, nil
}

func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]store.ConversationSummary, error) {
	convs, err := s.messages.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

func deriveTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxTitleLength {
		return text
	}
	runes := []rune(text)[:maxTitleLength]
	if i := strings.LastIndex(string(runes), " "); i > maxTitleLength/2 {
		return string(runes)[:i] + "..."
	}
	return string(runes) + "..."
}
