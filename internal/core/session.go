package core

import (
	"context"

	"github.com/google/uuid"
)

// Resolution is the outcome of mapping an incoming conversation id to the id
// the turn will be stored under.
type Resolution struct {
	ConversationID uuid.UUID
	// New is true when this turn opens the conversation.
	New bool
}

// SessionResolver decides between continuing a conversation and minting a new one.
type SessionResolver interface {
	Resolve(ctx context.Context, requested *uuid.UUID, userID uuid.UUID) (Resolution, error)
}

// CheckThenMint looks for prior messages and mints a fresh id when there are
// none. The check and the first write are separate round trips, so two
// concurrent first turns for the same requested id mint two conversations.
type CheckThenMint struct {
	messages MessageStore
	newID    func() uuid.UUID
}

func NewCheckThenMint(messages MessageStore) *CheckThenMint {
	return &CheckThenMint{messages: messages, newID: uuid.New}
}

func (r *CheckThenMint) Resolve(ctx context.Context, requested *uuid.UUID, userID uuid.UUID) (Resolution, error) {
	if requested == nil || *requested == uuid.Nil {
		return Resolution{ConversationID: r.newID(), New: true}, nil
	}
	exists, err := r.messages.ConversationExists(ctx, *requested, userID)
	if err != nil {
		return Resolution{}, err
	}
	if exists {
		return Resolution{ConversationID: *requested}, nil
	}
	return Resolution{ConversationID: r.newID(), New: true}, nil
}

// ClaimResolver closes the first-turn race with an atomic insert-or-return on
// (requested id, user id): every first turn for the same requested id
// resolves to whichever minted id was claimed first.
type ClaimResolver struct {
	messages MessageStore
	newID    func() uuid.UUID
}

func NewClaimResolver(messages MessageStore) *ClaimResolver {
	return &ClaimResolver{messages: messages, newID: uuid.New}
}

func (r *ClaimResolver) Resolve(ctx context.Context, requested *uuid.UUID, userID uuid.UUID) (Resolution, error) {
	if requested == nil || *requested == uuid.Nil {
		return Resolution{ConversationID: r.newID(), New: true}, nil
	}
	exists, err := r.messages.ConversationExists(ctx, *requested, userID)
	if err != nil {
		return Resolution{}, err
	}
	if exists {
		return Resolution{ConversationID: *requested}, nil
	}

	minted := r.newID()
	resolved, err := r.messages.ClaimConversation(ctx, *requested, userID, minted)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{ConversationID: resolved, New: resolved == minted}, nil
}

// NewSessionResolver maps the configured strategy name to a resolver.
func NewSessionResolver(strategy string, messages MessageStore) SessionResolver {
	if strategy == "check" {
		return NewCheckThenMint(messages)
	}
	return NewClaimResolver(messages)
}
