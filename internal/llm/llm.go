package llm

import (
	"context"
	"errors"

	"lexora.io/legal-assistant/internal/store"
)

const SystemInstruction = "You are a legal information assistant. Answer using the provided context from the firm's legal documents. " +
	"If the answer is not found in the provided context, clearly state that you don't have the information. " +
	"Keep answers precise and cite the relevant clause when the context contains one. " +
	"Do not make up information and do not present your answer as formal legal advice."

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Turn is one prior message supplied to the model as conversation history.
type Turn struct {
	Role    store.Role
	Content string
}

// Client issues one blocking completion per call. Implementations never retry.
type Client interface {
	Complete(ctx context.Context, prompt string, history []Turn) (string, error)
}

var (
	_ Client = (*GeminiClient)(nil)
	_ Client = (*OpenAIClient)(nil)
)
