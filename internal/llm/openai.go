package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"lexora.io/legal-assistant/internal/store"
)

const DefaultOpenAIModel = openai.GPT4oMini

type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient also works against OpenAI-compatible gateways when baseURL is set.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

// Raw exposes the underlying SDK client for the embedder.
func (c *OpenAIClient) Raw() *openai.Client {
	return c.client
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, history []Turn) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: openAIMessages(prompt, history),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIRole(r store.Role) string {
	switch r {
	case store.RoleUser, store.RoleProfessional, store.RoleAdministrator:
		return openai.ChatMessageRoleUser
	case store.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func openAIMessages(prompt string, history []Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemInstruction})
	for _, t := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openAIRole(t.Role), Content: t.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
}
