package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"

	"lexora.io/legal-assistant/internal/store"
)

const DefaultGeminiModel = "gemini-1.5-flash-latest"

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(client *genai.Client, model string) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model}
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string, history []Turn) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}

	chatSession := model.StartChat()
	chatSession.History = geminiHistory(history)

	resp, err := chatSession.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Debug().Str("part_type", fmt.Sprintf("%T", part)).Msg("ignoring non-text gemini part")
		}
	}
	if strings.TrimSpace(responseText.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return responseText.String(), nil
}

func geminiRole(r store.Role) string {
	switch r {
	case store.RoleUser, store.RoleProfessional, store.RoleAdministrator:
		return "user"
	case store.RoleAssistant:
		return "model"
	default:
		return "user"
	}
}

// geminiHistory drops leading model turns and merges consecutive turns of the
// same role, since the API expects alternating turns that open with the user.
func geminiHistory(history []Turn) []*genai.Content {
	var contents []*genai.Content
	for _, t := range history {
		role := geminiRole(t.Role)
		if len(contents) == 0 && role == "model" {
			continue
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.Text(t.Content))
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	// The next SendMessage is a user turn, so history must end on the model.
	if n := len(contents); n > 0 && contents[n-1].Role == "user" {
		contents = contents[:n-1]
	}
	return contents
}
