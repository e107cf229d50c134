package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexora.io/legal-assistant/internal/store"
)

func TestGeminiHistory(t *testing.T) {
	history := []Turn{
		{Role: store.RoleAssistant, Content: "orphaned reply"},
		{Role: store.RoleUser, Content: "q1"},
		{Role: store.RoleAssistant, Content: "a1"},
		{Role: store.RoleProfessional, Content: "q2"},
		{Role: store.RoleProfessional, Content: "q2 again"},
		{Role: store.RoleAssistant, Content: "a2"},
		{Role: store.RoleUser, Content: "unanswered"},
	}

	contents := geminiHistory(history)
	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("q1")}, contents[0].Parts)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "user", contents[2].Role)
	assert.Equal(t, []genai.Part{genai.Text("q2"), genai.Text("q2 again")}, contents[2].Parts)
	assert.Equal(t, "model", contents[3].Role)
}

func TestGeminiHistoryEmpty(t *testing.T) {
	assert.Empty(t, geminiHistory(nil))
	assert.Empty(t, geminiHistory([]Turn{{Role: store.RoleAssistant, Content: "x"}}))
}

func TestOpenAIMessages(t *testing.T) {
	msgs := openAIMessages("prompt", []Turn{
		{Role: store.RoleAdministrator, Content: "q"},
		{Role: store.RoleAssistant, Content: "a"},
	})
	require.Len(t, msgs, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "prompt", msgs[3].Content)
}
