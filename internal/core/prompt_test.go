package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexora.io/legal-assistant/internal/store"
)

func TestPromptTemplate_Default(t *testing.T) {
	p, err := NewPromptTemplate("")
	require.NoError(t, err)
	conv := uuid.New()

	out, err := p.Render(PromptData{
		FullName:       "Ada Counsel",
		ConversationID: conv,
		Role:           store.RoleUser,
		Message:        "How much notice must I give?",
		Context:        "Thirty days notice is required.",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Counsel")
	assert.Contains(t, out, conv.String())
	assert.Contains(t, out, "member of the public")
	assert.Contains(t, out, "Question from user: How much notice must I give?")
	assert.Contains(t, out, "Thirty days notice is required.")

	out, err = p.Render(PromptData{Role: store.RoleUser, Message: "x"})
	require.NoError(t, err)
	assert.Contains(t, out, "(no matching passages)")
}

func TestPromptTemplate_RoleDescriptionCoversEveryRole(t *testing.T) {
	for _, r := range store.Roles {
		assert.NotEqual(t, "an unknown role", PromptData{Role: r}.RoleDescription(), r.String())
	}
}

func TestPromptTemplate_Errors(t *testing.T) {
	_, err := NewPromptTemplate("{{.Message")
	assert.Error(t, err)

	p, err := NewPromptTemplate("{{.Missing}}")
	require.NoError(t, err)
	_, err = p.Render(PromptData{})
	assert.Error(t, err)
}

func TestLoadPromptTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{.FullName}} asks: {{.Message}}"), 0o600))

	p, err := LoadPromptTemplate(path)
	require.NoError(t, err)
	out, err := p.Render(PromptData{FullName: "Ada", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Ada asks: hello", out)

	_, err = LoadPromptTemplate(filepath.Join(t.TempDir(), "missing.tmpl"))
	assert.Error(t, err)
}
