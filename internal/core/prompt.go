package core

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/google/uuid"

	"lexora.io/legal-assistant/internal/store"
)

const defaultPromptTemplate = `You are assisting {{.FullName}}, who is signed in as {{.RoleDescription}}.
Conversation: {{.ConversationID}}

Answer using the passages below from the indexed legal documents. If they do not contain the answer, say so plainly.
--- CONTEXT START ---
{{if .Context}}{{.Context}}{{else}}(no matching passages){{end}}
--- CONTEXT END ---

Question from {{.Role}}: {{.Message}}`

type PromptData struct {
	FullName       string
	ConversationID uuid.UUID
	Role           store.Role
	Message        string
	Context        string
}

// RoleDescription phrases the role for the model.
func (d PromptData) RoleDescription() string {
	switch d.Role {
	case store.RoleUser:
		return "a member of the public; avoid jargon and suggest consulting a professional for case-specific advice"
	case store.RoleProfessional:
		return "a legal professional; precise terminology and clause references are welcome"
	case store.RoleAdministrator:
		return "an administrator of this service"
	case store.RoleAssistant:
		return "the assistant"
	default:
		return "an unknown role"
	}
}

type PromptTemplate struct {
	tmpl *template.Template
}

// NewPromptTemplate parses text, or the built-in template when text is empty.
func NewPromptTemplate(text string) (*PromptTemplate, error) {
	if strings.TrimSpace(text) == "" {
		text = defaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &PromptTemplate{tmpl: tmpl}, nil
}

func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		return NewPromptTemplate("")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt template %s: %w", path, err)
	}
	return NewPromptTemplate(string(b))
}

func (p *PromptTemplate) Render(data PromptData) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}
