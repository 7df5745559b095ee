package jury

import (
	"context"
	"strings"
	"testing"

	"github.com/Nucleus-Lab/daocouncil/internal/db"
	"github.com/Nucleus-Lab/daocouncil/internal/llm"
)

type cannedProvider struct {
	content string
	prompts []string
}

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	for _, m := range req.Messages {
		p.prompts = append(p.prompts, m.Content)
	}
	return &llm.Response{Provider: "canned", Content: p.content}, nil
}

func TestGeneratePersonas(t *testing.T) {
	provider := &cannedProvider{content: "An economist.\n\nA skeptical artist.\nA protocol engineer.\n"}
	client := llm.New([]llm.Provider{provider})

	personas, err := GeneratePersonas(context.Background(), client, "", "Fund the grants program", 3)
	if err != nil {
		t.Fatalf("GeneratePersonas: %v", err)
	}
	if len(personas) != 3 {
		t.Fatalf("personas = %d, want 3", len(personas))
	}
	if personas[0] != "An economist." || personas[2] != "A protocol engineer." {
		t.Errorf("personas = %v", personas)
	}
}

func TestGeneratePersonasTooFew(t *testing.T) {
	provider := &cannedProvider{content: "Only one persona."}
	client := llm.New([]llm.Provider{provider})

	if _, err := GeneratePersonas(context.Background(), client, "", "topic", 3); err == nil {
		t.Error("GeneratePersonas succeeded with too few personas")
	}
}

func TestGeneratePersonasTruncatesExtras(t *testing.T) {
	provider := &cannedProvider{content: "a\nb\nc\nd\ne"}
	client := llm.New([]llm.Provider{provider})

	personas, err := GeneratePersonas(context.Background(), client, "", "topic", 2)
	if err != nil {
		t.Fatalf("GeneratePersonas: %v", err)
	}
	if len(personas) != 2 {
		t.Errorf("personas = %d, want 2", len(personas))
	}
}

func TestSummarizeIncludesMessages(t *testing.T) {
	provider := &cannedProvider{content: "## Summary\nEveryone mostly agrees."}
	client := llm.New([]llm.Provider{provider})

	debate := &db.Debate{
		ID:    "d1",
		Topic: "Fund the grants program",
		Sides: []string{"Approve", "Reject"},
	}
	messages := []db.Message{
		{AuthorName: "alice", Body: "The track record is strong."},
	}

	summary, err := Summarize(context.Background(), client, "", debate, messages)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.HasPrefix(summary, "## Summary") {
		t.Errorf("summary = %q", summary)
	}

	var sawMessage bool
	for _, prompt := range provider.prompts {
		if strings.Contains(prompt, "alice: The track record is strong.") {
			sawMessage = true
		}
	}
	if !sawMessage {
		t.Error("summary prompt did not include the debate messages")
	}
}
