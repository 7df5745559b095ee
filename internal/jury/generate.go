package jury

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nucleus-Lab/daocouncil/internal/db"
	"github.com/Nucleus-Lab/daocouncil/internal/llm"
)

// GeneratePersonas asks the LLM for n distinct juror personas representing a
// diverse group of stakeholders in the topic. Used when a debate is created
// without explicit personas.
func GeneratePersonas(ctx context.Context, client *llm.Client, model, topic string, n int) ([]string, error) {
	resp, err := client.Complete(ctx, llm.Request{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: fmt.Sprintf(
				`Generate %d juror personas for a debate. Each persona is one short paragraph.
Personas must be distinct from each other and represent a diverse group of
stakeholders. Output one persona per line, no numbering, no other text.`, n)},
			{Role: "user", Content: "Topic: " + topic},
		},
		Temperature: 0.9,
		MaxTokens:   2048,
	})
	if err != nil {
		return nil, err
	}

	var personas []string
	for _, line := range strings.Split(resp.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		personas = append(personas, line)
		if len(personas) == n {
			break
		}
	}
	if len(personas) < n {
		return nil, fmt.Errorf("expected %d personas, got %d", n, len(personas))
	}
	return personas, nil
}

// Summarize produces a short markdown summary of a debate, grouping points
// by side. Informational only; settlement does not gate on it.
func Summarize(ctx context.Context, client *llm.Client, model string, debate *db.Debate, messages []db.Message) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nSides:\n", debate.Topic)
	for i, side := range debate.Sides {
		fmt.Fprintf(&b, "  %d. %s\n", i, side)
	}
	b.WriteString("\nMessages:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "  %s: %s\n", m.AuthorName, m.Body)
	}

	resp, err := client.Complete(ctx, llm.Request{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: `Summarize the debate in markdown.
List the main points grouped by side, keep it short and simple, and close
with one line on the overall sentiment.`},
			{Role: "user", Content: b.String()},
		},
		MaxTokens: 1024,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
