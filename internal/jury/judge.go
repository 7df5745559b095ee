// Package jury evaluates debate messages with independent AI juror personas.
// Each juror is a pure function of its inputs; nothing is shared between
// jurors, which is what makes the concurrent fan-out in engine.go safe.
package jury

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Nucleus-Lab/daocouncil/internal/db"
	"github.com/Nucleus-Lab/daocouncil/internal/llm"
)

// Verdict is one juror's output for one message: a side choice (nil when the
// juror stays undecided) and its reasoning.
type Verdict struct {
	Decision  *int
	Reasoning string
}

// JudgeInput carries everything a juror sees for one evaluation round.
type JudgeInput struct {
	Persona        string
	Topic          string
	Sides          []string
	History        []db.Message
	NewMessage     db.Message
	PriorDecision  *int
	PriorReasoning string
}

// Judge evaluates one juror against one new message.
type Judge interface {
	Judge(ctx context.Context, in JudgeInput) (Verdict, error)
}

// LLMJudge renders the juror prompt through the LLM client and parses the
// reply defensively.
type LLMJudge struct {
	client *llm.Client
	model  string
}

func NewLLMJudge(client *llm.Client, model string) *LLMJudge {
	return &LLMJudge{client: client, model: model}
}

func (j *LLMJudge) Judge(ctx context.Context, in JudgeInput) (Verdict, error) {
	resp, err := j.client.Complete(ctx, llm.Request{
		Model: j.model,
		Messages: []llm.Message{
			{Role: "system", Content: judgeSystemPrompt},
			{Role: "user", Content: renderJudgePrompt(in)},
		},
		MaxTokens: 1024,
	})
	if err != nil {
		return Verdict{}, err
	}
	return parseVerdict(resp.Content, len(in.Sides))
}

const judgeSystemPrompt = `You are a juror in a DAO debate. Given the topic, the sides, the
conversation so far and the newest message, decide which side is more correct.

Answer in exactly this format:
Reasoning: <one short paragraph>
Choice: <the number of the side you pick, or "undecided">`

func renderJudgePrompt(in JudgeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Persona: %s\n\n", in.Persona)
	fmt.Fprintf(&b, "Topic: %s\n\nSides:\n", in.Topic)
	for i, side := range in.Sides {
		fmt.Fprintf(&b, "  %d. %s\n", i, side)
	}
	b.WriteString("\nConversation history:\n")
	for _, m := range in.History {
		fmt.Fprintf(&b, "  %s: %s\n", m.AuthorName, m.Body)
	}
	fmt.Fprintf(&b, "\nNew message:\n  %s: %s\n", in.NewMessage.AuthorName, in.NewMessage.Body)
	if in.PriorDecision != nil {
		fmt.Fprintf(&b, "\nYour previous choice was side %d.", *in.PriorDecision)
	} else {
		b.WriteString("\nYou were previously undecided.")
	}
	if in.PriorReasoning != "" {
		fmt.Fprintf(&b, "\nYour previous reasoning: %s\n", in.PriorReasoning)
	}
	b.WriteString("\nReconsider in light of the new message.")
	return b.String()
}

var (
	choiceRe    = regexp.MustCompile(`(?im)^\s*choice\s*[:：]\s*"?(\d+|undecided)"?`)
	reasoningRe = regexp.MustCompile(`(?is)reasoning\s*[:：]\s*(.+?)(?:\n\s*choice\s*[:：]|\z)`)
)

// parseVerdict extracts the choice and reasoning from a juror reply. An
// out-of-range side index is an error here rather than a coerced value, so a
// malformed round never pollutes the persisted decision history.
func parseVerdict(reply string, numSides int) (Verdict, error) {
	var v Verdict

	m := choiceRe.FindStringSubmatch(reply)
	if m == nil {
		return Verdict{}, fmt.Errorf("no choice found in juror reply: %s", snippet(reply))
	}
	if !strings.EqualFold(m[1], "undecided") {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Verdict{}, fmt.Errorf("malformed choice %q in juror reply", m[1])
		}
		if n < 0 || n >= numSides {
			return Verdict{}, fmt.Errorf("juror chose side %d outside valid sides [0,%d)", n, numSides)
		}
		v.Decision = &n
	}

	if r := reasoningRe.FindStringSubmatch(reply); r != nil {
		v.Reasoning = strings.TrimSpace(r[1])
	}
	return v, nil
}

func snippet(s string) string {
	if len(s) <= 120 {
		return s
	}
	return s[:120] + "..."
}
