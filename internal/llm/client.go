// Package llm provides a provider-agnostic LLM completion client with a
// fallback chain across configured providers. Juror judgments, persona
// generation and debate summaries all run through it.
package llm

import (
	"context"
	"time"
)

// Message is a chat message (system/user/assistant).
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Response is a provider-agnostic completion response.
type Response struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Content  string        `json:"content"`
	Latency  time.Duration `json:"latency_ms"`
}

// Provider is a single LLM API backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client sends completion requests, falling back across providers in the
// order they were configured.
type Client struct {
	providers map[string]Provider
	fallback  []string
}

func New(providers []Provider) *Client {
	m := make(map[string]Provider, len(providers))
	order := make([]string, 0, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
		order = append(order, p.Name())
	}
	return &Client{providers: m, fallback: order}
}

// Complete routes a request. A "provider/model" prefix in req.Model pins the
// provider; otherwise each provider is tried in fallback order.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	provider, model := splitModel(req.Model)
	if provider != "" {
		req.Model = model
		if p, ok := c.providers[provider]; ok {
			return p.Complete(ctx, req)
		}
		return nil, &ProviderError{Provider: provider, Err: ErrProviderNotFound}
	}

	var lastErr error
	for _, name := range c.fallback {
		resp, err := c.providers[name].Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = ErrNoProviders
	}
	return nil, lastErr
}

// Providers returns the configured provider names in fallback order.
func (c *Client) Providers() []string {
	return c.fallback
}

func splitModel(model string) (provider, name string) {
	for i, r := range model {
		if r == '/' {
			return model[:i], model[i+1:]
		}
	}
	return "", model
}
