// Package wallet talks to the agent-controlled wallet collaborator and the
// chain RPC. The agent answers natural-language operations (address lookup,
// vault creation, contract deploy, mint, fund movement), so every reply goes
// through a defensive decoder before the rest of the system sees it.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AgentClient sends one natural-language instruction to the wallet/agent
// collaborator, scoped to a debate, and returns its free-form reply.
type AgentClient interface {
	Chat(ctx context.Context, debateID, message string) (string, error)
}

// AgentError reports a failed collaborator call.
type AgentError struct {
	Op  string
	Err error
}

func (e *AgentError) Error() string { return fmt.Sprintf("agent %s: %v", e.Op, e.Err) }
func (e *AgentError) Unwrap() error { return e.Err }

// HTTPAgentClient is the production AgentClient over POST {base}/chat.
type HTTPAgentClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAgentClient(baseURL string, timeout time.Duration) *HTTPAgentClient {
	return &HTTPAgentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPAgentClient) Chat(ctx context.Context, debateID, message string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"debate_id": debateID,
		"message":   message,
	})
	if err != nil {
		return "", &AgentError{Op: "chat", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", &AgentError{Op: "chat", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &AgentError{Op: "chat", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AgentError{Op: "chat", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &AgentError{Op: "chat", Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))}
	}

	var decoded struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &AgentError{Op: "chat", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return decoded.Response, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
