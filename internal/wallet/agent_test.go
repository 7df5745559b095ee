package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPAgentClientChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("path = %q, want /chat", r.URL.Path)
		}
		var req struct {
			DebateID string `json:"debate_id"`
			Message  string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.DebateID != "d1" {
			t.Errorf("debate_id = %q, want d1", req.DebateID)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "hello from agent"})
	}))
	defer srv.Close()

	client := NewHTTPAgentClient(srv.URL, 5*time.Second)
	reply, err := client.Chat(context.Background(), "d1", "what is your address?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "hello from agent" {
		t.Errorf("reply = %q", reply)
	}
}

func TestHTTPAgentClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPAgentClient(srv.URL, 5*time.Second)
	_, err := client.Chat(context.Background(), "d1", "deploy the contract")
	var agentErr *AgentError
	if !errors.As(err, &agentErr) {
		t.Fatalf("error = %v, want *AgentError", err)
	}
}
