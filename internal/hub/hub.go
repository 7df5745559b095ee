// Package hub delivers debate lifecycle events to connected websocket
// observers. Registration is in-memory only: an observer connecting after an
// event fired does not receive it and must fetch durable state separately.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is the wire shape pushed to observers. Consumers must tolerate
// event types they do not recognize.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Well-known event types.
const (
	EventNewMessage          = "new_message"
	EventJurorResponse       = "juror_response"
	EventDebateSummary       = "debate_summary"
	EventSettlementProgress  = "settlement_progress"
	EventSettlementFailed    = "settlement_failed"
	EventSettlementCompleted = "settlement_completed"
)

// Observer is one connected client of one debate. Writes are serialized
// through the observer's own mutex so concurrent broadcasts cannot
// interleave frames.
type Observer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func NewObserver(encoder *json.Encoder) *Observer {
	return &Observer{encoder: encoder}
}

func (o *Observer) send(ev Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.encoder.Encode(ev)
}

// Hub maps debate ids to their connected observers.
type Hub struct {
	mu      sync.Mutex
	debates map[string]map[*Observer]struct{}
}

func New() *Hub {
	return &Hub{debates: make(map[string]map[*Observer]struct{})}
}

// Connect registers an observer for a debate. Idempotent.
func (h *Hub) Connect(debateID string, o *Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	observers, ok := h.debates[debateID]
	if !ok {
		observers = make(map[*Observer]struct{})
		h.debates[debateID] = observers
	}
	observers[o] = struct{}{}
}

// Disconnect removes an observer. Idempotent.
func (h *Hub) Disconnect(debateID string, o *Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	observers, ok := h.debates[debateID]
	if !ok {
		return
	}
	delete(observers, o)
	if len(observers) == 0 {
		delete(h.debates, debateID)
	}
}

// ObserverCount returns how many observers are connected to a debate.
func (h *Hub) ObserverCount(debateID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.debates[debateID])
}

// Broadcast sends an event to every observer of a debate. A failed send
// drops that observer silently; delivery to the rest continues and nothing
// propagates to the caller.
func (h *Hub) Broadcast(debateID string, ev Event) {
	h.mu.Lock()
	observers := make([]*Observer, 0, len(h.debates[debateID]))
	for o := range h.debates[debateID] {
		observers = append(observers, o)
	}
	h.mu.Unlock()

	for _, o := range observers {
		if err := o.send(ev); err != nil {
			slog.Debug("dropping stale observer", "debate_id", debateID, "event", ev.Type, "error", err)
			h.Disconnect(debateID, o)
		}
	}
}
