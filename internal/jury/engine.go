package jury

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/Nucleus-Lab/daocouncil/internal/db"
	"github.com/Nucleus-Lab/daocouncil/internal/hub"
)

// Engine re-judges every juror of a debate against each new message. It runs
// in the background, decoupled from message ingestion, so posting never
// blocks on LLM latency.
type Engine struct {
	db    *db.DB
	judge Judge
	hub   *hub.Hub
}

func NewEngine(database *db.DB, judge Judge, h *hub.Hub) *Engine {
	return &Engine{db: database, judge: judge, hub: h}
}

// RoundResult is the broadcast payload of one evaluation round, keyed by the
// triggering message so consumers can discard results that arrive after a
// newer message has already been judged.
type RoundResult struct {
	DebateID  string           `json:"debate_id"`
	MessageID string           `json:"message_id"`
	Results   []db.JurorResult `json:"results"`
	Failed    int              `json:"failed_jurors"`
}

// Evaluate fans out one judgment call per juror, waits for the whole round
// at the join barrier, persists the surviving snapshots as a batch and
// broadcasts the round. A single juror's failure never aborts the batch —
// that juror is simply absent from the round, its latest decision staying at
// the previous value.
func (e *Engine) Evaluate(ctx context.Context, debate *db.Debate, msg *db.Message) (*RoundResult, error) {
	jurors, err := e.db.GetJurors(debate.ID)
	if err != nil {
		return nil, err
	}
	history, err := e.db.GetMessages(debate.ID)
	if err != nil {
		return nil, err
	}
	// The triggering message is part of history by now; jurors see it once,
	// flagged as the new message.
	prior := history
	for i, m := range history {
		if m.ID == msg.ID {
			prior = append(history[:i:i], history[i+1:]...)
			break
		}
	}
	latest, err := e.db.GetLatestDecisions(debate.ID)
	if err != nil {
		return nil, err
	}

	verdicts := make([]*Verdict, len(jurors))
	var wg conc.WaitGroup
	for i, juror := range jurors {
		in := JudgeInput{
			Persona:    juror.Persona,
			Topic:      debate.Topic,
			Sides:      debate.Sides,
			History:    prior,
			NewMessage: *msg,
		}
		if prev, ok := latest[juror.JurorID]; ok {
			in.PriorDecision = prev.Decision
			in.PriorReasoning = prev.Reasoning
		}
		i, jurorID := i, juror.JurorID
		wg.Go(func() {
			v, err := e.judge.Judge(ctx, in)
			if err != nil {
				slog.Error("juror evaluation failed", "debate_id", debate.ID,
					"juror_id", jurorID, "message_id", msg.ID, "error", err)
				return
			}
			verdicts[i] = &v
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		// A panicking judge is isolated like a failed one; its slot stays nil.
		slog.Error("juror panicked", "debate_id", debate.ID, "message_id", msg.ID,
			"panic", recovered.Value)
	}

	round := &RoundResult{DebateID: debate.ID, MessageID: msg.ID}
	for i, v := range verdicts {
		if v == nil {
			round.Failed++
			continue
		}
		round.Results = append(round.Results, db.JurorResult{
			DebateID:  debate.ID,
			JurorID:   jurors[i].JurorID,
			MessageID: msg.ID,
			Decision:  v.Decision,
			Reasoning: v.Reasoning,
		})
	}

	if err := e.db.CreateJurorResults(round.Results); err != nil {
		return nil, err
	}
	e.hub.Broadcast(debate.ID, hub.Event{Type: hub.EventJurorResponse, Data: round})
	return round, nil
}
