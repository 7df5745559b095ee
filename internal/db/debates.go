package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Debate status lifecycle. Transitions are monotonic:
// active -> ended -> settling -> settled | failed.
const (
	StatusActive   = "active"
	StatusEnded    = "ended"
	StatusSettling = "settling"
	StatusSettled  = "settled"
	StatusFailed   = "failed"
)

type Debate struct {
	ID               string          `json:"id"`
	Topic            string          `json:"topic"`
	Sides            []string        `json:"sides"`
	Funding          decimal.Decimal `json:"funding"`
	Action           string          `json:"action"`
	CreatorAddress   string          `json:"creator_address"`
	Status           string          `json:"status"`
	MessageThreshold int             `json:"message_threshold"`
	CreatedAt        time.Time       `json:"created_at"`
}

type CreateDebateInput struct {
	Topic            string
	Sides            []string
	Funding          decimal.Decimal
	Action           string
	CreatorAddress   string
	MessageThreshold int
}

func (db *DB) CreateDebate(in CreateDebateInput) (*Debate, error) {
	sidesJSON, err := json.Marshal(in.Sides)
	if err != nil {
		return nil, fmt.Errorf("encoding sides: %w", err)
	}

	d := &Debate{
		ID:               NewID(),
		Topic:            in.Topic,
		Sides:            in.Sides,
		Funding:          in.Funding,
		Action:           in.Action,
		CreatorAddress:   in.CreatorAddress,
		Status:           StatusActive,
		MessageThreshold: in.MessageThreshold,
		CreatedAt:        time.Now().UTC(),
	}

	_, err = db.Exec(`
		INSERT INTO debates (id, topic, sides, funding, action, creator_address, status, message_threshold, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Topic, string(sidesJSON), d.Funding.String(), d.Action,
		d.CreatorAddress, d.Status, d.MessageThreshold, d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (db *DB) GetDebate(id string) (*Debate, error) {
	row := db.QueryRow(`
		SELECT id, topic, sides, funding, action, creator_address, status, message_threshold, created_at
		FROM debates WHERE id = ?`, id)
	return scanDebate(row)
}

func scanDebate(row *sql.Row) (*Debate, error) {
	var d Debate
	var sidesJSON, funding string
	err := row.Scan(&d.ID, &d.Topic, &sidesJSON, &funding, &d.Action,
		&d.CreatorAddress, &d.Status, &d.MessageThreshold, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sidesJSON), &d.Sides); err != nil {
		return nil, fmt.Errorf("decoding sides: %w", err)
	}
	d.Funding, err = decimal.NewFromString(funding)
	if err != nil {
		return nil, fmt.Errorf("decoding funding: %w", err)
	}
	return &d, nil
}

// EndDebate flips an active debate to ended. Returns true only for the call
// that performed the transition, so two concurrent threshold crossings elect
// exactly one winner.
func (db *DB) EndDebate(id string) (bool, error) {
	res, err := db.Exec(`UPDATE debates SET status = ? WHERE id = ? AND status = ?`,
		StatusEnded, id, StatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AdvanceDebateStatus moves a debate from one status to the next. Returns
// ErrNotFound if the debate is not currently in the expected status.
func (db *DB) AdvanceDebateStatus(id, from, to string) error {
	res, err := db.Exec(`UPDATE debates SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("debate %s not in status %q: %w", id, from, ErrNotFound)
	}
	return nil
}
