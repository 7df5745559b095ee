package db

import (
	"database/sql"
	"time"
)

type Juror struct {
	DebateID string `json:"debate_id"`
	JurorID  int    `json:"juror_id"`
	Persona  string `json:"persona"`
}

// JurorResult is one juror's decision snapshot for one triggering message.
// A NULL decision means the juror stayed undecided that round.
type JurorResult struct {
	ID        string    `json:"id"`
	DebateID  string    `json:"debate_id"`
	JurorID   int       `json:"juror_id"`
	MessageID string    `json:"message_id"`
	Decision  *int      `json:"decision"`
	Reasoning string    `json:"reasoning"`
	CreatedAt time.Time `json:"created_at"`
}

func (db *DB) CreateJuror(debateID string, jurorID int, persona string) error {
	_, err := db.Exec(`INSERT INTO jurors (debate_id, juror_id, persona) VALUES (?, ?, ?)`,
		debateID, jurorID, persona)
	return err
}

func (db *DB) GetJurors(debateID string) ([]Juror, error) {
	rows, err := db.Query(`
		SELECT debate_id, juror_id, persona FROM jurors
		WHERE debate_id = ? ORDER BY juror_id`, debateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jurors []Juror
	for rows.Next() {
		var j Juror
		if err := rows.Scan(&j.DebateID, &j.JurorID, &j.Persona); err != nil {
			return nil, err
		}
		jurors = append(jurors, j)
	}
	return jurors, rows.Err()
}

// CreateJurorResults persists one evaluation round as a batch. Jurors whose
// calls failed are simply absent from the batch.
func (db *DB) CreateJurorResults(results []JurorResult) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range results {
		r := &results[i]
		if r.ID == "" {
			r.ID = NewID()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		_, err := tx.Exec(`
			INSERT INTO juror_results (id, debate_id, juror_id, message_id, decision, reasoning, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.DebateID, r.JurorID, r.MessageID, r.Decision, r.Reasoning, r.CreatedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetJurorResults returns one juror's decision history in round order.
func (db *DB) GetJurorResults(debateID string, jurorID int) ([]JurorResult, error) {
	rows, err := db.Query(`
		SELECT id, debate_id, juror_id, message_id, decision, reasoning, created_at
		FROM juror_results WHERE debate_id = ? AND juror_id = ?
		ORDER BY created_at, id`, debateID, jurorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJurorResults(rows)
}

// GetAllJurorResults returns the full decision history of every juror,
// grouped by juror in ascending juror_id order.
func (db *DB) GetAllJurorResults(debateID string) ([][]JurorResult, error) {
	rows, err := db.Query(`SELECT DISTINCT juror_id FROM juror_results WHERE debate_id = ? ORDER BY juror_id`, debateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jurorIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		jurorIDs = append(jurorIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	grouped := make([][]JurorResult, 0, len(jurorIDs))
	for _, id := range jurorIDs {
		results, err := db.GetJurorResults(debateID, id)
		if err != nil {
			return nil, err
		}
		grouped = append(grouped, results)
	}
	return grouped, nil
}

// GetLatestDecisions returns each juror's most recent decision snapshot,
// keyed by juror_id. Jurors that never produced a snapshot are absent.
// Recency follows the triggering message's position in the debate, so a slow
// round for an older message can never overwrite the decision a newer
// message already produced.
func (db *DB) GetLatestDecisions(debateID string) (map[int]JurorResult, error) {
	rows, err := db.Query(`
		SELECT r.id, r.debate_id, r.juror_id, r.message_id, r.decision, r.reasoning, r.created_at
		FROM juror_results r
		JOIN messages m ON m.id = r.message_id
		WHERE r.debate_id = ?
		ORDER BY m.created_at, m.id, r.created_at, r.id`, debateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := scanJurorResults(rows)
	if err != nil {
		return nil, err
	}
	latest := make(map[int]JurorResult, len(results))
	for _, r := range results {
		latest[r.JurorID] = r
	}
	return latest, nil
}

func scanJurorResults(rows *sql.Rows) ([]JurorResult, error) {
	var results []JurorResult
	for rows.Next() {
		var r JurorResult
		if err := rows.Scan(&r.ID, &r.DebateID, &r.JurorID, &r.MessageID,
			&r.Decision, &r.Reasoning, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
