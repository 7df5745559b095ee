package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Settlement step markers. A settlement walks
// pending -> vault_verified -> contract_deployed -> minted -> action_executed -> completed,
// or jumps to failed from any step.
const (
	StepPending        = "pending"
	StepVaultVerified  = "vault_verified"
	StepDeployed       = "contract_deployed"
	StepMinted         = "minted"
	StepActionExecuted = "action_executed"
	StepCompleted      = "completed"
	StepFailed         = "failed"
)

// MintOutcome records one recipient's mint attempt. Partial failure across
// recipients is a normal settlement outcome, not an error.
type MintOutcome struct {
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	Detail    string `json:"detail"`
}

type SettlementResult struct {
	DebateID    string          `json:"debate_id"`
	Step        string          `json:"step"`
	NFTContract string          `json:"nft_contract,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Tally       json.RawMessage `json:"tally"`
	Mints       []MintOutcome   `json:"mints"`
	ActionLog   string          `json:"action_log,omitempty"`
	FailedStep  string          `json:"failed_step,omitempty"`
	Failure     string          `json:"failure,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateSettlement inserts the initial pending settlement row for a debate.
func (db *DB) CreateSettlement(debateID string) error {
	_, err := db.Exec(`INSERT INTO settlements (debate_id) VALUES (?)`, debateID)
	return err
}

func (db *DB) GetSettlement(debateID string) (*SettlementResult, error) {
	var s SettlementResult
	var tally, mints string
	err := db.QueryRow(`
		SELECT debate_id, step, nft_contract, summary, tally, mints, action_log, failed_step, failure, created_at, updated_at
		FROM settlements WHERE debate_id = ?`, debateID).
		Scan(&s.DebateID, &s.Step, &s.NFTContract, &s.Summary, &tally, &mints,
			&s.ActionLog, &s.FailedStep, &s.Failure, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Tally = json.RawMessage(tally)
	if err := json.Unmarshal([]byte(mints), &s.Mints); err != nil {
		return nil, fmt.Errorf("decoding mint outcomes: %w", err)
	}
	return &s, nil
}

// UpdateSettlementStep advances the finished-step marker.
func (db *DB) UpdateSettlementStep(debateID, step string) error {
	return db.execSettlementUpdate(debateID, `step = ?`, step)
}

func (db *DB) SetSettlementSummary(debateID, summary string) error {
	return db.execSettlementUpdate(debateID, `summary = ?`, summary)
}

func (db *DB) SetSettlementContract(debateID, contract string) error {
	return db.execSettlementUpdate(debateID, `nft_contract = ?, step = ?`, contract, StepDeployed)
}

func (db *DB) SetSettlementTally(debateID string, tally any) error {
	data, err := json.Marshal(tally)
	if err != nil {
		return fmt.Errorf("encoding tally: %w", err)
	}
	return db.execSettlementUpdate(debateID, `tally = ?`, string(data))
}

func (db *DB) SetSettlementMints(debateID string, mints []MintOutcome) error {
	data, err := json.Marshal(mints)
	if err != nil {
		return fmt.Errorf("encoding mint outcomes: %w", err)
	}
	return db.execSettlementUpdate(debateID, `mints = ?, step = ?`, string(data), StepMinted)
}

func (db *DB) SetSettlementAction(debateID, actionLog string) error {
	return db.execSettlementUpdate(debateID, `action_log = ?, step = ?`, actionLog, StepActionExecuted)
}

// RecordSettlementFailure marks the settlement failed, remembering which step
// broke and the raw collaborator error.
func (db *DB) RecordSettlementFailure(debateID, failedStep, failure string) error {
	return db.execSettlementUpdate(debateID, `step = ?, failed_step = ?, failure = ?`,
		StepFailed, failedStep, failure)
}

func (db *DB) execSettlementUpdate(debateID, set string, args ...any) error {
	args = append(args, debateID)
	res, err := db.Exec(`UPDATE settlements SET `+set+`, updated_at = datetime('now') WHERE debate_id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("settlement for debate %s: %w", debateID, ErrNotFound)
	}
	return nil
}
