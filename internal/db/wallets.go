package db

import (
	"database/sql"
	"time"
)

// WalletRecord maps a debate to its agent wallet and custodial vault.
// Created exactly once per debate, immutable thereafter.
type WalletRecord struct {
	DebateID     string    `json:"debate_id"`
	AgentAddress string    `json:"agent_address"`
	VaultAddress string    `json:"vault_address"`
	VaultID      string    `json:"vault_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (db *DB) CreateWalletRecord(w WalletRecord) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(`
		INSERT INTO wallets (debate_id, agent_address, vault_address, vault_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		w.DebateID, w.AgentAddress, w.VaultAddress, w.VaultID, w.CreatedAt)
	return err
}

func (db *DB) GetWalletRecord(debateID string) (*WalletRecord, error) {
	var w WalletRecord
	err := db.QueryRow(`
		SELECT debate_id, agent_address, vault_address, vault_id, created_at
		FROM wallets WHERE debate_id = ?`, debateID).
		Scan(&w.DebateID, &w.AgentAddress, &w.VaultAddress, &w.VaultID, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
