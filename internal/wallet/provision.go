package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Nucleus-Lab/daocouncil/internal/db"
)

// Provisioner obtains the agent wallet and a dedicated custodial vault for a
// debate, exactly once.
type Provisioner struct {
	db    *db.DB
	agent AgentClient
}

func NewProvisioner(database *db.DB, agent AgentClient) *Provisioner {
	return &Provisioner{db: database, agent: agent}
}

// Initialize returns the debate's wallet record, creating it on first call.
// Idempotent: an existing record is returned unchanged without any agent
// call — duplicate vault creation for the same debate is a correctness bug,
// not a retry opportunity.
func (p *Provisioner) Initialize(ctx context.Context, debateID string) (*db.WalletRecord, error) {
	if existing, err := p.db.GetWalletRecord(debateID); err == nil {
		return existing, nil
	} else if err != db.ErrNotFound {
		return nil, err
	}

	agentReply, err := p.agent.Chat(ctx, debateID, "What is your agent wallet address?")
	if err != nil {
		return nil, fmt.Errorf("looking up agent wallet: %w", err)
	}
	agentAddr, err := ParseAddress(agentReply)
	if err != nil {
		return nil, fmt.Errorf("looking up agent wallet: %w", err)
	}

	vaultReply, err := p.agent.Chat(ctx, debateID,
		`Create a new custodial wallet for this debate. This will be the vault holding the debate's funds. `+
			`Reply with the wallet address and ID as JSON, for example: `+
			`{"wallet_address": "0x1234567890123456789012345678901234567890", "wallet_id": "1234567890"}`)
	if err != nil {
		return nil, fmt.Errorf("creating vault wallet: %w", err)
	}
	vault, err := ParseVaultReply(vaultReply)
	if err != nil {
		return nil, fmt.Errorf("creating vault wallet: %w", err)
	}

	record := db.WalletRecord{
		DebateID:     debateID,
		AgentAddress: agentAddr,
		VaultAddress: vault.Address,
		VaultID:      vault.ID,
	}
	if err := p.db.CreateWalletRecord(record); err != nil {
		return nil, fmt.Errorf("storing wallet record: %w", err)
	}

	slog.Info("provisioned debate wallets", "debate_id", debateID,
		"agent_address", record.AgentAddress, "vault_address", record.VaultAddress)
	return &record, nil
}
