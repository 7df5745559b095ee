// Package settlement runs the terminal state machine of a debate: verify the
// vault, summarize, deploy the record-NFT contract, mint to participants and
// conditionally execute the funding directive. It runs exactly once per
// debate, in the background, and tolerates partial mint failure.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/Nucleus-Lab/daocouncil/internal/config"
	"github.com/Nucleus-Lab/daocouncil/internal/consensus"
	"github.com/Nucleus-Lab/daocouncil/internal/db"
	"github.com/Nucleus-Lab/daocouncil/internal/hub"
	"github.com/Nucleus-Lab/daocouncil/internal/jury"
	"github.com/Nucleus-Lab/daocouncil/internal/llm"
	"github.com/Nucleus-Lab/daocouncil/internal/wallet"
)

// ErrAlreadySettling is returned when a second orchestrator run is requested
// for a debate whose settlement is active or done.
var ErrAlreadySettling = errors.New("settlement already active or completed for debate")

type Orchestrator struct {
	db    *db.DB
	agent wallet.AgentClient
	chain wallet.ChainReader
	hub   *hub.Hub
	llm   *llm.Client
	cfg   config.SettlementConfig
	model string

	mu     sync.Mutex
	claims map[string]bool // per-debate settlement lock
}

func NewOrchestrator(database *db.DB, agent wallet.AgentClient, chain wallet.ChainReader,
	h *hub.Hub, llmClient *llm.Client, model string, cfg config.SettlementConfig) *Orchestrator {
	return &Orchestrator{
		db:     database,
		agent:  agent,
		chain:  chain,
		hub:    h,
		llm:    llmClient,
		cfg:    cfg,
		model:  model,
		claims: make(map[string]bool),
	}
}

// claim takes the per-debate settlement lock. It is never released: at most
// one run may be active or have completed for a given debate.
func (o *Orchestrator) claim(debateID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.claims[debateID] {
		return false
	}
	o.claims[debateID] = true
	return true
}

// Settle executes the full settlement state machine for an ended debate.
// Any gating step's failure transitions the debate to failed, records the
// step and raw error, and stops further steps; there is no automatic resume.
func (o *Orchestrator) Settle(ctx context.Context, debateID string) error {
	if !o.claim(debateID) {
		return ErrAlreadySettling
	}
	if err := o.db.AdvanceDebateStatus(debateID, db.StatusEnded, db.StatusSettling); err != nil {
		return fmt.Errorf("claiming debate for settlement: %w", err)
	}
	if err := o.db.CreateSettlement(debateID); err != nil {
		return fmt.Errorf("creating settlement record: %w", err)
	}

	debate, err := o.db.GetDebate(debateID)
	if err != nil {
		return o.fail(debateID, "load", err)
	}

	// Vault verification: consume the wallet record provisioned at creation.
	record, err := o.db.GetWalletRecord(debateID)
	if err != nil {
		return o.fail(debateID, "vault", fmt.Errorf("no wallet record for debate: %w", err))
	}
	if err := o.db.UpdateSettlementStep(debateID, db.StepVaultVerified); err != nil {
		return o.fail(debateID, "vault", err)
	}
	o.progress(debateID, db.StepVaultVerified, map[string]any{
		"vault_address": record.VaultAddress,
	})

	// Tally the latest juror decisions. An invalid persisted decision index
	// is a consistency failure that blocks settlement.
	latest, err := o.db.GetLatestDecisions(debateID)
	if err != nil {
		return o.fail(debateID, "tally", err)
	}
	tally, err := consensus.Compute(latest, len(debate.Sides))
	if err != nil {
		return o.fail(debateID, "tally", err)
	}
	if err := o.db.SetSettlementTally(debateID, tally); err != nil {
		return o.fail(debateID, "tally", err)
	}

	messages, err := o.db.GetMessages(debateID)
	if err != nil {
		return o.fail(debateID, "load", err)
	}

	o.summarize(ctx, debate, messages)

	contract, err := o.deploy(ctx, debate)
	if err != nil {
		// Deployment has no side effect to undo; abort without rollback.
		return o.fail(debateID, "deploy", err)
	}
	if err := o.db.SetSettlementContract(debateID, contract); err != nil {
		return o.fail(debateID, "deploy", err)
	}
	o.progress(debateID, db.StepDeployed, map[string]any{"nft_contract": contract})

	mints, err := o.mintFanout(ctx, debate, contract)
	if err != nil {
		return o.fail(debateID, "mint", err)
	}
	if err := o.db.SetSettlementMints(debateID, mints); err != nil {
		return o.fail(debateID, "mint", err)
	}
	succeeded, failed := 0, 0
	for _, m := range mints {
		if m.Success {
			succeeded++
		} else {
			failed++
		}
	}
	o.progress(debateID, db.StepMinted, map[string]any{
		"minted":   succeeded,
		"failed":   failed,
		"outcomes": mints,
	})

	actionLog, err := o.executeAction(ctx, debate, record, tally)
	if err != nil {
		return o.fail(debateID, "action", err)
	}
	if err := o.db.SetSettlementAction(debateID, actionLog); err != nil {
		return o.fail(debateID, "action", err)
	}
	o.progress(debateID, db.StepActionExecuted, map[string]any{"action_log": actionLog})

	if err := o.db.UpdateSettlementStep(debateID, db.StepCompleted); err != nil {
		return o.fail(debateID, "complete", err)
	}
	if err := o.db.AdvanceDebateStatus(debateID, db.StatusSettling, db.StatusSettled); err != nil {
		return o.fail(debateID, "complete", err)
	}

	result, err := o.db.GetSettlement(debateID)
	if err != nil {
		return o.fail(debateID, "complete", err)
	}
	o.hub.Broadcast(debateID, hub.Event{Type: hub.EventSettlementCompleted, Data: result})
	slog.Info("settlement completed", "debate_id", debateID,
		"nft_contract", contract, "minted", succeeded, "mint_failures", failed)
	return nil
}

// summarize is informational and never gates settlement.
func (o *Orchestrator) summarize(ctx context.Context, debate *db.Debate, messages []db.Message) {
	if o.llm == nil {
		return
	}
	summary, err := jury.Summarize(ctx, o.llm, o.model, debate, messages)
	if err != nil {
		slog.Warn("debate summary failed", "debate_id", debate.ID, "error", err)
		return
	}
	if err := o.db.SetSettlementSummary(debate.ID, summary); err != nil {
		slog.Warn("storing debate summary failed", "debate_id", debate.ID, "error", err)
		return
	}
	o.hub.Broadcast(debate.ID, hub.Event{Type: hub.EventDebateSummary, Data: map[string]any{
		"debate_id": debate.ID,
		"summary":   summary,
	}})
}

// deploy asks the agent for a fresh record-NFT contract scoped to the
// debate. The contract carries a reference URI to the debate's durable
// record rather than inlined chat history.
func (o *Orchestrator) deploy(ctx context.Context, debate *db.Debate) (string, error) {
	recordURI := fmt.Sprintf("%s/%s", strings.TrimRight(o.cfg.RecordBaseURL, "/"), debate.ID)
	reply, err := o.agent.Chat(ctx, debate.ID, fmt.Sprintf(
		"Deploy a new NFT contract with the following parameters:\n"+
			"- name: 'Debate NFT %s'\n"+
			"- symbol: '%s'\n"+
			"- baseURI: '%s'\n"+
			"Deploy the contract with this base URI.",
		debate.ID, o.cfg.NFTSymbol, recordURI))
	if err != nil {
		return "", err
	}
	return wallet.ParseContractAddress(reply)
}

// mintFanout mints one record token per unique participant address, plus the
// creator even if they never posted. Attempts are isolated: a recipient's
// failure is recorded and does not block the rest. Partial success is the
// expected, non-error outcome — but failing to compute the recipient set at
// all fails the step, since every participant would be skipped unrecorded.
func (o *Orchestrator) mintFanout(ctx context.Context, debate *db.Debate, contract string) ([]db.MintOutcome, error) {
	recipients, err := o.db.GetParticipantAddresses(debate.ID)
	if err != nil {
		return nil, fmt.Errorf("listing mint recipients: %w", err)
	}
	seen := make(map[string]bool, len(recipients)+1)
	for _, r := range recipients {
		seen[r] = true
	}
	if !seen[debate.CreatorAddress] {
		recipients = append(recipients, debate.CreatorAddress)
	}

	outcomes := make([]db.MintOutcome, len(recipients))
	var wg conc.WaitGroup
	for i, recipient := range recipients {
		i, recipient := i, recipient
		wg.Go(func() {
			reply, err := o.agent.Chat(ctx, debate.ID, fmt.Sprintf(
				"Mint an NFT from contract %s to the address %s", contract, recipient))
			if err != nil {
				slog.Warn("mint failed", "debate_id", debate.ID, "recipient", recipient, "error", err)
				outcomes[i] = db.MintOutcome{Recipient: recipient, Success: false, Detail: err.Error()}
				return
			}
			outcomes[i] = db.MintOutcome{Recipient: recipient, Success: true, Detail: reply}
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		slog.Error("mint fan-out panicked", "debate_id", debate.ID, "panic", recovered.Value)
	}
	return outcomes, nil
}

// executeAction formats the funding directive and delegates it to the agent.
// Under the majority policy the directive is only sent when the approve side
// carries the tally; passthrough always delegates and lets the agent decide.
// Mutating calls are never retried: without a collaborator-side idempotency
// key, a duplicate execution could not be detected here.
func (o *Orchestrator) executeAction(ctx context.Context, debate *db.Debate, record *db.WalletRecord, tally consensus.Tally) (string, error) {
	if o.cfg.Policy == config.PolicyMajority && !tally.Approved() {
		return fmt.Sprintf("action skipped: approve side did not carry the tally (winner=%d, counts=%v)",
			tally.Winner, tally.Counts), nil
	}

	// Report the vault's live balance when the chain is reachable; the
	// configured funding amount is the fallback.
	funding := debate.Funding
	if o.chain != nil {
		if status, err := wallet.CheckFunding(ctx, o.chain, record.VaultAddress, debate.Funding); err == nil {
			funding = status.Balance
		} else {
			slog.Warn("vault balance check failed", "debate_id", debate.ID, "error", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The debate has ended. Vote tally per side: %v (winner: side %d, %d undecided).\n",
		tally.Counts, tally.Winner, tally.Undecided)
	fmt.Fprintf(&b, "The debate vault holds a funding amount of %s ETH.\n\n", funding.String())
	fmt.Fprintf(&b, "%s\n\n", debate.Action)
	fmt.Fprintf(&b, "Note: if this action involves transferring funding, use the vault wallet "+
		"with the wallet ID provided (Wallet ID: %s).", record.VaultID)

	return o.agent.Chat(ctx, debate.ID, b.String())
}

// fail records the broken step with the raw error, marks the debate failed
// and broadcasts the failure. Later steps never run.
func (o *Orchestrator) fail(debateID, step string, cause error) error {
	if err := o.db.RecordSettlementFailure(debateID, step, cause.Error()); err != nil {
		slog.Error("recording settlement failure", "debate_id", debateID, "error", err)
	}
	if err := o.db.AdvanceDebateStatus(debateID, db.StatusSettling, db.StatusFailed); err != nil {
		slog.Error("marking debate failed", "debate_id", debateID, "error", err)
	}
	o.hub.Broadcast(debateID, hub.Event{Type: hub.EventSettlementFailed, Data: map[string]any{
		"debate_id": debateID,
		"step":      step,
		"error":     cause.Error(),
	}})
	return fmt.Errorf("settlement step %s: %w", step, cause)
}

// progress emits a settlement progress event for observers.
func (o *Orchestrator) progress(debateID, step string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["debate_id"] = debateID
	data["step"] = step
	o.hub.Broadcast(debateID, hub.Event{Type: hub.EventSettlementProgress, Data: data})
}
