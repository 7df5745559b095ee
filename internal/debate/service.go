// Package debate is the orchestrating service behind the API and MCP
// surfaces: it creates debates with synchronously provisioned wallets, gates
// message ingestion, fans evaluation out to the jury in the background and
// triggers settlement exactly once when the message threshold is crossed.
//
// The service is constructed once and passed by handle into request and
// background-task code; it holds no global state.
package debate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Nucleus-Lab/daocouncil/internal/config"
	"github.com/Nucleus-Lab/daocouncil/internal/db"
	"github.com/Nucleus-Lab/daocouncil/internal/hub"
	"github.com/Nucleus-Lab/daocouncil/internal/jury"
	"github.com/Nucleus-Lab/daocouncil/internal/llm"
	"github.com/Nucleus-Lab/daocouncil/internal/settlement"
	"github.com/Nucleus-Lab/daocouncil/internal/task"
	"github.com/Nucleus-Lab/daocouncil/internal/wallet"
)

type Service struct {
	db           *db.DB
	hub          *hub.Hub
	runner       *task.Runner
	provisioner  *wallet.Provisioner
	chain        wallet.ChainReader
	engine       *jury.Engine
	orchestrator *settlement.Orchestrator
	llm          *llm.Client
	cfg          config.DebateConfig
	model        string
}

func NewService(database *db.DB, h *hub.Hub, runner *task.Runner,
	provisioner *wallet.Provisioner, chain wallet.ChainReader,
	engine *jury.Engine, orchestrator *settlement.Orchestrator,
	llmClient *llm.Client, model string, cfg config.DebateConfig) *Service {
	return &Service{
		db:           database,
		hub:          h,
		runner:       runner,
		provisioner:  provisioner,
		chain:        chain,
		engine:       engine,
		orchestrator: orchestrator,
		llm:          llmClient,
		cfg:          cfg,
		model:        model,
	}
}

// Hub exposes the broadcast hub for transport-level observer wiring.
func (s *Service) Hub() *hub.Hub { return s.hub }

type CreateDebateInput struct {
	Topic            string
	Sides            []string
	JurorPersonas    []string
	Funding          decimal.Decimal
	Action           string
	CreatorAddress   string
	MessageThreshold int // 0 uses the configured default
}

// CreateDebateOutput bundles the new debate with its wallet addresses and
// juror personas.
type CreateDebateOutput struct {
	Debate *db.Debate       `json:"debate"`
	Wallet *db.WalletRecord `json:"wallet"`
	Jurors []db.Juror       `json:"jurors"`
}

// CreateDebate validates input, generates juror personas when none are
// given, persists the debate and synchronously provisions its wallets.
func (s *Service) CreateDebate(ctx context.Context, in CreateDebateInput) (*CreateDebateOutput, error) {
	if in.Topic == "" {
		return nil, validationf("topic is required")
	}
	if len(in.Sides) < 1 {
		return nil, validationf("at least one side is required")
	}
	if in.CreatorAddress == "" {
		return nil, validationf("creator_address is required")
	}
	if in.Funding.IsNegative() {
		return nil, validationf("funding must not be negative")
	}
	threshold := in.MessageThreshold
	if threshold == 0 {
		threshold = s.cfg.MessageThreshold
	}
	if threshold < 1 {
		return nil, validationf("message_threshold must be >= 1")
	}

	personas := in.JurorPersonas
	if len(personas) == 0 {
		if s.llm == nil {
			return nil, validationf("juror_personas are required (no LLM configured to generate them)")
		}
		var err error
		personas, err = jury.GeneratePersonas(ctx, s.llm, s.model, in.Topic, s.cfg.DefaultJurorCount)
		if err != nil {
			return nil, fmt.Errorf("generating juror personas: %w", err)
		}
	}

	d, err := s.db.CreateDebate(db.CreateDebateInput{
		Topic:            in.Topic,
		Sides:            in.Sides,
		Funding:          in.Funding,
		Action:           in.Action,
		CreatorAddress:   in.CreatorAddress,
		MessageThreshold: threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("creating debate: %w", err)
	}

	jurors := make([]db.Juror, 0, len(personas))
	for i, persona := range personas {
		if err := s.db.CreateJuror(d.ID, i, persona); err != nil {
			return nil, fmt.Errorf("creating juror %d: %w", i, err)
		}
		jurors = append(jurors, db.Juror{DebateID: d.ID, JurorID: i, Persona: persona})
	}

	record, err := s.provisioner.Initialize(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("provisioning wallets: %w", err)
	}

	return &CreateDebateOutput{Debate: d, Wallet: record, Jurors: jurors}, nil
}

type PostMessageInput struct {
	DebateID      string
	AuthorAddress string
	AuthorName    string
	Body          string
	Stance        *int
}

// PostMessage validates that the debate is open, persists the message,
// broadcasts it and hands evaluation off to the background. If this message
// crosses the debate's threshold, the poster that won the ended transition
// schedules settlement. The returned acknowledgment never waits on either.
func (s *Service) PostMessage(ctx context.Context, in PostMessageInput) (*db.Message, error) {
	if in.Body == "" {
		return nil, validationf("message body is required")
	}
	if in.AuthorAddress == "" {
		return nil, validationf("author_address is required")
	}

	d, err := s.db.GetDebate(in.DebateID)
	if err != nil {
		return nil, err
	}
	if d.Status != db.StatusActive {
		return nil, validationf("debate %s is %s; no further messages accepted", d.ID, d.Status)
	}
	if in.Stance != nil && (*in.Stance < 0 || *in.Stance >= len(d.Sides)) {
		return nil, validationf("stance %d outside valid sides [0,%d)", *in.Stance, len(d.Sides))
	}
	if in.AuthorName == "" {
		if u, err := s.db.GetUser(in.AuthorAddress); err == nil {
			in.AuthorName = u.Username
		} else {
			in.AuthorName = in.AuthorAddress
		}
	}

	msg, err := s.db.CreateMessage(db.CreateMessageInput{
		DebateID:      d.ID,
		AuthorAddress: in.AuthorAddress,
		AuthorName:    in.AuthorName,
		Body:          in.Body,
		Stance:        in.Stance,
	})
	if err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	// Persist happens-before broadcast, broadcast happens-before the
	// judgment batch is scheduled.
	s.hub.Broadcast(d.ID, hub.Event{Type: hub.EventNewMessage, Data: msg})

	s.runner.Go("juror-evaluation", func(ctx context.Context) error {
		_, err := s.engine.Evaluate(ctx, d, msg)
		return err
	})

	count, err := s.db.CountMessages(d.ID)
	if err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}
	if count >= d.MessageThreshold {
		ended, err := s.db.EndDebate(d.ID)
		if err != nil {
			return nil, fmt.Errorf("ending debate: %w", err)
		}
		if ended {
			slog.Info("debate reached message threshold", "debate_id", d.ID, "messages", count)
			s.runner.Go("settlement", func(ctx context.Context) error {
				return s.orchestrator.Settle(ctx, d.ID)
			})
		}
	}

	return msg, nil
}

// DebateInfo is the aggregate view returned by the debate lookup.
type DebateInfo struct {
	Debate *db.Debate       `json:"debate"`
	Jurors []db.Juror       `json:"jurors"`
	Wallet *db.WalletRecord `json:"wallet,omitempty"`
}

func (s *Service) GetDebate(id string) (*DebateInfo, error) {
	d, err := s.db.GetDebate(id)
	if err != nil {
		return nil, err
	}
	jurors, err := s.db.GetJurors(id)
	if err != nil {
		return nil, err
	}
	info := &DebateInfo{Debate: d, Jurors: jurors}
	if record, err := s.db.GetWalletRecord(id); err == nil {
		info.Wallet = record
	}
	return info, nil
}

func (s *Service) GetMessages(debateID string) ([]db.Message, error) {
	if _, err := s.db.GetDebate(debateID); err != nil {
		return nil, err
	}
	return s.db.GetMessages(debateID)
}

func (s *Service) GetJurorResults(debateID string) ([][]db.JurorResult, error) {
	if _, err := s.db.GetDebate(debateID); err != nil {
		return nil, err
	}
	return s.db.GetAllJurorResults(debateID)
}

func (s *Service) GetSettlement(debateID string) (*db.SettlementResult, error) {
	if _, err := s.db.GetDebate(debateID); err != nil {
		return nil, err
	}
	return s.db.GetSettlement(debateID)
}

// GetFundingStatus checks the debate vault's balance against its required
// funding amount.
func (s *Service) GetFundingStatus(ctx context.Context, debateID string) (*wallet.FundingStatus, error) {
	d, err := s.db.GetDebate(debateID)
	if err != nil {
		return nil, err
	}
	record, err := s.db.GetWalletRecord(debateID)
	if err != nil {
		return nil, err
	}
	status, err := wallet.CheckFunding(ctx, s.chain, record.VaultAddress, d.Funding)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *Service) RegisterUser(address, username string) (*db.User, error) {
	if address == "" || username == "" {
		return nil, validationf("address and username are required")
	}
	return s.db.UpsertUser(address, username)
}

func (s *Service) GetUser(address string) (*db.User, error) {
	return s.db.GetUser(address)
}
