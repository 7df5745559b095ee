package db

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func createTestDebate(t *testing.T, database *DB) *Debate {
	t.Helper()
	d, err := database.CreateDebate(CreateDebateInput{
		Topic:            "Fund the grants program",
		Sides:            []string{"Approve", "Reject"},
		Funding:          decimal.RequireFromString("0.5"),
		Action:           "Transfer the funding to the grants multisig",
		CreatorAddress:   "0xCreator",
		MessageThreshold: 3,
	})
	if err != nil {
		t.Fatalf("creating debate: %v", err)
	}
	return d
}

func TestDebateRoundTrip(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)

	got, err := database.GetDebate(d.ID)
	if err != nil {
		t.Fatalf("GetDebate: %v", err)
	}
	if got.Topic != d.Topic {
		t.Errorf("Topic = %q, want %q", got.Topic, d.Topic)
	}
	if len(got.Sides) != 2 || got.Sides[0] != "Approve" {
		t.Errorf("Sides = %v", got.Sides)
	}
	if !got.Funding.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Funding = %s, want 0.5", got.Funding)
	}
	if got.Status != StatusActive {
		t.Errorf("Status = %q, want %q", got.Status, StatusActive)
	}
}

func TestGetDebateNotFound(t *testing.T) {
	database := openTestDB(t)
	if _, err := database.GetDebate("missing"); err != ErrNotFound {
		t.Errorf("GetDebate = %v, want ErrNotFound", err)
	}
}

func TestEndDebateExactlyOnce(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)

	first, err := database.EndDebate(d.ID)
	if err != nil {
		t.Fatalf("first EndDebate: %v", err)
	}
	if !first {
		t.Error("first EndDebate = false, want true")
	}

	second, err := database.EndDebate(d.ID)
	if err != nil {
		t.Fatalf("second EndDebate: %v", err)
	}
	if second {
		t.Error("second EndDebate = true; the transition must be won once")
	}

	got, _ := database.GetDebate(d.ID)
	if got.Status != StatusEnded {
		t.Errorf("Status = %q, want %q", got.Status, StatusEnded)
	}
}

func TestAdvanceDebateStatus(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)

	if _, err := database.EndDebate(d.ID); err != nil {
		t.Fatalf("EndDebate: %v", err)
	}
	if err := database.AdvanceDebateStatus(d.ID, StatusEnded, StatusSettling); err != nil {
		t.Fatalf("AdvanceDebateStatus: %v", err)
	}
	// Advancing from a status the debate is no longer in must fail.
	if err := database.AdvanceDebateStatus(d.ID, StatusEnded, StatusSettling); err == nil {
		t.Error("stale AdvanceDebateStatus succeeded")
	}
}

func TestMessagesOrderAndCount(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)

	bodies := []string{"first", "second", "third"}
	for _, body := range bodies {
		if _, err := database.CreateMessage(CreateMessageInput{
			DebateID:      d.ID,
			AuthorAddress: "0xAlice",
			AuthorName:    "alice",
			Body:          body,
		}); err != nil {
			t.Fatalf("creating message %q: %v", body, err)
		}
	}

	messages, err := database.GetMessages(d.ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(messages))
	}
	for i, body := range bodies {
		if messages[i].Body != body {
			t.Errorf("messages[%d].Body = %q, want %q", i, messages[i].Body, body)
		}
	}

	n, err := database.CountMessages(d.ID)
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if n != 3 {
		t.Errorf("CountMessages = %d, want 3", n)
	}
}

func TestGetParticipantAddresses(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)

	posts := []string{"0xAlice", "0xBob", "0xAlice", "0xCarol"}
	for _, addr := range posts {
		if _, err := database.CreateMessage(CreateMessageInput{
			DebateID:      d.ID,
			AuthorAddress: addr,
			AuthorName:    addr,
			Body:          "hi",
		}); err != nil {
			t.Fatalf("creating message: %v", err)
		}
	}

	addrs, err := database.GetParticipantAddresses(d.ID)
	if err != nil {
		t.Fatalf("GetParticipantAddresses: %v", err)
	}
	want := []string{"0xAlice", "0xBob", "0xCarol"}
	if len(addrs) != len(want) {
		t.Fatalf("addresses = %v, want %v", addrs, want)
	}
	for i := range want {
		if addrs[i] != want[i] {
			t.Errorf("addresses[%d] = %q, want %q", i, addrs[i], want[i])
		}
	}
}

func TestJurorResultsLatestDecisions(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)
	for i, persona := range []string{"a", "b"} {
		if err := database.CreateJuror(d.ID, i, persona); err != nil {
			t.Fatalf("creating juror: %v", err)
		}
	}

	msg1, err := database.CreateMessage(CreateMessageInput{
		DebateID: d.ID, AuthorAddress: "0xAlice", AuthorName: "alice", Body: "opening",
	})
	if err != nil {
		t.Fatalf("creating message 1: %v", err)
	}
	msg2, err := database.CreateMessage(CreateMessageInput{
		DebateID: d.ID, AuthorAddress: "0xBob", AuthorName: "bob", Body: "rebuttal",
	})
	if err != nil {
		t.Fatalf("creating message 2: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	zero, one := 0, 1
	round1 := []JurorResult{
		{DebateID: d.ID, JurorID: 0, MessageID: msg1.ID, Decision: &zero, Reasoning: "r1", CreatedAt: base},
		{DebateID: d.ID, JurorID: 1, MessageID: msg1.ID, Decision: nil, Reasoning: "unsure", CreatedAt: base},
	}
	if err := database.CreateJurorResults(round1); err != nil {
		t.Fatalf("round 1: %v", err)
	}
	// Juror 1 flips to a decision in round 2; juror 0 is absent (failed call).
	round2 := []JurorResult{
		{DebateID: d.ID, JurorID: 1, MessageID: msg2.ID, Decision: &one, Reasoning: "convinced", CreatedAt: base.Add(time.Second)},
	}
	if err := database.CreateJurorResults(round2); err != nil {
		t.Fatalf("round 2: %v", err)
	}

	latest, err := database.GetLatestDecisions(d.ID)
	if err != nil {
		t.Fatalf("GetLatestDecisions: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("latest = %d entries, want 2", len(latest))
	}
	if latest[0].Decision == nil || *latest[0].Decision != 0 {
		t.Errorf("juror 0 latest = %v, want 0 (carried from round 1)", latest[0].Decision)
	}
	if latest[1].Decision == nil || *latest[1].Decision != 1 {
		t.Errorf("juror 1 latest = %v, want 1", latest[1].Decision)
	}

	grouped, err := database.GetAllJurorResults(d.ID)
	if err != nil {
		t.Fatalf("GetAllJurorResults: %v", err)
	}
	if len(grouped) != 2 {
		t.Fatalf("grouped = %d jurors, want 2", len(grouped))
	}
	if len(grouped[0]) != 1 || len(grouped[1]) != 2 {
		t.Errorf("history lengths = %d/%d, want 1/2", len(grouped[0]), len(grouped[1]))
	}
}

func TestLatestDecisionsFollowMessageOrder(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)
	if err := database.CreateJuror(d.ID, 0, "a"); err != nil {
		t.Fatalf("creating juror: %v", err)
	}

	msg1, err := database.CreateMessage(CreateMessageInput{
		DebateID: d.ID, AuthorAddress: "0xAlice", AuthorName: "alice", Body: "opening",
	})
	if err != nil {
		t.Fatalf("creating message 1: %v", err)
	}
	msg2, err := database.CreateMessage(CreateMessageInput{
		DebateID: d.ID, AuthorAddress: "0xBob", AuthorName: "bob", Body: "rebuttal",
	})
	if err != nil {
		t.Fatalf("creating message 2: %v", err)
	}

	// The round for the newer message lands first; the round for the older
	// message straggles in afterwards. The straggler must not win.
	base := time.Now().UTC().Truncate(time.Second)
	zero, one := 0, 1
	if err := database.CreateJurorResults([]JurorResult{
		{DebateID: d.ID, JurorID: 0, MessageID: msg2.ID, Decision: &one, Reasoning: "final", CreatedAt: base},
	}); err != nil {
		t.Fatalf("newer round: %v", err)
	}
	if err := database.CreateJurorResults([]JurorResult{
		{DebateID: d.ID, JurorID: 0, MessageID: msg1.ID, Decision: &zero, Reasoning: "stale", CreatedAt: base.Add(2 * time.Second)},
	}); err != nil {
		t.Fatalf("straggling round: %v", err)
	}

	latest, err := database.GetLatestDecisions(d.ID)
	if err != nil {
		t.Fatalf("GetLatestDecisions: %v", err)
	}
	got := latest[0]
	if got.MessageID != msg2.ID {
		t.Errorf("latest MessageID = %q, want %q (newest message wins)", got.MessageID, msg2.ID)
	}
	if got.Decision == nil || *got.Decision != 1 {
		t.Errorf("latest decision = %v, want 1", got.Decision)
	}
}

func TestEndDebateConcurrent(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)

	const callers = 8
	var wg sync.WaitGroup
	wins := make([]bool, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := database.EndDebate(d.ID)
			if err != nil {
				t.Errorf("EndDebate: %v", err)
				return
			}
			wins[i] = won
		}()
	}
	wg.Wait()

	winners := 0
	for _, won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestWalletRecordRoundTrip(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)

	record := WalletRecord{
		DebateID:     d.ID,
		AgentAddress: "0xAgent",
		VaultAddress: "0xVault",
		VaultID:      "vault-1",
	}
	if err := database.CreateWalletRecord(record); err != nil {
		t.Fatalf("CreateWalletRecord: %v", err)
	}

	got, err := database.GetWalletRecord(d.ID)
	if err != nil {
		t.Fatalf("GetWalletRecord: %v", err)
	}
	if got.VaultID != "vault-1" || got.VaultAddress != "0xVault" {
		t.Errorf("record = %+v", got)
	}

	// One vault per debate: a second insert must fail on the primary key.
	if err := database.CreateWalletRecord(record); err == nil {
		t.Error("duplicate CreateWalletRecord succeeded")
	}

	if _, err := database.GetWalletRecord("missing"); err != ErrNotFound {
		t.Errorf("GetWalletRecord(missing) = %v, want ErrNotFound", err)
	}
}

func TestSettlementLifecycle(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)

	if err := database.CreateSettlement(d.ID); err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	s, err := database.GetSettlement(d.ID)
	if err != nil {
		t.Fatalf("GetSettlement: %v", err)
	}
	if s.Step != StepPending {
		t.Errorf("initial step = %q, want %q", s.Step, StepPending)
	}

	if err := database.UpdateSettlementStep(d.ID, StepVaultVerified); err != nil {
		t.Fatalf("UpdateSettlementStep: %v", err)
	}
	if err := database.SetSettlementTally(d.ID, map[string]any{"counts": []int{2, 1}}); err != nil {
		t.Fatalf("SetSettlementTally: %v", err)
	}
	if err := database.SetSettlementContract(d.ID, "0xContract"); err != nil {
		t.Fatalf("SetSettlementContract: %v", err)
	}
	mints := []MintOutcome{
		{Recipient: "0xAlice", Success: true, Detail: "minted token 1"},
		{Recipient: "0xBob", Success: false, Detail: "insufficient gas"},
	}
	if err := database.SetSettlementMints(d.ID, mints); err != nil {
		t.Fatalf("SetSettlementMints: %v", err)
	}
	if err := database.SetSettlementAction(d.ID, "transferred 0.5 ETH"); err != nil {
		t.Fatalf("SetSettlementAction: %v", err)
	}
	if err := database.UpdateSettlementStep(d.ID, StepCompleted); err != nil {
		t.Fatalf("UpdateSettlementStep(completed): %v", err)
	}

	s, err = database.GetSettlement(d.ID)
	if err != nil {
		t.Fatalf("GetSettlement after walk: %v", err)
	}
	if s.Step != StepCompleted {
		t.Errorf("step = %q, want %q", s.Step, StepCompleted)
	}
	if s.NFTContract != "0xContract" {
		t.Errorf("NFTContract = %q", s.NFTContract)
	}
	if len(s.Mints) != 2 || s.Mints[1].Success {
		t.Errorf("Mints = %+v", s.Mints)
	}
	if s.ActionLog != "transferred 0.5 ETH" {
		t.Errorf("ActionLog = %q", s.ActionLog)
	}
}

func TestRecordSettlementFailure(t *testing.T) {
	database := openTestDB(t)
	d := createTestDebate(t, database)
	if err := database.CreateSettlement(d.ID); err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	if err := database.RecordSettlementFailure(d.ID, "deploy", "no contract address in agent reply"); err != nil {
		t.Fatalf("RecordSettlementFailure: %v", err)
	}

	s, err := database.GetSettlement(d.ID)
	if err != nil {
		t.Fatalf("GetSettlement: %v", err)
	}
	if s.Step != StepFailed {
		t.Errorf("step = %q, want %q", s.Step, StepFailed)
	}
	if s.FailedStep != "deploy" {
		t.Errorf("FailedStep = %q, want deploy", s.FailedStep)
	}
	if s.Failure == "" {
		t.Error("Failure is empty, want the raw error")
	}
}

func TestSettlementUpdateNotFound(t *testing.T) {
	database := openTestDB(t)
	if err := database.UpdateSettlementStep("missing", StepCompleted); err == nil {
		t.Error("UpdateSettlementStep on missing settlement succeeded")
	}
}

func TestUserUpsert(t *testing.T) {
	database := openTestDB(t)

	if _, err := database.UpsertUser("0xAlice", "alice"); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if _, err := database.UpsertUser("0xAlice", "alice-renamed"); err != nil {
		t.Fatalf("UpsertUser rename: %v", err)
	}

	u, err := database.GetUser("0xAlice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Username != "alice-renamed" {
		t.Errorf("Username = %q, want alice-renamed", u.Username)
	}

	if _, err := database.GetUser("0xNobody"); err != ErrNotFound {
		t.Errorf("GetUser(missing) = %v, want ErrNotFound", err)
	}
}
