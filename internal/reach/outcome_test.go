package reach

import (
	"errors"
	"testing"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Lead{}, &models.Interaction{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func seedLead(t *testing.T, db *gorm.DB, status string) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		LeadID:      "lead-1",
		Address:     "12 Oak St",
		ReachStatus: status,
	}
	if err := db.Create(lead).Error; err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return lead
}

func TestStartInteraction_MovesToInProgress(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachNotStarted)
	bus := events.NewBus()

	var published string
	bus.OnReachStatusChanged(func(_, status string) { published = status })

	interaction, err := StartInteraction(db, bus, "lead-1", "call", "+15550100")
	if err != nil {
		t.Fatalf("start interaction: %v", err)
	}
	if interaction.InteractionID == "" {
		t.Error("interaction should get a generated ID")
	}
	if !interaction.Open() {
		t.Error("new interaction should be open")
	}

	var lead models.Lead
	db.Where("lead_id = ?", "lead-1").First(&lead)
	if lead.ReachStatus != models.ReachInProgress {
		t.Errorf("status = %q, want in_progress", lead.ReachStatus)
	}
	if published != models.ReachInProgress {
		t.Errorf("published status = %q, want in_progress", published)
	}
}

func TestStartInteraction_KeepsLaterStatus(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachNurturing)

	if _, err := StartInteraction(db, nil, "lead-1", "call", ""); err != nil {
		t.Fatalf("start interaction: %v", err)
	}
	var lead models.Lead
	db.Where("lead_id = ?", "lead-1").First(&lead)
	if lead.ReachStatus != models.ReachNurturing {
		t.Errorf("status = %q, want nurturing untouched", lead.ReachStatus)
	}
}

func TestStartInteraction_TerminalLead(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachDead)

	_, err := StartInteraction(db, nil, "lead-1", "call", "")
	if !errors.Is(err, ErrTerminalState) {
		t.Errorf("err = %v, want ErrTerminalState", err)
	}
}

func TestStartInteraction_LitigatorGate(t *testing.T) {
	db := openTestDB(t)
	lead := seedLead(t, db, models.ReachContacted)
	db.Model(lead).Update("litigator_ack_required", true)

	_, err := StartInteraction(db, nil, "lead-1", "call", "")
	if !errors.Is(err, ErrLitigatorAckRequired) {
		t.Errorf("err = %v, want ErrLitigatorAckRequired", err)
	}

	// Acknowledging the warning re-opens outreach.
	if err := AcknowledgeLitigator(db, "lead-1"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, err := StartInteraction(db, nil, "lead-1", "call", ""); err != nil {
		t.Errorf("after ack: %v", err)
	}
}

func TestAcknowledgeLitigator_NothingPending(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachContacted)
	if err := AcknowledgeLitigator(db, "lead-1"); err == nil {
		t.Error("expected error when no warning is pending")
	}
}

func TestRecordOutcome_ChangesStatusAndClosesInteraction(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachNotStarted)
	bus := events.NewBus()

	interaction, err := StartInteraction(db, bus, "lead-1", "call", "+15550100")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	res, err := RecordOutcome(db, bus, "lead-1", interaction.InteractionID, models.OutcomeAnswered, "spoke with owner")
	if err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if res.NewStatus != models.ReachContacted {
		t.Errorf("NewStatus = %q, want contacted", res.NewStatus)
	}
	if !res.StatusChanged {
		t.Error("StatusChanged should be true")
	}

	var loaded models.Interaction
	db.Where("interaction_id = ?", interaction.InteractionID).First(&loaded)
	if loaded.Open() {
		t.Error("interaction should be closed")
	}
	if loaded.EndedAt == nil {
		t.Error("EndedAt should be stamped")
	}
	if loaded.Notes != "spoke with owner" {
		t.Errorf("Notes = %q", loaded.Notes)
	}
}

func TestRecordOutcome_SameStatusStillRecorded(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachContacted)
	bus := events.NewBus()

	var publishes int
	bus.OnReachStatusChanged(func(_, _ string) { publishes++ })

	first, err := StartInteraction(db, bus, "lead-1", "call", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err := RecordOutcome(db, bus, "lead-1", first.InteractionID, models.OutcomeNoAnswer, "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if res.StatusChanged {
		t.Error("repeated no_answer at contacted should not change status")
	}
	if res.NewStatus != models.ReachContacted {
		t.Errorf("NewStatus = %q, want contacted", res.NewStatus)
	}
	if publishes != 0 {
		t.Errorf("status-changed published %d times, want 0", publishes)
	}

	// The closed interaction distinguishes "the same nothing happened again".
	var count int64
	db.Model(&models.Interaction{}).Where("lead_id = ? AND outcome IS NOT NULL", "lead-1").Count(&count)
	if count != 1 {
		t.Errorf("closed interactions = %d, want 1", count)
	}
}

func TestRecordOutcome_TerminalLead(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachContacted)

	interaction, err := StartInteraction(db, nil, "lead-1", "call", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := RecordOutcome(db, nil, "lead-1", interaction.InteractionID, models.OutcomeNotInterested, ""); err != nil {
		t.Fatalf("kill lead: %v", err)
	}

	// Lead is dead now; a second open interaction's outcome must be refused
	// and must not mutate state.
	second := models.Interaction{InteractionID: "int-2", LeadID: "lead-1"}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("create second interaction: %v", err)
	}
	_, err = RecordOutcome(db, nil, "lead-1", "int-2", models.OutcomeInterested, "")
	if !errors.Is(err, ErrTerminalState) {
		t.Fatalf("err = %v, want ErrTerminalState", err)
	}
	var lead models.Lead
	db.Where("lead_id = ?", "lead-1").First(&lead)
	if lead.ReachStatus != models.ReachDead {
		t.Errorf("status = %q, want dead (unchanged)", lead.ReachStatus)
	}
}

func TestRecordOutcome_ClosedInteraction(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachContacted)

	interaction, err := StartInteraction(db, nil, "lead-1", "call", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := RecordOutcome(db, nil, "lead-1", interaction.InteractionID, models.OutcomeAnswered, ""); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err = RecordOutcome(db, nil, "lead-1", interaction.InteractionID, models.OutcomeAnswered, "")
	if !errors.Is(err, ErrInteractionClosed) {
		t.Errorf("err = %v, want ErrInteractionClosed", err)
	}
}

func TestReconcile_OverwritesAndPublishes(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachNurturing)
	bus := events.NewBus()

	var published string
	bus.OnReachStatusChanged(func(_, status string) { published = status })

	// Server says the other caller got there first and the lead is dead.
	if err := Reconcile(db, bus, "lead-1", models.ReachDead); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	var lead models.Lead
	db.Where("lead_id = ?", "lead-1").First(&lead)
	if lead.ReachStatus != models.ReachDead {
		t.Errorf("status = %q, want dead", lead.ReachStatus)
	}
	if published != models.ReachDead {
		t.Errorf("published = %q, want dead", published)
	}
}

func TestReconcile_NoChangeNoEvent(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachContacted)
	bus := events.NewBus()

	var publishes int
	bus.OnReachStatusChanged(func(_, _ string) { publishes++ })

	if err := Reconcile(db, bus, "lead-1", models.ReachContacted); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if publishes != 0 {
		t.Errorf("publishes = %d, want 0", publishes)
	}
}

func TestArchive(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, models.ReachDead)

	if err := Archive(db, "lead-1"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	var lead models.Lead
	db.Where("lead_id = ?", "lead-1").First(&lead)
	if !lead.Archived {
		t.Error("lead should be archived")
	}

	if err := Archive(db, "missing"); err == nil {
		t.Error("expected error archiving unknown lead")
	}
}
