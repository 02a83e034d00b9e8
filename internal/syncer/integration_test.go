package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/models"
	"github.com/dealscout/dealscout/internal/queue"
	"github.com/dealscout/dealscout/internal/reach"
	"github.com/dealscout/dealscout/internal/remote"
	"gorm.io/gorm"
)

// authService is an in-memory stand-in for the authoritative service. It
// applies the same outcome table as the client (reach.NextStatus) and is
// idempotent by mutation ID, mirroring the real server contract.
type authService struct {
	mu         sync.Mutex
	status     map[string]string
	applied    map[string]*remote.ApplyResult
	applyCalls int
}

func newAuthService() *authService {
	return &authService{
		status:  make(map[string]string),
		applied: make(map[string]*remote.ApplyResult),
	}
}

func (s *authService) ApplyMutation(_ context.Context, m remote.Mutation) (*remote.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCalls++

	// Idempotent replay: the first application's result, unchanged.
	if res, ok := s.applied[m.MutationID]; ok {
		return res, nil
	}

	if m.Kind == models.MutationNoteCreate {
		res := &remote.ApplyResult{Status: "applied"}
		s.applied[m.MutationID] = res
		return res, nil
	}

	var p queue.OutcomePayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return nil, &remote.RejectionError{Code: remote.CodeValidation, Message: err.Error()}
	}
	current := s.status[p.LeadID]
	if current == "" {
		current = models.ReachNotStarted
	}

	next, err := reach.NextStatus(current, p.Outcome)
	switch {
	case errors.Is(err, reach.ErrTerminalState):
		return nil, &remote.RejectionError{Code: remote.CodeTerminalState, Message: "lead " + p.LeadID + " is in a terminal state"}
	case err != nil:
		return nil, &remote.RejectionError{Code: remote.CodeValidation, Message: err.Error()}
	}

	s.status[p.LeadID] = next
	res := &remote.ApplyResult{Status: "applied", AuthoritativeStatus: next}
	s.applied[m.MutationID] = res
	return res, nil
}

func (s *authService) GetSkipTraceQuote(context.Context, string) (*remote.Quote, error) {
	return nil, errors.New("not implemented")
}

func (s *authService) ExecuteSkipTrace(context.Context, string) (*remote.TraceResult, error) {
	return nil, errors.New("not implemented")
}

func (s *authService) statusOf(leadID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[leadID]
}

func newIntegrationEngine(t *testing.T, db *gorm.DB, srv *authService, alerts AlertSink) (*Engine, *queue.Store) {
	t.Helper()
	q := queue.New(db)
	e, err := New(Options{
		DB:          db,
		Queue:       q,
		Remote:      srv,
		Bus:         events.NewBus(),
		Alerts:      alerts,
		BackoffBase: time.Millisecond,
		BackoffCap:  time.Second,
		MaxAttempts: 5,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e, q
}

// recordAndQueue applies an outcome locally and queues the matching
// mutation, the way the CLI's offline path does.
func recordAndQueue(t *testing.T, db *gorm.DB, q *queue.Store, leadID, outcome string) string {
	t.Helper()
	interaction, err := reach.StartInteraction(db, nil, leadID, "call", "")
	if err != nil {
		t.Fatalf("start interaction: %v", err)
	}
	res, err := reach.RecordOutcome(db, nil, leadID, interaction.InteractionID, outcome, "")
	if err != nil {
		t.Fatalf("record %s: %v", outcome, err)
	}
	kind := models.MutationInteractionOutcome
	if res.StatusChanged {
		kind = models.MutationReachTransition
	}
	id, err := q.Enqueue(leadID, kind, queue.OutcomePayload{
		LeadID:           leadID,
		InteractionID:    interaction.InteractionID,
		Outcome:          outcome,
		OptimisticStatus: res.NewStatus,
		RecordedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return id
}

// Scenario: work a lead online, go offline for the deal_created outcome,
// reconnect, drain. Authoritative and local state converge on converted
// with an empty queue.
func TestScenario_OfflineDealConvertsAfterDrain(t *testing.T) {
	db := openTestDB(t)
	seedLead(t, db, "lead-1", models.ReachNotStarted)
	srv := newAuthService()
	e, q := newIntegrationEngine(t, db, srv, nil)
	ctx := context.Background()

	recordAndQueue(t, db, q, "lead-1", models.OutcomeAnswered)
	recordAndQueue(t, db, q, "lead-1", models.OutcomeInterested)

	// Online: both drain immediately.
	if _, err := e.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if got := srv.statusOf("lead-1"); got != models.ReachNurturing {
		t.Fatalf("authoritative status = %q, want nurturing", got)
	}

	// Offline window: the deal closes in the field.
	recordAndQueue(t, db, q, "lead-1", models.OutcomeDealCreated)
	var lead models.Lead
	db.Where("lead_id = ?", "lead-1").First(&lead)
	if lead.ReachStatus != models.ReachConverted {
		t.Fatalf("optimistic status = %q, want converted", lead.ReachStatus)
	}
	depth, _ := q.Depth()
	if depth != 1 {
		t.Fatalf("depth = %d, want 1 queued while offline", depth)
	}

	// Reconnect.
	if _, err := e.Drain(ctx); err != nil {
		t.Fatalf("drain after reconnect: %v", err)
	}
	if got := srv.statusOf("lead-1"); got != models.ReachConverted {
		t.Errorf("authoritative status = %q, want converted", got)
	}
	db.Where("lead_id = ?", "lead-1").First(&lead)
	if lead.ReachStatus != models.ReachConverted {
		t.Errorf("confirmed status = %q, want converted", lead.ReachStatus)
	}
	depth, _ = q.Depth()
	if depth != 0 {
		t.Errorf("depth = %d, want empty queue", depth)
	}
}

// Scenario: two devices record conflicting outcomes in the same offline
// window. First drain to reach the server wins; the loser replays against
// dead, is rejected, and is surfaced on its own device rather than being
// silently dropped or applied.
func TestScenario_ConcurrentOutcomesFirstWriterWins(t *testing.T) {
	srv := newAuthService()
	srv.status["lead-1"] = models.ReachContacted
	ctx := context.Background()

	// Device A.
	dbA := openTestDB(t)
	seedLead(t, dbA, "lead-1", models.ReachContacted)
	eA, qA := newIntegrationEngine(t, dbA, srv, nil)
	recordAndQueue(t, dbA, qA, "lead-1", models.OutcomeNotInterested)

	// Device B.
	dbB := openTestDB(t)
	seedLead(t, dbB, "lead-1", models.ReachContacted)
	alertsB := &recordingAlerts{}
	eB, qB := newIntegrationEngine(t, dbB, srv, alertsB)
	idB := recordAndQueue(t, dbB, qB, "lead-1", models.OutcomeInterested)

	// Device A reconnects first: lead goes dead.
	if _, err := eA.Drain(ctx); err != nil {
		t.Fatalf("device A drain: %v", err)
	}
	if got := srv.statusOf("lead-1"); got != models.ReachDead {
		t.Fatalf("authoritative status = %q, want dead", got)
	}

	// Device B's replay is rejected and reported, not silently handled.
	stats, err := eB.Drain(ctx)
	if err != nil {
		t.Fatalf("device B drain: %v", err)
	}
	if stats.Rejected != 1 {
		t.Fatalf("stats = %+v, want 1 rejected", stats)
	}
	attention, _ := qB.Attention()
	if len(attention) != 1 || attention[0].MutationID != idB {
		t.Fatalf("attention = %+v, want the losing mutation", attention)
	}
	if !strings.Contains(attention[0].LastError, "terminal") {
		t.Errorf("LastError = %q, want terminal-state reason", attention[0].LastError)
	}
	if len(alertsB.rejected) != 1 {
		t.Errorf("device B alerts = %+v, want one rejection", alertsB)
	}
}

// Replaying the same mutation ID never changes authoritative state beyond
// its first application.
func TestIdempotency_ReplaySameMutation(t *testing.T) {
	srv := newAuthService()
	srv.status["lead-1"] = models.ReachContacted
	ctx := context.Background()

	payload, _ := json.Marshal(queue.OutcomePayload{LeadID: "lead-1", Outcome: models.OutcomeInterested})
	m := remote.Mutation{MutationID: "mut-dup", Kind: models.MutationReachTransition, Payload: payload}

	first, err := srv.ApplyMutation(ctx, m)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	second, err := srv.ApplyMutation(ctx, m)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first.AuthoritativeStatus != second.AuthoritativeStatus {
		t.Errorf("replay changed result: %q vs %q", first.AuthoritativeStatus, second.AuthoritativeStatus)
	}
	if got := srv.statusOf("lead-1"); got != models.ReachNurturing {
		t.Errorf("status = %q, want nurturing applied exactly once", got)
	}
}

// Folding the same outcomes online and queued-then-drained offline must
// land on the same authoritative status.
func TestOrderInvariance_OnlineVsOffline(t *testing.T) {
	outcomes := []string{
		models.OutcomeNoAnswer,
		models.OutcomeAnswered,
		models.OutcomeCallbackScheduled,
		models.OutcomeVoicemail,
		models.OutcomeInterested,
		models.OutcomeDealCreated,
	}
	ctx := context.Background()

	// Online device: drain after every outcome.
	srvOnline := newAuthService()
	dbOnline := openTestDB(t)
	seedLead(t, dbOnline, "lead-1", models.ReachNotStarted)
	eOnline, qOnline := newIntegrationEngine(t, dbOnline, srvOnline, nil)
	for _, o := range outcomes {
		recordAndQueue(t, dbOnline, qOnline, "lead-1", o)
		if _, err := eOnline.Drain(ctx); err != nil {
			t.Fatalf("online drain: %v", err)
		}
	}

	// Offline device: queue everything, drain once.
	srvOffline := newAuthService()
	dbOffline := openTestDB(t)
	seedLead(t, dbOffline, "lead-1", models.ReachNotStarted)
	eOffline, qOffline := newIntegrationEngine(t, dbOffline, srvOffline, nil)
	for _, o := range outcomes {
		recordAndQueue(t, dbOffline, qOffline, "lead-1", o)
	}
	if _, err := eOffline.Drain(ctx); err != nil {
		t.Fatalf("offline drain: %v", err)
	}

	a, b := srvOnline.statusOf("lead-1"), srvOffline.statusOf("lead-1")
	if a != b || a != models.ReachConverted {
		t.Errorf("online=%q offline=%q, want both converted", a, b)
	}
}
