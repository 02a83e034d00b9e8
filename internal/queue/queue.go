// Package queue is the durable, ordered, per-device store of
// not-yet-applied mutations. Enqueue is synchronous and never touches the
// network; the sync engine drains the queue when connectivity allows.
// Ordering is FIFO per lead; cross-lead order is not guaranteed.
package queue

import (
	"fmt"
	"time"

	"github.com/dealscout/dealscout/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store wraps the durable mutation table. All methods are safe for
// concurrent use; the underlying store serializes writers.
type Store struct {
	db *gorm.DB
}

// New returns a Store over db. The PendingMutation table must be migrated.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Enqueue appends a mutation for a lead and returns its client-generated
// mutation ID, which doubles as the idempotency key on the wire. It always
// succeeds short of a storage failure and never blocks on the network.
func (s *Store) Enqueue(leadID, kind string, payload interface{}) (string, error) {
	if leadID == "" {
		return "", fmt.Errorf("queue: lead id is required")
	}
	switch kind {
	case models.MutationReachTransition, models.MutationNoteCreate, models.MutationInteractionOutcome:
	default:
		return "", fmt.Errorf("queue: unknown mutation kind %q", kind)
	}

	body, err := MarshalPayload(payload)
	if err != nil {
		return "", err
	}

	m := models.PendingMutation{
		MutationID: uuid.NewString(),
		LeadID:     leadID,
		Kind:       kind,
		Payload:    body,
		Status:     models.MutationPending,
		CreatedAt:  time.Now(),
	}
	if err := s.db.Create(&m).Error; err != nil {
		return "", fmt.Errorf("queue: enqueue: %w", err)
	}
	return m.MutationID, nil
}

// PendingByLead returns all pending mutations grouped by lead, each group
// in FIFO order.
func (s *Store) PendingByLead() (map[string][]models.PendingMutation, error) {
	var pending []models.PendingMutation
	if err := s.db.Where("status = ?", models.MutationPending).
		Order("seq ASC").Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("queue: list pending: %w", err)
	}
	byLead := make(map[string][]models.PendingMutation)
	for _, m := range pending {
		byLead[m.LeadID] = append(byLead[m.LeadID], m)
	}
	return byLead, nil
}

// Complete removes a mutation after the authoritative service acknowledged it.
func (s *Store) Complete(mutationID string) error {
	if err := s.db.Where("mutation_id = ?", mutationID).
		Delete(&models.PendingMutation{}).Error; err != nil {
		return fmt.Errorf("queue: complete %s: %w", mutationID, err)
	}
	return nil
}

// Fail marks a mutation definitively rejected. It stays in the table for
// manual review and is never retried automatically.
func (s *Store) Fail(mutationID, reason string) error {
	return s.setStatus(mutationID, models.MutationFailed, reason)
}

// MarkStuck marks a mutation that hit the retry ceiling. Like failed
// mutations, stuck ones wait for manual review.
func (s *Store) MarkStuck(mutationID, reason string) error {
	return s.setStatus(mutationID, models.MutationStuck, reason)
}

func (s *Store) setStatus(mutationID, status, reason string) error {
	res := s.db.Model(&models.PendingMutation{}).Where("mutation_id = ?", mutationID).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("queue: mark %s %s: %w", mutationID, status, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("queue: mutation %s not found", mutationID)
	}
	return nil
}

// Bump records a transient failure: increments the attempt count, stores
// the error, and pushes the next attempt out to nextAttemptAt.
func (s *Store) Bump(mutationID, reason string, nextAttemptAt time.Time) error {
	res := s.db.Model(&models.PendingMutation{}).Where("mutation_id = ?", mutationID).
		Updates(map[string]interface{}{
			"attempt_count":   gorm.Expr("attempt_count + 1"),
			"last_error":      reason,
			"next_attempt_at": nextAttemptAt,
		})
	if res.Error != nil {
		return fmt.Errorf("queue: bump %s: %w", mutationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("queue: mutation %s not found", mutationID)
	}
	return nil
}

// Retry requeues a failed or stuck mutation after manual review, with a
// fresh attempt budget.
func (s *Store) Retry(mutationID string) error {
	res := s.db.Model(&models.PendingMutation{}).
		Where("mutation_id = ? AND status IN ?", mutationID,
			[]string{models.MutationFailed, models.MutationStuck}).
		Updates(map[string]interface{}{
			"status":          models.MutationPending,
			"attempt_count":   0,
			"last_error":      "",
			"next_attempt_at": time.Time{},
		})
	if res.Error != nil {
		return fmt.Errorf("queue: retry %s: %w", mutationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("queue: mutation %s is not awaiting review", mutationID)
	}
	return nil
}

// Discard cancels a mutation that has not been sent over the wire. Once a
// mutation is in flight the idempotency token makes cancellation
// irrelevant (if it already applied, it stays applied), so callers should
// treat a not-found error here as "too late".
func (s *Store) Discard(mutationID string) error {
	res := s.db.Where("mutation_id = ?", mutationID).Delete(&models.PendingMutation{})
	if res.Error != nil {
		return fmt.Errorf("queue: discard %s: %w", mutationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("queue: mutation %s not found", mutationID)
	}
	return nil
}

// Depth returns the number of pending mutations.
func (s *Store) Depth() (int64, error) {
	var count int64
	if err := s.db.Model(&models.PendingMutation{}).
		Where("status = ?", models.MutationPending).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("queue: depth: %w", err)
	}
	return count, nil
}

// Attention returns failed and stuck mutations awaiting manual review,
// oldest first.
func (s *Store) Attention() ([]models.PendingMutation, error) {
	var out []models.PendingMutation
	if err := s.db.Where("status IN ?", []string{models.MutationFailed, models.MutationStuck}).
		Order("seq ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("queue: attention: %w", err)
	}
	return out, nil
}

// List returns every mutation in the table, oldest first. Used by the CLI
// queue view and the dashboard.
func (s *Store) List() ([]models.PendingMutation, error) {
	var out []models.PendingMutation
	if err := s.db.Order("seq ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("queue: list: %w", err)
	}
	return out, nil
}
