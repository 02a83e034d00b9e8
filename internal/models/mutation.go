package models

import "time"

// Pending mutation kinds.
const (
	MutationReachTransition    = "reach_transition"
	MutationNoteCreate         = "note_create"
	MutationInteractionOutcome = "interaction_outcome"
)

// Pending mutation statuses.
const (
	MutationPending = "pending" // queued, will be drained
	MutationFailed  = "failed"  // definite rejection, needs manual review
	MutationStuck   = "stuck"   // retry ceiling hit, needs manual review
)

// PendingMutation is a unit of queued, not-yet-applied work created while
// offline or speculatively. MutationID doubles as the idempotency key sent
// to the authoritative service, so at-least-once delivery never
// double-applies. Seq preserves per-lead FIFO order across restarts.
type PendingMutation struct {
	MutationID    string `gorm:"primaryKey;size:36"`
	Seq           uint   `gorm:"autoIncrement;uniqueIndex"`
	LeadID        string `gorm:"size:36;not null;index"`
	Kind          string `gorm:"size:24;not null"`
	Payload       string `gorm:"type:json"`
	Status        string `gorm:"size:12;default:pending;index"`
	AttemptCount  int    `gorm:"default:0"`
	LastError     string `gorm:"type:text"`
	NextAttemptAt time.Time
	CreatedAt     time.Time
}
