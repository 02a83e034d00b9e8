package models

import "time"

// Reach statuses a lead moves through. Dead and converted are terminal.
const (
	ReachNotStarted = "not_started"
	ReachInProgress = "in_progress"
	ReachContacted  = "contacted"
	ReachNurturing  = "nurturing"
	ReachDead       = "dead"
	ReachConverted  = "converted"
)

// Lead is a prospective property/owner captured in the field.
//
// ReachStatus is owned by the authoritative service; the local value is
// provisional until the sync engine has drained every pending mutation for
// the lead. Leads are never hard-deleted, only archived.
type Lead struct {
	LeadID            string `gorm:"primaryKey;size:36"`
	Address           string `gorm:"size:256;not null"`
	NormalizedAddress string `gorm:"size:256;index"`
	OwnerName         string `gorm:"size:128"`
	ReachStatus       string `gorm:"size:16;default:not_started;index"`

	// Set only by a completed skip trace.
	IsLitigator    bool
	LitigatorScore float64
	SkipTraceID    *string    `gorm:"size:36"`
	SkipTracedAt   *time.Time

	// Hard safety gate: while true, outreach-initiating operations are
	// refused until the operator acknowledges the litigator warning.
	LitigatorAckRequired bool `gorm:"default:false"`

	Archived  bool `gorm:"default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Interactions []Interaction `gorm:"foreignKey:LeadID"`
}

// Terminal reports whether a reach status admits no further transitions.
func Terminal(status string) bool {
	return status == ReachDead || status == ReachConverted
}
