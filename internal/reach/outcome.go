package reach

import (
	"fmt"
	"time"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordResult is what applying an outcome produced.
type RecordResult struct {
	NewStatus     string
	StatusChanged bool
	Interaction   *models.Interaction
}

// StartInteraction opens a new outreach attempt against a lead and, for a
// lead that has never been worked, moves it not_started → in_progress.
// Refused while the lead's litigator warning is unacknowledged and for
// leads already in a terminal state.
func StartInteraction(db *gorm.DB, bus *events.Bus, leadID, itype, contactInfo string) (*models.Interaction, error) {
	var lead models.Lead
	if err := db.Where("lead_id = ?", leadID).First(&lead).Error; err != nil {
		return nil, fmt.Errorf("reach: load lead %s: %w", leadID, err)
	}
	if models.Terminal(lead.ReachStatus) {
		return nil, ErrTerminalState
	}
	if lead.LitigatorAckRequired {
		return nil, ErrLitigatorAckRequired
	}

	now := time.Now()
	interaction := models.Interaction{
		InteractionID: uuid.NewString(),
		LeadID:        lead.LeadID,
		Type:          itype,
		ContactInfo:   contactInfo,
		StartedAt:     now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&interaction).Error; err != nil {
			return fmt.Errorf("reach: create interaction: %w", err)
		}
		if lead.ReachStatus == models.ReachNotStarted {
			if err := tx.Model(&models.Lead{}).Where("lead_id = ?", lead.LeadID).
				Update("reach_status", models.ReachInProgress).Error; err != nil {
				return fmt.Errorf("reach: mark in progress: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if lead.ReachStatus == models.ReachNotStarted && bus != nil {
		bus.PublishStatusChanged(lead.LeadID, models.ReachInProgress)
	}
	return &interaction, nil
}

// RecordOutcome applies an interaction outcome to a lead optimistically:
// it closes the interaction (ended_at, outcome, notes) and moves the lead
// per the outcome table. A same-status outcome still closes the interaction
// so the activity timeline stays accurate, but does not touch lead state.
//
// The resulting status is provisional until the sync engine receives the
// authoritative acknowledgment for the corresponding mutation.
func RecordOutcome(db *gorm.DB, bus *events.Bus, leadID, interactionID, outcome, notes string) (*RecordResult, error) {
	var lead models.Lead
	if err := db.Where("lead_id = ?", leadID).First(&lead).Error; err != nil {
		return nil, fmt.Errorf("reach: load lead %s: %w", leadID, err)
	}

	var interaction models.Interaction
	if err := db.Where("interaction_id = ? AND lead_id = ?", interactionID, leadID).
		First(&interaction).Error; err != nil {
		return nil, fmt.Errorf("reach: load interaction %s: %w", interactionID, err)
	}
	if !interaction.Open() {
		return nil, ErrInteractionClosed
	}

	next, err := NextStatus(lead.ReachStatus, outcome)
	if err != nil {
		return nil, err
	}
	changed := next != lead.ReachStatus

	now := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Interaction{}).
			Where("interaction_id = ?", interaction.InteractionID).
			Updates(map[string]interface{}{
				"ended_at": now,
				"outcome":  outcome,
				"notes":    notes,
			}).Error; err != nil {
			return fmt.Errorf("reach: close interaction: %w", err)
		}
		if changed {
			if err := tx.Model(&models.Lead{}).Where("lead_id = ?", lead.LeadID).
				Update("reach_status", next).Error; err != nil {
				return fmt.Errorf("reach: update status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	interaction.EndedAt = &now
	interaction.Outcome = &outcome
	interaction.Notes = notes

	if changed && bus != nil {
		bus.PublishStatusChanged(lead.LeadID, next)
	}

	return &RecordResult{NewStatus: next, StatusChanged: changed, Interaction: &interaction}, nil
}

// Reconcile overwrites the local reach status with the authoritative one
// returned by the remote service. A difference from the optimistic value is
// expected, not exceptional; no error is surfaced, only the status-changed
// event so the presentation layer re-renders.
func Reconcile(db *gorm.DB, bus *events.Bus, leadID, authoritative string) error {
	if authoritative == "" {
		return nil
	}
	var lead models.Lead
	if err := db.Where("lead_id = ?", leadID).First(&lead).Error; err != nil {
		return fmt.Errorf("reach: load lead %s: %w", leadID, err)
	}
	if lead.ReachStatus == authoritative {
		return nil
	}
	if err := db.Model(&models.Lead{}).Where("lead_id = ?", leadID).
		Update("reach_status", authoritative).Error; err != nil {
		return fmt.Errorf("reach: reconcile status: %w", err)
	}
	if bus != nil {
		bus.PublishStatusChanged(leadID, authoritative)
	}
	return nil
}

// AcknowledgeLitigator clears the blocking litigator gate for a lead.
func AcknowledgeLitigator(db *gorm.DB, leadID string) error {
	res := db.Model(&models.Lead{}).Where("lead_id = ? AND litigator_ack_required = ?", leadID, true).
		Update("litigator_ack_required", false)
	if res.Error != nil {
		return fmt.Errorf("reach: acknowledge litigator: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reach: lead %s has no pending litigator warning", leadID)
	}
	return nil
}

// Archive soft-archives a lead. Leads are never hard-deleted.
func Archive(db *gorm.DB, leadID string) error {
	res := db.Model(&models.Lead{}).Where("lead_id = ?", leadID).Update("archived", true)
	if res.Error != nil {
		return fmt.Errorf("reach: archive lead: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reach: lead %s not found", leadID)
	}
	return nil
}
