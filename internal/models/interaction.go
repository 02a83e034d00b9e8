package models

import "time"

// Interaction outcome values. These are the only outcomes the reach state
// machine understands; the outcome→status table in internal/reach is the
// single source of truth for what each one does to a lead.
const (
	OutcomeNoAnswer          = "no_answer"
	OutcomeVoicemail         = "voicemail"
	OutcomeAnswered          = "answered"
	OutcomeWrongNumber       = "wrong_number"
	OutcomeNotInterested     = "not_interested"
	OutcomeInterested        = "interested"
	OutcomeCallbackScheduled = "callback_scheduled"
	OutcomeDealCreated       = "deal_created"
)

// Interaction is one outreach attempt (call/text/email) against a lead.
// Created open at outreach start; Outcome and EndedAt are stamped when the
// outcome is recorded.
type Interaction struct {
	InteractionID string     `gorm:"primaryKey;size:36"`
	LeadID        string     `gorm:"size:36;not null;index"`
	Type          string     `gorm:"size:16"` // call, text, email
	ContactInfo   string     `gorm:"size:128"`
	StartedAt     time.Time
	EndedAt       *time.Time
	Outcome       *string    `gorm:"size:24"`
	Notes         string     `gorm:"type:text"`
	CreatedAt     time.Time
}

// Open reports whether the interaction has not yet had an outcome recorded.
func (i *Interaction) Open() bool {
	return i.Outcome == nil
}
