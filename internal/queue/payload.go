package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// OutcomePayload is the payload for reach_transition and
// interaction_outcome mutations. The two kinds share a shape; a recorded
// outcome that changes lead status ships as reach_transition, one that
// leaves it unchanged ships as interaction_outcome so the server still
// appends the timeline event.
type OutcomePayload struct {
	LeadID           string    `json:"lead_id"`
	InteractionID    string    `json:"interaction_id"`
	Outcome          string    `json:"outcome"`
	Notes            string    `json:"notes,omitempty"`
	OptimisticStatus string    `json:"optimistic_status"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// NotePayload is the payload for note_create mutations.
type NotePayload struct {
	LeadID     string    `json:"lead_id"`
	Body       string    `json:"body"`
	RecordedAt time.Time `json:"recorded_at"`
}

// MarshalPayload encodes a payload for storage in a PendingMutation row.
func MarshalPayload(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("queue: marshal payload: %w", err)
	}
	return string(data), nil
}

// UnmarshalOutcome decodes an OutcomePayload from a stored mutation.
func UnmarshalOutcome(payload string) (*OutcomePayload, error) {
	var p OutcomePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("queue: decode outcome payload: %w", err)
	}
	return &p, nil
}
