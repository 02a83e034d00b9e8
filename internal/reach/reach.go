// Package reach implements the lead outreach state machine. The
// outcome→status table below is the single source of truth for how an
// interaction outcome moves a lead; the authoritative service applies the
// same table, so client and server can never drift on what an outcome means.
package reach

import (
	"errors"
	"sort"

	"github.com/dealscout/dealscout/internal/models"
)

// ErrTerminalState is returned for any transition attempted from dead or
// converted. The attempt is a no-op, never silently accepted.
var ErrTerminalState = errors.New("reach: lead is in a terminal state")

// ErrUnknownOutcome is returned for an outcome not in the fixed table.
var ErrUnknownOutcome = errors.New("reach: unknown outcome")

// ErrLitigatorAckRequired is returned when an outreach-initiating operation
// is attempted against a lead whose litigator warning has not been
// acknowledged. This is a hard business-safety gate.
var ErrLitigatorAckRequired = errors.New("reach: litigator warning must be acknowledged before further outreach")

// ErrInteractionClosed is returned when an outcome is recorded against an
// interaction that already has one.
var ErrInteractionClosed = errors.New("reach: interaction already has an outcome")

// outcomeStatus is the fixed outcome→status lookup table. Never inferred
// dynamically; shared verbatim with the authoritative service.
var outcomeStatus = map[string]string{
	models.OutcomeNoAnswer:          models.ReachContacted,
	models.OutcomeVoicemail:         models.ReachContacted,
	models.OutcomeAnswered:          models.ReachContacted,
	models.OutcomeWrongNumber:       models.ReachDead,
	models.OutcomeNotInterested:     models.ReachDead,
	models.OutcomeInterested:        models.ReachNurturing,
	models.OutcomeCallbackScheduled: models.ReachNurturing,
	models.OutcomeDealCreated:       models.ReachConverted,
}

// NextStatus computes the status a lead moves to when outcome is recorded
// against it. Returns ErrTerminalState if current admits no transitions and
// ErrUnknownOutcome for outcomes not in the table. A result equal to
// current is valid: the outcome is still recorded as an event ("the same
// nothing happened again"), it just doesn't change lead state.
func NextStatus(current, outcome string) (string, error) {
	next, ok := outcomeStatus[outcome]
	if !ok {
		return "", ErrUnknownOutcome
	}
	if models.Terminal(current) {
		return "", ErrTerminalState
	}
	return next, nil
}

// Outcomes returns the outcomes the table knows, for validation at the
// edges (CLI flags, payload checks).
func Outcomes() []string {
	out := make([]string, 0, len(outcomeStatus))
	for o := range outcomeStatus {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// KnownOutcome reports whether outcome is in the fixed table.
func KnownOutcome(outcome string) bool {
	_, ok := outcomeStatus[outcome]
	return ok
}
