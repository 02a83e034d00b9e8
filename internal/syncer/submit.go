package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dealscout/dealscout/internal/models"
	"gorm.io/gorm"
)

// ErrPendingSync means a submitted mutation could not be confirmed yet and
// remains queued. Not a failure: the sync engine will deliver it.
var ErrPendingSync = errors.New("syncer: mutation pending sync")

// Submit records a mutation durably and, when online, pushes it to the
// authoritative service in the same call. The mutation is always enqueued
// first and enqueue never blocks on the network, so a crash or a transient
// failure between enqueue and acknowledgment loses nothing.
//
// Returns the mutation ID and: nil once the mutation is confirmed applied,
// ErrPendingSync while it waits in the queue (offline or transient
// failure), or the rejection reason if the server definitively refused it.
func (e *Engine) Submit(ctx context.Context, online bool, leadID, kind string, payload interface{}) (string, error) {
	mutationID, err := e.queue.Enqueue(leadID, kind, payload)
	if err != nil {
		return "", err
	}

	if !online {
		return mutationID, ErrPendingSync
	}

	if _, err := e.Drain(ctx); err != nil {
		return mutationID, ErrPendingSync
	}

	// The drain pass settles the mutation's fate: gone means applied.
	var m models.PendingMutation
	err = e.db.Where("mutation_id = ?", mutationID).First(&m).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return mutationID, nil
	case err != nil:
		return mutationID, fmt.Errorf("syncer: check mutation %s: %w", mutationID, err)
	}

	switch m.Status {
	case models.MutationFailed, models.MutationStuck:
		return mutationID, fmt.Errorf("syncer: mutation %s: %s", mutationID, m.LastError)
	default:
		return mutationID, ErrPendingSync
	}
}
