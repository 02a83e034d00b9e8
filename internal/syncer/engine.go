// Package syncer drains the mutation queue against the authoritative
// service: per-lead FIFO, at-least-once delivery with idempotent
// application, exponential backoff on transient failures, and
// last-authoritative-write-wins reconciliation of reach status.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/models"
	"github.com/dealscout/dealscout/internal/queue"
	"github.com/dealscout/dealscout/internal/reach"
	"github.com/dealscout/dealscout/internal/remote"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AlertSink receives mutations that need a human: definite rejections and
// mutations that hit the retry ceiling. Implementations must not block.
type AlertSink interface {
	MutationRejected(m models.PendingMutation, reason string)
	MutationStuck(m models.PendingMutation, reason string)
}

// OnlineSource is the slice of the connectivity monitor the engine needs.
type OnlineSource interface {
	IsOnline() bool
	Subscribe(fn func(online bool))
}

// Options configures an Engine.
type Options struct {
	DB     *gorm.DB
	Queue  *queue.Store
	Remote remote.API
	Bus    *events.Bus
	Alerts AlertSink // optional
	Logger *zap.Logger

	BackoffBase time.Duration
	BackoffCap  time.Duration
	MaxAttempts int
}

// DrainStats summarizes one drain pass.
type DrainStats struct {
	Applied  int
	Rejected int
	Stuck    int
	Deferred int // left pending: backoff not elapsed, or behind a halted lead
}

// Engine owns the drain loop. One engine per device; drain passes are
// serialized so two triggers can't race on the same mutation. The enqueue
// path never takes the drain lock.
type Engine struct {
	db     *gorm.DB
	queue  *queue.Store
	remote remote.API
	bus    *events.Bus
	alerts AlertSink
	logger *zap.Logger

	backoffBase time.Duration
	backoffCap  time.Duration
	maxAttempts int

	drainMu sync.Mutex
	now     func() time.Time
}

// New builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("syncer: db is required")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("syncer: queue is required")
	}
	if opts.Remote == nil {
		return nil, fmt.Errorf("syncer: remote is required")
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}
	if opts.BackoffCap < opts.BackoffBase {
		opts.BackoffCap = 5 * time.Minute
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 8
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		db:          opts.DB,
		queue:       opts.Queue,
		remote:      opts.Remote,
		bus:         opts.Bus,
		alerts:      opts.Alerts,
		logger:      opts.Logger,
		backoffBase: opts.BackoffBase,
		backoffCap:  opts.BackoffCap,
		maxAttempts: opts.MaxAttempts,
		now:         time.Now,
	}, nil
}

// Drain processes every lead's pending sub-queue in FIFO order. A definite
// rejection or a transient failure halts that lead's sub-queue, since later
// mutations would otherwise apply against an invalid base state; other
// leads keep draining. Safe to call from any trigger; passes serialize.
func (e *Engine) Drain(ctx context.Context) (DrainStats, error) {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	var stats DrainStats
	byLead, err := e.queue.PendingByLead()
	if err != nil {
		return stats, err
	}

	for leadID, muts := range byLead {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		e.drainLead(ctx, leadID, muts, &stats)
	}

	if stats.Applied+stats.Rejected+stats.Stuck+stats.Deferred > 0 {
		e.logger.Info("drain pass finished",
			zap.Int("applied", stats.Applied),
			zap.Int("rejected", stats.Rejected),
			zap.Int("stuck", stats.Stuck),
			zap.Int("deferred", stats.Deferred))
	}
	return stats, nil
}

// drainLead walks one lead's sub-queue until it empties or halts.
func (e *Engine) drainLead(ctx context.Context, leadID string, muts []models.PendingMutation, stats *DrainStats) {
	for i, m := range muts {
		if ctx.Err() != nil {
			stats.Deferred += len(muts) - i
			return
		}
		if m.NextAttemptAt.After(e.now()) {
			// Backoff not elapsed; everything behind it waits too (FIFO).
			stats.Deferred += len(muts) - i
			return
		}

		res, err := e.remote.ApplyMutation(ctx, remote.Mutation{
			MutationID: m.MutationID,
			Kind:       m.Kind,
			Payload:    json.RawMessage(m.Payload),
		})

		switch {
		case err == nil:
			if cerr := e.queue.Complete(m.MutationID); cerr != nil {
				e.logger.Error("complete mutation", zap.String("mutation_id", m.MutationID), zap.Error(cerr))
			}
			stats.Applied++
			if m.Kind != models.MutationNoteCreate {
				// The server is the tie-breaker: overwrite our optimistic
				// status with whatever it says, no error surfaced.
				if rerr := reach.Reconcile(e.db, e.bus, leadID, res.AuthoritativeStatus); rerr != nil {
					e.logger.Error("reconcile", zap.String("lead_id", leadID), zap.Error(rerr))
				}
			}

		case remote.IsTransient(err):
			if m.AttemptCount+1 >= e.maxAttempts {
				reason := fmt.Sprintf("retry ceiling (%d attempts): %v", e.maxAttempts, err)
				if serr := e.queue.MarkStuck(m.MutationID, reason); serr != nil {
					e.logger.Error("mark stuck", zap.String("mutation_id", m.MutationID), zap.Error(serr))
				}
				stats.Stuck++
				stats.Deferred += len(muts) - i - 1
				if e.alerts != nil {
					e.alerts.MutationStuck(m, reason)
				}
			} else {
				next := e.now().Add(e.backoff(m.AttemptCount))
				if berr := e.queue.Bump(m.MutationID, err.Error(), next); berr != nil {
					e.logger.Error("bump mutation", zap.String("mutation_id", m.MutationID), zap.Error(berr))
				}
				stats.Deferred += len(muts) - i
				e.logger.Warn("transient failure, backing off",
					zap.String("mutation_id", m.MutationID),
					zap.Int("attempt", m.AttemptCount+1),
					zap.Time("next_attempt", next),
					zap.Error(err))
			}
			// Transient or stuck, the rest of this lead's queue waits.
			return

		default:
			// Definite rejection: out of the queue, into manual review, and
			// halt this lead so causally-dependent mutations don't apply
			// against an invalid base.
			if ferr := e.queue.Fail(m.MutationID, err.Error()); ferr != nil {
				e.logger.Error("fail mutation", zap.String("mutation_id", m.MutationID), zap.Error(ferr))
			}
			stats.Rejected++
			e.logger.Warn("mutation rejected",
				zap.String("mutation_id", m.MutationID),
				zap.String("lead_id", leadID),
				zap.Error(err))
			if e.alerts != nil {
				e.alerts.MutationRejected(m, err.Error())
			}
			stats.Deferred += len(muts) - i - 1
			return
		}
	}
}

// backoff computes the delay before retry attempt attempts+1.
func (e *Engine) backoff(attempts int) time.Duration {
	d := e.backoffBase
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= e.backoffCap {
			return e.backoffCap
		}
	}
	if d > e.backoffCap {
		return e.backoffCap
	}
	return d
}
