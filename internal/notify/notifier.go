package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/models"
	"go.uber.org/zap"
)

// sendTimeout bounds one adapter delivery so a wedged platform cannot
// stall the caller.
const sendTimeout = 10 * time.Second

// Notifier fans alerts out to every configured adapter. It satisfies the
// sync engine's alert sink; deliveries run off the caller's goroutine.
type Notifier struct {
	adapters []Adapter
	logger   *zap.Logger
}

// New builds a Notifier over the given adapters. Zero adapters is valid:
// every alert becomes a log line only.
func New(logger *zap.Logger, adapters ...Adapter) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{adapters: adapters, logger: logger}
}

// Attach subscribes the notifier to bus events that warrant an operator
// alert.
func (n *Notifier) Attach(bus *events.Bus) {
	bus.OnLitigatorFlagged(n.LitigatorFlagged)
}

// MutationRejected reports a mutation the authoritative service refused.
func (n *Notifier) MutationRejected(m models.PendingMutation, reason string) {
	n.broadcast(Alert{
		Title:    "Mutation rejected",
		Body:     reason,
		Severity: SeverityError,
		Color:    severityColor(SeverityError),
		Fields: []Field{
			{Name: "Lead", Value: m.LeadID, Short: true},
			{Name: "Kind", Value: m.Kind, Short: true},
			{Name: "Mutation", Value: m.MutationID},
		},
	})
}

// MutationStuck reports a mutation that exhausted its retry budget.
func (n *Notifier) MutationStuck(m models.PendingMutation, reason string) {
	n.broadcast(Alert{
		Title:    "Mutation stuck",
		Body:     reason,
		Severity: SeverityWarning,
		Color:    severityColor(SeverityWarning),
		Fields: []Field{
			{Name: "Lead", Value: m.LeadID, Short: true},
			{Name: "Attempts", Value: fmt.Sprintf("%d", m.AttemptCount), Short: true},
			{Name: "Mutation", Value: m.MutationID},
		},
	})
}

// LitigatorFlagged reports a skip trace that came back flagged. Outreach to
// the lead is blocked until the warning is acknowledged.
func (n *Notifier) LitigatorFlagged(leadID string, score float64) {
	n.broadcast(Alert{
		Title:    "Litigator flagged",
		Body:     "Outreach is blocked until the warning is acknowledged.",
		Severity: SeverityWarning,
		Color:    severityColor(SeverityWarning),
		Fields: []Field{
			{Name: "Lead", Value: leadID, Short: true},
			{Name: "Score", Value: fmt.Sprintf("%.2f", score), Short: true},
		},
	})
}

// Close shuts down all adapters.
func (n *Notifier) Close() {
	for _, a := range n.adapters {
		if err := a.Close(); err != nil {
			n.logger.Warn("close notify adapter", zap.Error(err))
		}
	}
}

func (n *Notifier) broadcast(alert Alert) {
	n.logger.Info("operator alert",
		zap.String("title", alert.Title),
		zap.String("severity", alert.Severity),
		zap.String("body", alert.Body))
	for _, a := range n.adapters {
		go func(a Adapter) {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			if err := a.Send(ctx, alert); err != nil {
				n.logger.Warn("deliver alert", zap.String("title", alert.Title), zap.Error(err))
			}
		}(a)
	}
}
