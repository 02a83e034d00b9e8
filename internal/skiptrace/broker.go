// Package skiptrace brokers paid contact-discovery lookups. Every path to
// the provider runs through a quote: cached tiers resolve automatically at
// zero cost, a cache miss parks the quote until the operator explicitly
// confirms the spend. Quotes are ephemeral and live only in memory.
package skiptrace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/models"
	"github.com/dealscout/dealscout/internal/remote"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoQuote is returned on confirm or cancel of a quote the broker is not
// holding. A paid call is never made without a live quote behind it.
var ErrNoQuote = errors.New("skiptrace: no pending quote")

// Decision is the outcome of a quote request. Exactly one of Result or
// Quote is set: Result when a cache tier resolved the trace with no
// confirmation, Quote when the operator must approve the cost first.
type Decision struct {
	Result *models.SkipTraceResult
	Quote  *remote.Quote
}

// ConfirmationRequired reports whether the caller must Confirm before any
// contact data is produced.
func (d *Decision) ConfirmationRequired() bool {
	return d.Quote != nil
}

type pendingQuote struct {
	quote     remote.Quote
	expiresAt time.Time
}

// Broker owns the quote/confirm flow for one device.
type Broker struct {
	db     *gorm.DB
	remote remote.API
	bus    *events.Bus
	logger *zap.Logger
	ttl    time.Duration

	mu      sync.Mutex
	pending map[string]pendingQuote

	now func() time.Time
}

// New builds a Broker. ttl bounds how long a confirmation may be deferred
// before the quoted price is no longer honored.
func New(db *gorm.DB, api remote.API, bus *events.Bus, logger *zap.Logger, ttl time.Duration) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Broker{
		db:      db,
		remote:  api,
		bus:     bus,
		logger:  logger,
		ttl:     ttl,
		pending: make(map[string]pendingQuote),
		now:     time.Now,
	}
}

// GetQuote resolves the cheapest tier for a lead. Device cache first: a
// prior trace for the same normalized address returns immediately with no
// network traffic. Otherwise the remote service quotes; any cached tier
// auto-resolves since it costs nothing, and only a true miss comes back as
// a quote awaiting confirmation.
func (b *Broker) GetQuote(ctx context.Context, leadID string) (*Decision, error) {
	var lead models.Lead
	if err := b.db.Where("lead_id = ?", leadID).First(&lead).Error; err != nil {
		return nil, fmt.Errorf("skiptrace: load lead %s: %w", leadID, err)
	}

	if cached, ok := b.deviceCached(lead.NormalizedAddress); ok {
		if err := b.adoptCached(&lead, cached); err != nil {
			return nil, err
		}
		b.logger.Debug("skip trace served from device cache",
			zap.String("lead_id", leadID),
			zap.String("skip_trace_id", cached.SkipTraceID))
		return &Decision{Result: cached}, nil
	}

	quote, err := b.remote.GetSkipTraceQuote(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if quote.CacheStatus != models.CacheMiss {
		// Tenant or global cache: free, execute without asking.
		result, err := b.execute(ctx, &lead, quote.QuoteID)
		if err != nil {
			return nil, err
		}
		return &Decision{Result: result}, nil
	}

	b.mu.Lock()
	b.pending[quote.QuoteID] = pendingQuote{quote: *quote, expiresAt: b.now().Add(b.ttl)}
	b.mu.Unlock()
	b.logger.Info("skip trace quote awaiting confirmation",
		zap.String("lead_id", leadID),
		zap.String("quote_id", quote.QuoteID),
		zap.Float64("estimated_cost", quote.EstimatedCost))
	return &Decision{Quote: quote}, nil
}

// Confirm approves the spend behind a previously issued quote and runs the
// paid trace. An unknown quote ID is refused outright; a quote past its TTL
// returns remote.ErrQuoteExpired and the operator must re-quote.
//
// The quote is claimed before the provider call, so a concurrent Confirm on
// the same ID gets ErrNoQuote instead of a second paid execution. The claim
// is rolled back on retryable failures only.
func (b *Broker) Confirm(ctx context.Context, quoteID string) (*models.SkipTraceResult, error) {
	b.mu.Lock()
	pq, ok := b.pending[quoteID]
	if ok {
		if b.now().After(pq.expiresAt) {
			delete(b.pending, quoteID)
			b.mu.Unlock()
			return nil, remote.ErrQuoteExpired
		}
		delete(b.pending, quoteID)
	}
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoQuote, quoteID)
	}

	var lead models.Lead
	if err := b.db.Where("lead_id = ?", pq.quote.LeadID).First(&lead).Error; err != nil {
		b.restore(quoteID, pq)
		return nil, fmt.Errorf("skiptrace: load lead %s: %w", pq.quote.LeadID, err)
	}

	result, err := b.execute(ctx, &lead, quoteID)
	if errors.Is(err, remote.ErrQuoteExpired) {
		// Server-side expiry beats the local clock; the quote stays gone.
		return nil, err
	}
	if err != nil {
		// Provider and transient failures put the quote back so the
		// operator can confirm again without re-quoting.
		b.restore(quoteID, pq)
		return nil, err
	}
	return result, nil
}

// Cancel withdraws a pending quote without spending anything.
func (b *Broker) Cancel(quoteID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[quoteID]; !ok {
		return fmt.Errorf("%w: %s", ErrNoQuote, quoteID)
	}
	delete(b.pending, quoteID)
	return nil
}

// Pending returns the live quotes, for the CLI and dashboard views.
func (b *Broker) Pending() []remote.Quote {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	out := make([]remote.Quote, 0, len(b.pending))
	for id, pq := range b.pending {
		if now.After(pq.expiresAt) {
			delete(b.pending, id)
			continue
		}
		out = append(out, pq.quote)
	}
	return out
}

func (b *Broker) restore(quoteID string, pq pendingQuote) {
	b.mu.Lock()
	b.pending[quoteID] = pq
	b.mu.Unlock()
}

// deviceCached looks up a prior trace for the address on this device.
func (b *Broker) deviceCached(normalizedAddress string) (*models.SkipTraceResult, bool) {
	if normalizedAddress == "" {
		return nil, false
	}
	var result models.SkipTraceResult
	err := b.db.Where("normalized_address = ?", normalizedAddress).
		Order("traced_at DESC").First(&result).Error
	if err != nil {
		return nil, false
	}
	result.CacheStatus = models.CacheDevice
	return &result, true
}

// adoptCached stamps the lead with a trace served from the device cache.
// The litigator verdict travels with the result: a cached litigator blocks
// outreach on the new lead exactly as a fresh trace would.
func (b *Broker) adoptCached(lead *models.Lead, cached *models.SkipTraceResult) error {
	updates := map[string]interface{}{
		"skip_trace_id":   cached.SkipTraceID,
		"skip_traced_at":  b.now(),
		"is_litigator":    cached.IsLitigator,
		"litigator_score": cached.LitigatorScore,
	}
	if cached.IsLitigator {
		updates["litigator_ack_required"] = true
	}
	if err := b.db.Model(&models.Lead{}).Where("lead_id = ?", lead.LeadID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("skiptrace: stamp lead %s: %w", lead.LeadID, err)
	}
	if cached.IsLitigator && !lead.LitigatorAckRequired && b.bus != nil {
		b.bus.PublishLitigatorFlagged(lead.LeadID, cached.LitigatorScore)
	}
	return nil
}

// execute runs the trace behind a quote, persists the result, and stamps
// the lead. A litigator verdict raises the blocking acknowledgment gate
// before anyone can start an interaction.
func (b *Broker) execute(ctx context.Context, lead *models.Lead, quoteID string) (*models.SkipTraceResult, error) {
	traced, err := b.remote.ExecuteSkipTrace(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	phones, err := json.Marshal(traced.Phones)
	if err != nil {
		return nil, fmt.Errorf("skiptrace: encode phones: %w", err)
	}
	emails, err := json.Marshal(traced.Emails)
	if err != nil {
		return nil, fmt.Errorf("skiptrace: encode emails: %w", err)
	}

	now := b.now()
	result := models.SkipTraceResult{
		SkipTraceID:       traced.SkipTraceID,
		LeadID:            lead.LeadID,
		NormalizedAddress: lead.NormalizedAddress,
		Provider:          traced.Provider,
		Phones:            string(phones),
		Emails:            string(emails),
		IsLitigator:       traced.IsLitigator,
		LitigatorScore:    traced.LitigatorScore,
		Cost:              traced.Cost,
		CacheStatus:       traced.CacheStatus,
		TracedAt:          now,
	}

	leadUpdates := map[string]interface{}{
		"skip_trace_id":   traced.SkipTraceID,
		"skip_traced_at":  now,
		"is_litigator":    traced.IsLitigator,
		"litigator_score": traced.LitigatorScore,
	}
	if traced.IsLitigator {
		leadUpdates["litigator_ack_required"] = true
	}

	err = b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&result).Error; err != nil {
			return fmt.Errorf("skiptrace: persist result: %w", err)
		}
		if err := tx.Model(&models.Lead{}).Where("lead_id = ?", lead.LeadID).
			Updates(leadUpdates).Error; err != nil {
			return fmt.Errorf("skiptrace: stamp lead: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("skip trace executed",
		zap.String("lead_id", lead.LeadID),
		zap.String("skip_trace_id", traced.SkipTraceID),
		zap.String("cache_status", traced.CacheStatus),
		zap.Float64("cost", traced.Cost),
		zap.Bool("is_litigator", traced.IsLitigator))

	if traced.IsLitigator && b.bus != nil {
		b.bus.PublishLitigatorFlagged(lead.LeadID, traced.LitigatorScore)
	}
	return &result, nil
}
