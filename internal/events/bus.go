// Package events carries reach-status and litigator notifications from the
// core to whatever presentation surface is attached (dashboard SSE stream,
// operator notifiers, a host UI).
package events

import "sync"

// StatusHandler receives reach-status changes, including reconciliation
// overwrites where the authoritative status differs from the optimistic one.
type StatusHandler func(leadID, newStatus string)

// LitigatorHandler receives litigator flags raised by a completed skip
// trace. Subscribers are expected to treat this as a blocking warning, not
// advisory text.
type LitigatorHandler func(leadID string, score float64)

type statusSub struct {
	id int
	fn StatusHandler
}

type litigatorSub struct {
	id int
	fn LitigatorHandler
}

// Bus is a small fan-out of core events. Publishing with no subscribers is
// a no-op, so library code can publish unconditionally. Subscribers that
// come and go (a dashboard connection, say) must call the returned cancel
// to drop their handler.
type Bus struct {
	mu            sync.RWMutex
	nextID        int
	statusSubs    []statusSub
	litigatorSubs []litigatorSub
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// OnReachStatusChanged registers a handler for reach-status changes. The
// returned func removes the handler; calling it more than once is safe.
func (b *Bus) OnReachStatusChanged(fn StatusHandler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.statusSubs = append(b.statusSubs, statusSub{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.statusSubs {
			if s.id == id {
				b.statusSubs = append(b.statusSubs[:i], b.statusSubs[i+1:]...)
				return
			}
		}
	}
}

// OnLitigatorFlagged registers a handler for litigator flags. The returned
// func removes the handler.
func (b *Bus) OnLitigatorFlagged(fn LitigatorHandler) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.litigatorSubs = append(b.litigatorSubs, litigatorSub{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.litigatorSubs {
			if s.id == id {
				b.litigatorSubs = append(b.litigatorSubs[:i], b.litigatorSubs[i+1:]...)
				return
			}
		}
	}
}

// PublishStatusChanged delivers a status change to all subscribers.
// Handlers run on the caller's goroutine; they must not block.
func (b *Bus) PublishStatusChanged(leadID, newStatus string) {
	b.mu.RLock()
	subs := append([]statusSub(nil), b.statusSubs...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(leadID, newStatus)
	}
}

// PublishLitigatorFlagged delivers a litigator flag to all subscribers.
func (b *Bus) PublishLitigatorFlagged(leadID string, score float64) {
	b.mu.RLock()
	subs := append([]litigatorSub(nil), b.litigatorSubs...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(leadID, score)
	}
}
