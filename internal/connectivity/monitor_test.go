package connectivity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMonitor_StartsOffline(t *testing.T) {
	m := NewMonitor(nil, time.Second, time.Second, nil)
	if m.IsOnline() {
		t.Error("monitor must start offline (fail closed)")
	}
}

func TestMonitor_FlipRequiresDwell(t *testing.T) {
	m := NewMonitor(nil, time.Second, 2*time.Second, nil)

	var flips []bool
	m.Subscribe(func(online bool) { flips = append(flips, online) })

	t0 := time.Now()
	m.observe(true, t0)
	if m.IsOnline() {
		t.Fatal("single observation must not flip before dwell")
	}
	m.observe(true, t0.Add(500*time.Millisecond))
	if m.IsOnline() {
		t.Fatal("dwell not yet held")
	}
	m.observe(true, t0.Add(2*time.Second))
	if !m.IsOnline() {
		t.Fatal("dwell held, should be online")
	}
	if len(flips) != 1 || !flips[0] {
		t.Errorf("flips = %v, want [true]", flips)
	}
}

func TestMonitor_FlappingSuppressed(t *testing.T) {
	m := NewMonitor(nil, time.Second, 2*time.Second, nil)

	var flips int
	m.Subscribe(func(bool) { flips++ })

	t0 := time.Now()
	// Link flaps faster than the dwell window: no transition reported.
	m.observe(true, t0)
	m.observe(false, t0.Add(time.Second))
	m.observe(true, t0.Add(2*time.Second))
	m.observe(false, t0.Add(3*time.Second))

	if flips != 0 {
		t.Errorf("flips = %d, want 0 for a flapping link", flips)
	}
	if m.IsOnline() {
		t.Error("state should remain offline")
	}
}

func TestMonitor_ReturnToCommittedStateResetsCandidate(t *testing.T) {
	m := NewMonitor(nil, time.Second, 2*time.Second, nil)

	t0 := time.Now()
	m.observe(true, t0)
	m.observe(false, t0.Add(time.Second)) // back to committed offline
	// A fresh online streak must hold the full dwell from its own start.
	m.observe(true, t0.Add(2*time.Second))
	if m.IsOnline() {
		t.Error("stale candidate must not count toward the new streak")
	}
	m.observe(true, t0.Add(4*time.Second))
	if !m.IsOnline() {
		t.Error("full dwell held, should be online")
	}
}

func TestMonitor_OfflineFlipDebounced(t *testing.T) {
	m := NewMonitor(nil, time.Second, time.Second, nil)

	t0 := time.Now()
	m.observe(true, t0)
	m.observe(true, t0.Add(time.Second))
	if !m.IsOnline() {
		t.Fatal("setup: should be online")
	}

	var last bool
	m.Subscribe(func(online bool) { last = online })

	m.observe(false, t0.Add(2*time.Second))
	if !m.IsOnline() {
		t.Fatal("offline flip must also hold the dwell")
	}
	m.observe(false, t0.Add(3*time.Second))
	if m.IsOnline() {
		t.Fatal("should be offline now")
	}
	if last {
		t.Error("subscriber should have seen the offline transition")
	}
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Even an error status proves the link is up.
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	probe := HTTPProbe(srv.URL, time.Second)
	if err := probe(context.Background()); err != nil {
		t.Errorf("probe against live server: %v", err)
	}

	srv.Close()
	if err := probe(context.Background()); err == nil {
		t.Error("probe against closed server should fail")
	}
}

func TestMonitor_RunPollsProbe(t *testing.T) {
	probeErr := errors.New("no route")
	calls := make(chan struct{}, 10)
	probe := func(ctx context.Context) error {
		calls <- struct{}{}
		return probeErr
	}

	m := NewMonitor(probe, 10*time.Millisecond, 0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	go m.Run(ctx)

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("probe never invoked")
	}
	<-ctx.Done()
	if m.IsOnline() {
		t.Error("failing probe must keep the monitor offline")
	}
}
