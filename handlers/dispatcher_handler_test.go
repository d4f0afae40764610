package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/onurcolak/outreach-sequencer/internal/scheduler"
)

type fakeDispatcher struct {
	running   bool
	interval  time.Duration
	batchSize int
}

func (f *fakeDispatcher) StartWithParams(ctx context.Context, interval time.Duration, batchSize int) error {
	f.running = true
	f.interval = interval
	f.batchSize = batchSize
	return nil
}

func (f *fakeDispatcher) Stop() error {
	f.running = false
	return nil
}

func (f *fakeDispatcher) IsRunning() bool { return f.running }

func (f *fakeDispatcher) GetStatus() scheduler.DispatcherStatus {
	return scheduler.DispatcherStatus{Running: f.running, BatchSize: f.batchSize}
}

func TestStartDispatcher_PassesParameters(t *testing.T) {
	e := newTestEcho()
	d := &fakeDispatcher{}
	handler := NewDispatcherHandler(d, context.Background())

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/dispatcher/start", `{"intervalSeconds": 10, "batchSize": 5}`, nil)

	if err := handler.StartDispatcher(c); err != nil {
		t.Fatalf("StartDispatcher returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if d.interval != 10*time.Second || d.batchSize != 5 {
		t.Fatalf("unexpected parameters: interval=%v batchSize=%d", d.interval, d.batchSize)
	}
}

func TestStartDispatcher_InvalidBatchSize(t *testing.T) {
	e := newTestEcho()
	d := &fakeDispatcher{}
	handler := NewDispatcherHandler(d, context.Background())

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/dispatcher/start", `{"batchSize": 0}`, nil)

	if err := handler.StartDispatcher(c); err != nil {
		t.Fatalf("StartDispatcher returned error: %v", err)
	}

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}
	if d.running {
		t.Fatalf("dispatcher must not start on invalid input")
	}
}

func TestStopDispatcher_AlreadyStopped(t *testing.T) {
	e := newTestEcho()
	handler := NewDispatcherHandler(&fakeDispatcher{}, context.Background())

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/dispatcher/stop", "", nil)

	if err := handler.StopDispatcher(c); err != nil {
		t.Fatalf("StopDispatcher returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
