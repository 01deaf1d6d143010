package leads

import (
	"context"
	"sync"
	"testing"
	"time"

	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/repository"
	pevents "venue_crm_backend/platform/events"
	"venue_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeAssigner struct {
	mu    sync.Mutex
	calls []uuid.UUID
	done  chan uuid.UUID
}

func newFakeAssigner() *fakeAssigner {
	return &fakeAssigner{done: make(chan uuid.UUID, 16)}
}

func (f *fakeAssigner) AssignLead(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	f.done <- id
	return nil
}

func (f *fakeAssigner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLister struct {
	mu    sync.Mutex
	leads []repository.Lead
}

func (f *fakeLister) ListUnprocessedNew(ctx context.Context, limit int) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leads, nil
}

func waitFor(t *testing.T, done chan uuid.UUID, want uuid.UUID) {
	t.Helper()
	select {
	case got := <-done:
		if got != want {
			t.Fatalf("expected assignment for %s, got %s", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for assignment of %s", want)
	}
}

func TestOrchestratorAssignsCreatedLead(t *testing.T) {
	assigner := newFakeAssigner()
	o := NewOrchestrator(assigner, &fakeLister{}, logger.New("development"), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	id := uuid.New()
	o.Enqueue(id)
	waitFor(t, assigner.done, id)
}

func TestOrchestratorDropsDuplicateEnqueues(t *testing.T) {
	assigner := newFakeAssigner()
	o := NewOrchestrator(assigner, &fakeLister{}, logger.New("development"), time.Millisecond)

	id := uuid.New()
	o.Enqueue(id)
	o.Enqueue(id)
	o.Enqueue(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	waitFor(t, assigner.done, id)
	// Give a duplicate, if queued, time to surface.
	time.Sleep(50 * time.Millisecond)
	if n := assigner.callCount(); n != 1 {
		t.Fatalf("expected exactly one assignment run, got %d", n)
	}
}

func TestOrchestratorReconcilesUnprocessedLeads(t *testing.T) {
	assigner := newFakeAssigner()
	a := repository.Lead{ID: uuid.New()}
	b := repository.Lead{ID: uuid.New()}
	lister := &fakeLister{leads: []repository.Lead{a, b}}

	o := NewOrchestrator(assigner, lister, logger.New("development"), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	// Startup reconcile must enqueue both, in order.
	waitFor(t, assigner.done, a.ID)
	waitFor(t, assigner.done, b.ID)
}

func TestOrchestratorSubscribeHandlesLeadCreated(t *testing.T) {
	assigner := newFakeAssigner()
	o := NewOrchestrator(assigner, &fakeLister{}, logger.New("development"), time.Millisecond)

	bus := pevents.NewInMemoryBus(logger.New("development"))
	o.Subscribe(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	id := uuid.New()
	if err := bus.PublishSync(ctx, events.LeadCreated{BaseEvent: events.NewBaseEvent(), LeadID: id, LeadName: "Omar"}); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	waitFor(t, assigner.done, id)
}
