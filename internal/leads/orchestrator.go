// Package leads wires the lead lifecycle engine: the event-driven
// orchestrator that reacts to new leads, and the module assembly for the
// HTTP surface.
package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/platform/logger"
)

// Assigner runs the assignment engine for one lead.
type Assigner interface {
	AssignLead(ctx context.Context, id uuid.UUID) error
}

// UnprocessedLister lists leads still waiting for assignment.
type UnprocessedLister interface {
	ListUnprocessedNew(ctx context.Context, limit int) ([]repository.Lead, error)
}

const (
	queueCapacity      = 256
	reconcileInterval  = time.Minute
	reconcileBatchSize = 100
)

// Orchestrator reacts to new-lead events by feeding them through a single
// serialized assignment queue. One worker with a stagger between leads keeps
// round-robin counts coherent: each decision sees the counts updated by the
// previous claim. A periodic reconcile pass re-enqueues leads whose event was
// lost (process restart, full queue), so assignment is eventually exactly-once
// thanks to the processed latch.
type Orchestrator struct {
	assigner Assigner
	store    UnprocessedLister
	log      *logger.Logger
	stagger  time.Duration

	queue chan uuid.UUID

	// Tracks leads queued or being assigned so duplicate events and
	// reconcile overlap never double-enqueue.
	activeRuns map[uuid.UUID]bool
	runsMu     sync.Mutex
}

func NewOrchestrator(assigner Assigner, store UnprocessedLister, log *logger.Logger, stagger time.Duration) *Orchestrator {
	if stagger <= 0 {
		stagger = 2 * time.Second
	}
	return &Orchestrator{
		assigner:   assigner,
		store:      store,
		log:        log,
		stagger:    stagger,
		queue:      make(chan uuid.UUID, queueCapacity),
		activeRuns: make(map[uuid.UUID]bool),
	}
}

// Subscribe registers the orchestrator's event handlers on the bus.
func (o *Orchestrator) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.LeadCreated); ok {
			o.Enqueue(evt.LeadID)
		}
		return nil
	}))
}

// Enqueue queues a lead for assignment. Duplicates and overflow are dropped;
// the reconcile pass picks dropped leads up again.
func (o *Orchestrator) Enqueue(id uuid.UUID) {
	if !o.markRunning(id) {
		return
	}

	select {
	case o.queue <- id:
	default:
		o.markComplete(id)
		o.log.Warn("orchestrator: assignment queue full, lead deferred to reconcile", "leadId", id)
	}
}

func (o *Orchestrator) markRunning(id uuid.UUID) bool {
	o.runsMu.Lock()
	defer o.runsMu.Unlock()

	if o.activeRuns[id] {
		return false
	}
	o.activeRuns[id] = true
	return true
}

func (o *Orchestrator) markComplete(id uuid.UUID) {
	o.runsMu.Lock()
	defer o.runsMu.Unlock()
	delete(o.activeRuns, id)
}

// Run processes the assignment queue until ctx is cancelled. It reconciles
// once at startup (leads created while the process was down never produced an
// event) and then periodically.
func (o *Orchestrator) Run(ctx context.Context) {
	o.ReconcileOnce(ctx)

	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.ReconcileOnce(ctx)
		case id := <-o.queue:
			o.runAssignment(ctx, id)

			// Stagger between leads so near-simultaneous arrivals are
			// decided against up-to-date fairness counts.
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.stagger):
			}
		}
	}
}

func (o *Orchestrator) runAssignment(ctx context.Context, id uuid.UUID) {
	defer o.markComplete(id)

	if err := o.assigner.AssignLead(ctx, id); err != nil {
		o.log.Error("orchestrator: assignment failed", "leadId", id, "error", err)
	}
}

// ReconcileOnce enqueues every lead still unprocessed in stage New.
func (o *Orchestrator) ReconcileOnce(ctx context.Context) {
	leads, err := o.store.ListUnprocessedNew(ctx, reconcileBatchSize)
	if err != nil {
		o.log.Error("orchestrator: reconcile scan failed", "error", err)
		return
	}

	for _, lead := range leads {
		o.Enqueue(lead.ID)
	}
}
