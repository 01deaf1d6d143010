package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeMonitorStore struct {
	leads   map[uuid.UUID]repository.Lead
	listErr error
}

func newFakeMonitorStore() *fakeMonitorStore {
	return &fakeMonitorStore{leads: map[uuid.UUID]repository.Lead{}}
}

func (f *fakeMonitorStore) put(lead repository.Lead) repository.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeMonitorStore) ListStaleCandidates(ctx context.Context) ([]repository.Lead, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []repository.Lead
	for _, lead := range f.leads {
		if (lead.Stage == domain.StageNew || lead.Stage == domain.StageContacted) && (!lead.Escalated || !lead.ReminderSent) {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (f *fakeMonitorStore) ListSiteVisitCandidates(ctx context.Context, from, to time.Time) ([]repository.Lead, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []repository.Lead
	for _, lead := range f.leads {
		if lead.Stage != domain.StageSiteVisitScheduled || lead.SiteVisitReminderSent || lead.EventDate == nil {
			continue
		}
		if !lead.EventDate.Before(from) && lead.EventDate.Before(to) {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (f *fakeMonitorStore) ListDueFollowUps(ctx context.Context, now time.Time) (contact, quote []repository.Lead, err error) {
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	for _, lead := range f.leads {
		if lead.FollowUpDue != nil && !lead.FollowUpDue.After(now) {
			contact = append(contact, lead)
		}
		if lead.QuoteFollowUpDue != nil && !lead.QuoteFollowUpDue.After(now) {
			quote = append(quote, lead)
		}
	}
	return contact, quote, nil
}

func (f *fakeMonitorStore) ClearFollowUp(ctx context.Context, id uuid.UUID, kind repository.FollowUpKind) (bool, error) {
	lead := f.leads[id]
	switch kind {
	case repository.FollowUpContact:
		if lead.FollowUpDue == nil {
			return false, nil
		}
		lead.FollowUpDue = nil
	case repository.FollowUpQuote:
		if lead.QuoteFollowUpDue == nil {
			return false, nil
		}
		lead.QuoteFollowUpDue = nil
	}
	f.leads[id] = lead
	return true, nil
}

func (f *fakeMonitorStore) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	lead := f.leads[id]
	if lead.ReminderSent {
		return false, nil
	}
	lead.ReminderSent = true
	f.leads[id] = lead
	return true, nil
}

func (f *fakeMonitorStore) MarkEscalated(ctx context.Context, id uuid.UUID) (bool, error) {
	lead := f.leads[id]
	if lead.Escalated {
		return false, nil
	}
	lead.Escalated = true
	f.leads[id] = lead
	return true, nil
}

func (f *fakeMonitorStore) MarkSiteVisitReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	lead := f.leads[id]
	if lead.SiteVisitReminderSent {
		return false, nil
	}
	lead.SiteVisitReminderSent = true
	f.leads[id] = lead
	return true, nil
}

type fakeBus struct{ published []events.Event }

func (f *fakeBus) Publish(ctx context.Context, e events.Event) { f.published = append(f.published, e) }
func (f *fakeBus) PublishSync(ctx context.Context, e events.Event) error {
	f.Publish(ctx, e)
	return nil
}
func (f *fakeBus) Subscribe(eventName string, handler events.Handler) {}

func (f *fakeBus) names() []string {
	var out []string
	for _, e := range f.published {
		out = append(out, e.EventName())
	}
	return out
}

func newTestMonitor(store *fakeMonitorStore) (*Monitor, *fakeBus) {
	bus := &fakeBus{}
	return New(store, bus, logger.New("development"), 0, 0), bus
}

func TestStaleScanFiresReminderOnce(t *testing.T) {
	store := newFakeMonitorStore()
	now := time.Now()
	contacted := now.Add(-30 * time.Hour)
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", Stage: domain.StageContacted, CreatedAt: now.Add(-40 * time.Hour), LastContactedAt: &contacted})

	m, bus := newTestMonitor(store)
	if err := m.RunStaleScanOnce(context.Background(), now); err != nil {
		t.Fatalf("RunStaleScanOnce: %v", err)
	}
	if names := bus.names(); len(names) != 1 || names[0] != "leads.stale.reminder" {
		t.Fatalf("expected one reminder, got %v", names)
	}
	if !store.leads[lead.ID].ReminderSent {
		t.Fatalf("reminder latch must be set")
	}

	// Second scan: the latch suppresses a repeat.
	if err := m.RunStaleScanOnce(context.Background(), now); err != nil {
		t.Fatalf("RunStaleScanOnce: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("reminder must fire at most once, got %d events", len(bus.published))
	}
}

func TestStaleScanEscalatesWithoutPriorReminder(t *testing.T) {
	store := newFakeMonitorStore()
	now := time.Now()
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", Stage: domain.StageNew, CreatedAt: now.Add(-50 * time.Hour)})

	m, bus := newTestMonitor(store)
	if err := m.RunStaleScanOnce(context.Background(), now); err != nil {
		t.Fatalf("RunStaleScanOnce: %v", err)
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "leads.stale.escalation" {
		t.Fatalf("expected a single escalation, got %v", names)
	}
	esc := bus.published[0].(events.StaleLeadEscalation)
	if esc.HoursSinceContact != 50 {
		t.Fatalf("expected 50 hours since contact, got %d", esc.HoursSinceContact)
	}
	if !store.leads[lead.ID].Escalated {
		t.Fatalf("escalation latch must be set")
	}
}

func TestStaleScanRemindsEscalatedLeadWithUnsetReminderLatch(t *testing.T) {
	store := newFakeMonitorStore()
	now := time.Now()
	contacted := now.Add(-50 * time.Hour)

	// Escalated in an earlier scan, reminder latch still unset: the reminder
	// tier is still owed.
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", Stage: domain.StageNew, CreatedAt: now.Add(-60 * time.Hour), LastContactedAt: &contacted, Escalated: true})

	m, bus := newTestMonitor(store)
	if err := m.RunStaleScanOnce(context.Background(), now); err != nil {
		t.Fatalf("RunStaleScanOnce: %v", err)
	}

	if names := bus.names(); len(names) != 1 || names[0] != "leads.stale.reminder" {
		t.Fatalf("expected the reminder despite the escalation latch, got %v", names)
	}
	if !store.leads[lead.ID].ReminderSent {
		t.Fatalf("reminder latch must be set")
	}
}

func TestStaleScanStoreOutageReturnsError(t *testing.T) {
	store := newFakeMonitorStore()
	store.listErr = errors.New("connection refused")

	m, bus := newTestMonitor(store)
	if err := m.RunStaleScanOnce(context.Background(), time.Now()); err == nil {
		t.Fatalf("store outage must surface so the tick is retried")
	}
	if len(bus.published) != 0 {
		t.Fatalf("no events on a failed scan")
	}
}

func TestFollowUpScanDispatchesOverdueAndClearsStale(t *testing.T) {
	store := newFakeMonitorStore()
	now := time.Now()
	overdue := now.Add(-time.Hour)

	// Still in Contacted: follow-up fires.
	active := store.put(repository.Lead{Name: "A", Manager: "Ali", Stage: domain.StageContacted, FollowUpDue: &overdue})
	// Moved on: deadline is cleared without firing.
	moved := store.put(repository.Lead{Name: "B", Manager: "Ali", Stage: domain.StageQuoted, FollowUpDue: &overdue})

	m, bus := newTestMonitor(store)
	if err := m.RunFollowUpScanOnce(context.Background(), now); err != nil {
		t.Fatalf("RunFollowUpScanOnce: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one follow-up event, got %d", len(bus.published))
	}
	evt := bus.published[0].(events.FollowUpDue)
	if evt.LeadID != active.ID || evt.Kind != "contact" {
		t.Fatalf("unexpected follow-up event %+v", evt)
	}
	if store.leads[moved.ID].FollowUpDue != nil {
		t.Fatalf("stale deadline must be cleared")
	}

	// Deadlines are one-shot.
	if err := m.RunFollowUpScanOnce(context.Background(), now); err != nil {
		t.Fatalf("RunFollowUpScanOnce: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("follow-up must not fire twice")
	}
}

func TestSiteVisitScanRemindsForTodayAndTomorrow(t *testing.T) {
	store := newFakeMonitorStore()
	now := time.Now()
	today := now
	tomorrow := now.Add(24 * time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	urgent := store.put(repository.Lead{Name: "A", Manager: "Ali", Stage: domain.StageSiteVisitScheduled, EventDate: &today})
	store.put(repository.Lead{Name: "B", Manager: "Ali", Stage: domain.StageSiteVisitScheduled, EventDate: &tomorrow})
	store.put(repository.Lead{Name: "C", Manager: "Ali", Stage: domain.StageSiteVisitScheduled, EventDate: &nextWeek})

	m, bus := newTestMonitor(store)
	if err := m.RunSiteVisitScanOnce(context.Background(), now); err != nil {
		t.Fatalf("RunSiteVisitScanOnce: %v", err)
	}

	if len(bus.published) != 2 {
		t.Fatalf("expected reminders for today and tomorrow only, got %d", len(bus.published))
	}
	for _, e := range bus.published {
		reminder := e.(events.SiteVisitReminder)
		if reminder.LeadID == urgent.ID && !reminder.Urgent {
			t.Fatalf("visit today must be urgent")
		}
		if reminder.LeadID != urgent.ID && reminder.Urgent {
			t.Fatalf("visit tomorrow must not be urgent")
		}
	}

	// Latches suppress the next scan entirely.
	if err := m.RunSiteVisitScanOnce(context.Background(), now); err != nil {
		t.Fatalf("RunSiteVisitScanOnce: %v", err)
	}
	if len(bus.published) != 2 {
		t.Fatalf("reminders must not repeat, got %d", len(bus.published))
	}
}
