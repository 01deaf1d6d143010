package service

import (
	"context"
	"testing"
	"time"

	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/internal/policy"
	"venue_crm_backend/platform/apperr"
	"venue_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	leads   map[uuid.UUID]repository.Lead
	counts  map[string]int
	history []repository.StageHistoryEntry

	claims  []string
	commits []repository.StageCommit
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: map[uuid.UUID]repository.Lead{}, counts: map[string]int{}}
}

func (f *fakeStore) put(lead repository.Lead) repository.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.Stage == "" {
		lead.Stage = domain.StageNew
	}
	if lead.Manager == "" {
		lead.Manager = domain.ManagerUnassigned
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeStore) Create(ctx context.Context, p repository.CreateLeadParams) (repository.Lead, error) {
	return f.put(repository.Lead{Name: p.Name, Phone: p.Phone, Email: p.Email, Source: p.Source, EventDate: p.EventDate}), nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) List(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, error) {
	var out []repository.Lead
	for _, lead := range f.leads {
		if len(filter.Managers) > 0 {
			ok := false
			for _, m := range filter.Managers {
				if lead.Manager == m {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, lead)
	}
	return out, nil
}

func (f *fakeStore) UpdateFields(ctx context.Context, id uuid.UUID, fields repository.UpdateLeadFields) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if fields.Phone != nil {
		lead.Phone = *fields.Phone
	}
	if fields.LastContactedAt != nil {
		lead.LastContactedAt = fields.LastContactedAt
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeStore) ClaimForAssignment(ctx context.Context, id uuid.UUID, employee string) (bool, error) {
	lead, ok := f.leads[id]
	if !ok || lead.Processed || lead.Manager != domain.ManagerUnassigned || lead.Stage != domain.StageNew {
		return false, nil
	}
	lead.Manager = employee
	lead.Processed = true
	f.leads[id] = lead
	f.claims = append(f.claims, employee)
	return true, nil
}

func (f *fakeStore) CommitStageTransition(ctx context.Context, id uuid.UUID, c repository.StageCommit) (bool, error) {
	lead, ok := f.leads[id]
	if !ok || lead.Stage != c.FromStage {
		return false, nil
	}
	lead.Stage = c.ToStage
	if c.LastContactedAt != nil {
		lead.LastContactedAt = c.LastContactedAt
	}
	if c.FollowUpDue != nil {
		lead.FollowUpDue = c.FollowUpDue
	}
	if c.QuoteFollowUpDue != nil {
		lead.QuoteFollowUpDue = c.QuoteFollowUpDue
	}
	if c.LostAt != nil {
		lead.LostAt = c.LostAt
	}
	if c.ClearNextCallDate {
		lead.NextCallDate = nil
	}
	f.leads[id] = lead
	f.commits = append(f.commits, c)
	f.history = append(f.history, repository.StageHistoryEntry{LeadID: id, FromStage: c.FromStage, ToStage: c.ToStage, Trigger: c.Trigger})
	return true, nil
}

func (f *fakeStore) RecordInvoiceExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	lead := f.leads[id]
	lead.InvoiceExternalID = &externalID
	f.leads[id] = lead
	return nil
}

func (f *fakeStore) CountNewByManager(ctx context.Context) (map[string]int, error) {
	return f.counts, nil
}

func (f *fakeStore) StageHistory(ctx context.Context, id uuid.UUID) ([]repository.StageHistoryEntry, error) {
	var out []repository.StageHistoryEntry
	for _, e := range f.history {
		if e.LeadID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePolicies struct{ snap policy.Snapshot }

func (f *fakePolicies) Current() policy.Snapshot                  { return f.snap }
func (f *fakePolicies) Fresh(ctx context.Context) policy.Snapshot { return f.snap }

type capturedEvent struct {
	name  string
	event events.Event
}

type fakeBus struct{ published []capturedEvent }

func (f *fakeBus) Publish(ctx context.Context, e events.Event) {
	f.published = append(f.published, capturedEvent{name: e.EventName(), event: e})
}
func (f *fakeBus) PublishSync(ctx context.Context, e events.Event) error {
	f.Publish(ctx, e)
	return nil
}
func (f *fakeBus) Subscribe(eventName string, handler events.Handler) {}

func (f *fakeBus) names() []string {
	var out []string
	for _, p := range f.published {
		out = append(out, p.name)
	}
	return out
}

type fakeInvoicing struct {
	calls int
	fail  bool
}

func (f *fakeInvoicing) PushBooking(ctx context.Context, leadID uuid.UUID, leadName string, eventDate *time.Time) (string, error) {
	f.calls++
	if f.fail {
		return "", context.DeadlineExceeded
	}
	return "INV-001", nil
}

type scheduledTimer struct {
	kind string
	at   time.Time
}

type fakeScheduler struct{ timers []scheduledTimer }

func (f *fakeScheduler) ScheduleFollowUp(ctx context.Context, leadID uuid.UUID, kind string, at time.Time) error {
	f.timers = append(f.timers, scheduledTimer{kind: kind, at: at})
	return nil
}
func (f *fakeScheduler) ScheduleSiteVisitReminder(ctx context.Context, leadID uuid.UUID, at time.Time) error {
	f.timers = append(f.timers, scheduledTimer{kind: "site_visit", at: at})
	return nil
}

func newTestService(store *fakeStore, snap policy.Snapshot) (*Service, *fakeBus, *fakeInvoicing, *fakeScheduler) {
	bus := &fakeBus{}
	inv := &fakeInvoicing{}
	sched := &fakeScheduler{}
	svc := New(store, &fakePolicies{snap: snap}, bus, inv, sched, logger.New("development"))
	return svc, bus, inv, sched
}

func adminCaller() domain.Caller {
	return domain.Caller{Name: "Root", Role: "admin"}
}

func TestCreateLeadPublishesEvent(t *testing.T) {
	store := newFakeStore()
	svc, bus, _, _ := newTestService(store, policy.Defaults())

	lead, err := svc.CreateLead(context.Background(), CreateLeadInput{Name: "Fatima", Phone: "+31612345678", Source: "Website"})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if lead.Stage != domain.StageNew || lead.Manager != domain.ManagerUnassigned {
		t.Fatalf("new lead must start New/Unassigned, got %s/%s", lead.Stage, lead.Manager)
	}
	if names := bus.names(); len(names) != 1 || names[0] != "leads.lead.created" {
		t.Fatalf("expected lead.created event, got %v", names)
	}
}

func TestAssignLeadClaimsAndPublishes(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar", Source: "Website"})

	snap := policy.Defaults()
	snap.Roster = []domain.Employee{{Name: "Ali"}, {Name: "Zara"}}
	store.counts = map[string]int{"Ali": 3, "Zara": 1}

	svc, bus, _, _ := newTestService(store, snap)
	if err := svc.AssignLead(context.Background(), lead.ID); err != nil {
		t.Fatalf("AssignLead: %v", err)
	}

	got := store.leads[lead.ID]
	if got.Manager != "Zara" || !got.Processed {
		t.Fatalf("expected Zara to claim the lead, got manager=%s processed=%v", got.Manager, got.Processed)
	}
	if names := bus.names(); len(names) != 1 || names[0] != "leads.lead.assigned" {
		t.Fatalf("expected lead.assigned event, got %v", names)
	}
}

func TestAssignLeadIsIdempotent(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", Processed: true})

	snap := policy.Defaults()
	snap.Roster = []domain.Employee{{Name: "Zara"}}

	svc, bus, _, _ := newTestService(store, snap)
	if err := svc.AssignLead(context.Background(), lead.ID); err != nil {
		t.Fatalf("AssignLead: %v", err)
	}
	if store.leads[lead.ID].Manager != "Ali" {
		t.Fatalf("processed lead must not be reassigned")
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event must be published for an already-processed lead")
	}
}

func TestAssignLeadManualModeLeavesUnclaimed(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar"})

	snap := policy.Defaults()
	snap.Assignment.Mode = domain.ModeManual
	snap.Roster = []domain.Employee{{Name: "Zara"}}

	svc, bus, _, _ := newTestService(store, snap)
	if err := svc.AssignLead(context.Background(), lead.ID); err != nil {
		t.Fatalf("AssignLead: %v", err)
	}

	got := store.leads[lead.ID]
	if got.Processed || got.Manager != domain.ManagerUnassigned {
		t.Fatalf("manual mode must not claim, got manager=%s processed=%v", got.Manager, got.Processed)
	}
	if len(bus.published) != 0 {
		t.Fatalf("no event must be published without a claim")
	}
}

func TestTransitionToContactedStampsContactAndSchedulesFollowUp(t *testing.T) {
	store := newFakeStore()
	next := time.Now().Add(time.Hour)
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", NextCallDate: &next})

	svc, bus, _, sched := newTestService(store, policy.Defaults())
	got, err := svc.TransitionStage(context.Background(), adminCaller(), lead.ID, domain.StageContacted, "", "Root")
	if err != nil {
		t.Fatalf("TransitionStage: %v", err)
	}

	if got.Stage != domain.StageContacted {
		t.Fatalf("expected Contacted, got %s", got.Stage)
	}
	if got.LastContactedAt == nil {
		t.Fatalf("contact must stamp last_contacted_at")
	}
	if got.NextCallDate != nil {
		t.Fatalf("contact must clear next_call_date")
	}
	if len(sched.timers) != 1 || sched.timers[0].kind != "contact" {
		t.Fatalf("expected one contact follow-up timer, got %v", sched.timers)
	}
	if names := bus.names(); len(names) != 1 || names[0] != "leads.stage.changed" {
		t.Fatalf("expected stage.changed event, got %v", names)
	}
}

func TestTransitionToBookedPushesInvoice(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", Stage: domain.StageNegotiating})

	svc, bus, inv, _ := newTestService(store, policy.Defaults())
	got, err := svc.TransitionStage(context.Background(), adminCaller(), lead.ID, domain.StageBooked, "", "Root")
	if err != nil {
		t.Fatalf("TransitionStage: %v", err)
	}

	if inv.calls != 1 {
		t.Fatalf("expected one invoicing push, got %d", inv.calls)
	}
	if got.InvoiceExternalID == nil || *got.InvoiceExternalID != "INV-001" {
		t.Fatalf("external invoice id must be recorded, got %v", got.InvoiceExternalID)
	}

	names := bus.names()
	if len(names) != 2 || names[0] != "leads.lead.booked" || names[1] != "leads.stage.changed" {
		t.Fatalf("expected booked then stage.changed, got %v", names)
	}
}

func TestTransitionBookingSurvivesInvoicingOutage(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", Stage: domain.StageNegotiating})

	svc, _, inv, _ := newTestService(store, policy.Defaults())
	inv.fail = true

	got, err := svc.TransitionStage(context.Background(), adminCaller(), lead.ID, domain.StageBooked, "", "Root")
	if err != nil {
		t.Fatalf("booking must not fail on invoicing outage: %v", err)
	}
	if got.Stage != domain.StageBooked {
		t.Fatalf("expected Booked, got %s", got.Stage)
	}
	if got.InvoiceExternalID != nil {
		t.Fatalf("no external id must be recorded on failure")
	}
}

func TestTransitionSameStageIsNoOp(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", Stage: domain.StageQuoted})

	svc, bus, _, _ := newTestService(store, policy.Defaults())
	if _, err := svc.TransitionStage(context.Background(), adminCaller(), lead.ID, domain.StageQuoted, "", "Root"); err != nil {
		t.Fatalf("TransitionStage: %v", err)
	}
	if len(store.commits) != 0 || len(bus.published) != 0 {
		t.Fatalf("same-stage transition must not write or publish")
	}
}

func TestTransitionUnknownRequestedStageIsRejected(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali"})

	svc, _, _, _ := newTestService(store, policy.Defaults())
	_, err := svc.TransitionStage(context.Background(), adminCaller(), lead.ID, "Archived", "", "Root")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionUnknownStoredStageIsIgnored(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali", Stage: "Legacy"})

	svc, bus, _, _ := newTestService(store, policy.Defaults())
	got, err := svc.TransitionStage(context.Background(), adminCaller(), lead.ID, domain.StageContacted, "", "Root")
	if err != nil {
		t.Fatalf("bad stored stage must be ignored, not failed: %v", err)
	}
	if got.Stage != "Legacy" || len(store.commits) != 0 || len(bus.published) != 0 {
		t.Fatalf("lead must be left untouched")
	}
}

func TestGetLeadOutOfScopeReadsAsNotFound(t *testing.T) {
	store := newFakeStore()
	lead := store.put(repository.Lead{Name: "Omar", Manager: "Ali"})

	svc, _, _, _ := newTestService(store, policy.Defaults())
	_, err := svc.GetLead(context.Background(), domain.Caller{Name: "Bilal", Role: "Sales"}, lead.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("out-of-scope read must look like not found, got %v", err)
	}
}

func TestListLeadsPushesScopeIntoFilter(t *testing.T) {
	store := newFakeStore()
	store.put(repository.Lead{Name: "A", Manager: "Ali"})
	store.put(repository.Lead{Name: "B", Manager: "Bilal"})
	store.put(repository.Lead{Name: "C", Manager: "Zara"})

	snap := policy.Defaults()
	snap.Roster = []domain.Employee{
		{Name: "Zara", Role: "Manager", Team: "A"},
		{Name: "Ali", Role: "Sales", Team: "A"},
		{Name: "Bilal", Role: "Sales", Team: "B"},
	}

	svc, _, _, _ := newTestService(store, snap)
	leads, err := svc.ListLeads(context.Background(), domain.Caller{Name: "Zara", Role: "Manager"}, nil, 0)
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("manager must see own team only, got %d leads", len(leads))
	}
	for _, lead := range leads {
		if lead.Manager == "Bilal" {
			t.Fatalf("out-of-team lead leaked into results")
		}
	}
}
