package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"venue_crm_backend/internal/email"
	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []CreateNotificationParams
	callList      []AddCallListEntryParams
}

func (f *fakeNotificationStore) CreateNotification(ctx context.Context, p CreateNotificationParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, p)
	return nil
}

func (f *fakeNotificationStore) AddCallListEntry(ctx context.Context, p AddCallListEntryParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callList = append(f.callList, p)
	return nil
}

type fakeSender struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeSender) SendMessage(ctx context.Context, phoneNumber, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeEmailSender) Send(ctx context.Context, toEmail, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, toEmail)
	return nil
}

type fakeResolver struct{ actions domain.ActionSet }

func (f *fakeResolver) ResolveAutomation(sourceName string) domain.ActionSet { return f.actions }

func newTestModule(actions domain.ActionSet) (*Module, *fakeNotificationStore, *fakeSender, *fakeSender, *fakeEmailSender) {
	store := &fakeNotificationStore{}
	wa := &fakeSender{}
	sms := &fakeSender{}
	mail := &fakeEmailSender{}
	m := &Module{
		store:    store,
		resolver: &fakeResolver{actions: actions},
		whatsapp: wa,
		sms:      sms,
		email:    mail,
		fromName: "Venue CRM",
		log:      logger.New("development"),
	}
	return m, store, wa, sms, mail
}

func leadCreated() events.LeadCreated {
	return events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		LeadName:  "Fatima",
		Source:    "Website",
		Phone:     "+31612345678",
		Email:     "fatima@example.com",
	}
}

func TestLeadCreatedRunsEnabledActions(t *testing.T) {
	m, store, wa, sms, mail := newTestModule(domain.ActionSet{
		AddToCallList:    true,
		SendNotification: true,
		TextAutoResponse: true,
		EmailResponse:    true,
	})

	if err := m.onLeadCreated(context.Background(), leadCreated()); err != nil {
		t.Fatalf("onLeadCreated: %v", err)
	}

	if len(store.callList) != 1 || store.callList[0].Reason != "new_lead" {
		t.Fatalf("expected one call list entry, got %v", store.callList)
	}
	if len(store.notifications) != 1 || store.notifications[0].Type != "new_lead" {
		t.Fatalf("expected one new-lead notification, got %v", store.notifications)
	}
	if wa.count() != 1 || sms.count() != 1 {
		t.Fatalf("expected text greeting on both channels, got wa=%d sms=%d", wa.count(), sms.count())
	}
	if len(mail.sent) != 1 || mail.sent[0] != "fatima@example.com" {
		t.Fatalf("expected email greeting, got %v", mail.sent)
	}
}

func TestLeadCreatedSkipsDisabledActions(t *testing.T) {
	m, store, wa, sms, mail := newTestModule(domain.SafeDefaultActionSet())

	if err := m.onLeadCreated(context.Background(), leadCreated()); err != nil {
		t.Fatalf("onLeadCreated: %v", err)
	}

	// Safe default: call list and notification only, no outbound messages.
	if len(store.callList) != 1 || len(store.notifications) != 1 {
		t.Fatalf("safe default must add call list entry and notification")
	}
	if wa.count() != 0 || sms.count() != 0 || len(mail.sent) != 0 {
		t.Fatalf("safe default must not send outbound messages")
	}
}

func TestLeadCreatedWithoutEmailAddressSkipsEmail(t *testing.T) {
	m, _, _, _, mail := newTestModule(domain.ActionSet{EmailResponse: true})

	evt := leadCreated()
	evt.Email = ""
	if err := m.onLeadCreated(context.Background(), evt); err != nil {
		t.Fatalf("onLeadCreated: %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatalf("no email must be sent without an address")
	}
}

func TestEscalationIsBroadcastHighPriority(t *testing.T) {
	m, store, _, _, _ := newTestModule(domain.ActionSet{})

	evt := events.StaleLeadEscalation{
		BaseEvent:         events.NewBaseEvent(),
		LeadID:            uuid.New(),
		LeadName:          "Fatima",
		AssignedTo:        "Ali",
		HoursSinceContact: 50,
	}
	if err := m.onStaleEscalation(context.Background(), evt); err != nil {
		t.Fatalf("onStaleEscalation: %v", err)
	}

	if len(store.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(store.notifications))
	}
	n := store.notifications[0]
	if n.Priority != "high" || n.AssignedTo != "" {
		t.Fatalf("escalation must be a high-priority broadcast, got priority=%q assignedTo=%q", n.Priority, n.AssignedTo)
	}
}

func TestSiteVisitReminderPriority(t *testing.T) {
	m, store, _, _, _ := newTestModule(domain.ActionSet{})

	evt := events.SiteVisitReminder{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     uuid.New(),
		LeadName:   "Fatima",
		AssignedTo: "Ali",
		VisitDate:  time.Now(),
		Urgent:     true,
	}
	if err := m.onSiteVisitReminder(context.Background(), evt); err != nil {
		t.Fatalf("onSiteVisitReminder: %v", err)
	}

	evt.Urgent = false
	evt.VisitDate = time.Now().Add(24 * time.Hour)
	if err := m.onSiteVisitReminder(context.Background(), evt); err != nil {
		t.Fatalf("onSiteVisitReminder: %v", err)
	}

	if len(store.notifications) != 2 {
		t.Fatalf("expected two notifications, got %d", len(store.notifications))
	}
	if got := store.notifications[0].Priority; got != "urgent" {
		t.Fatalf("visit today must be urgent priority, got %q", got)
	}
	if got := store.notifications[1].Priority; got != "high" {
		t.Fatalf("visit tomorrow must be high priority, got %q", got)
	}
}

var _ email.Sender = (*fakeEmailSender)(nil)
