// Package monitor runs the periodic safety-net scans: stale-lead reminders
// and escalations, and site-visit reminders. The scans are idempotent; each
// notification is guarded by a one-shot latch claimed with a conditional
// write, so overlapping runs or process restarts never duplicate alerts.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the monitor needs.
type Store interface {
	ListStaleCandidates(ctx context.Context) ([]repository.Lead, error)
	ListSiteVisitCandidates(ctx context.Context, from, to time.Time) ([]repository.Lead, error)
	ListDueFollowUps(ctx context.Context, now time.Time) (contact, quote []repository.Lead, err error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
	MarkEscalated(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSiteVisitReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
	ClearFollowUp(ctx context.Context, id uuid.UUID, kind repository.FollowUpKind) (bool, error)
}

type Monitor struct {
	store Store
	bus   events.Bus
	log   *logger.Logger

	staleInterval     time.Duration
	siteVisitInterval time.Duration
}

func New(store Store, bus events.Bus, log *logger.Logger, staleInterval, siteVisitInterval time.Duration) *Monitor {
	if staleInterval <= 0 {
		staleInterval = 5 * time.Minute
	}
	if siteVisitInterval <= 0 {
		siteVisitInterval = time.Hour
	}
	return &Monitor{
		store:             store,
		bus:               bus,
		log:               log,
		staleInterval:     staleInterval,
		siteVisitInterval: siteVisitInterval,
	}
}

// Run executes a stale scan immediately (leads that crossed a threshold while
// the process was down must not wait a full interval), then loops both scans
// on their tickers until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.scanStale(ctx)
	m.scanSiteVisits(ctx)

	stale := time.NewTicker(m.staleInterval)
	defer stale.Stop()
	visits := time.NewTicker(m.siteVisitInterval)
	defer visits.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stale.C:
			m.scanStale(ctx)
			m.scanFollowUps(ctx)
		case <-visits.C:
			m.scanSiteVisits(ctx)
		}
	}
}

func (m *Monitor) scanStale(ctx context.Context) {
	if err := m.RunStaleScanOnce(ctx, time.Now()); err != nil {
		// Store outage: skip this tick, the next one retries.
		m.log.DatabaseError("stale_lead_scan", err)
	}
}

func (m *Monitor) scanFollowUps(ctx context.Context) {
	if err := m.RunFollowUpScanOnce(ctx, time.Now()); err != nil {
		m.log.DatabaseError("follow_up_scan", err)
	}
}

func (m *Monitor) scanSiteVisits(ctx context.Context) {
	if err := m.RunSiteVisitScanOnce(ctx, time.Now()); err != nil {
		m.log.DatabaseError("site_visit_scan", err)
	}
}

// RunStaleScanOnce classifies every candidate lead and fires the reminder or
// escalation whose latch it wins. A lead past 48h escalates even if it was
// never reminded; the tiers are independent.
func (m *Monitor) RunStaleScanOnce(ctx context.Context, now time.Time) error {
	leads, err := m.store.ListStaleCandidates(ctx)
	if err != nil {
		return err
	}

	for _, lead := range leads {
		snap := lead.Snapshot()
		hours := hoursSinceContact(snap, now)

		switch domain.ClassifyStaleness(snap, now) {
		case domain.StaleNeedsEscalation:
			claimed, err := m.store.MarkEscalated(ctx, lead.ID)
			if err != nil {
				m.log.DatabaseError("mark_escalated", err)
				continue
			}
			if !claimed {
				continue
			}
			m.log.AutomationEvent("stale_lead_escalated", lead.ID.String(),
				slog.String("assigned_to", lead.Manager),
				slog.Int("hours_since_contact", hours))
			m.bus.Publish(ctx, events.StaleLeadEscalation{
				BaseEvent:         events.NewBaseEvent(),
				LeadID:            lead.ID,
				LeadName:          lead.Name,
				AssignedTo:        lead.Manager,
				HoursSinceContact: hours,
			})

		case domain.StaleNeedsReminder:
			claimed, err := m.store.MarkReminderSent(ctx, lead.ID)
			if err != nil {
				m.log.DatabaseError("mark_reminder_sent", err)
				continue
			}
			if !claimed {
				continue
			}
			m.log.AutomationEvent("stale_lead_reminder", lead.ID.String(),
				slog.String("assigned_to", lead.Manager),
				slog.Int("hours_since_contact", hours))
			m.bus.Publish(ctx, events.StaleLeadReminder{
				BaseEvent:         events.NewBaseEvent(),
				LeadID:            lead.ID,
				LeadName:          lead.Name,
				AssignedTo:        lead.Manager,
				HoursSinceContact: hours,
			})
		}
	}
	return nil
}

// RunSiteVisitScanOnce reminds assignees about site visits happening today or
// tomorrow. The window query is a coarse filter over the two local calendar
// days; the exact due/urgent call is the domain's.
func (m *Monitor) RunSiteVisitScanOnce(ctx context.Context, now time.Time) error {
	from := domain.StartOfDay(now)
	to := from.AddDate(0, 0, 2)

	leads, err := m.store.ListSiteVisitCandidates(ctx, from, to)
	if err != nil {
		return err
	}

	for _, lead := range leads {
		due, urgent := domain.SiteVisitDue(lead.Snapshot(), now)
		if !due {
			continue
		}

		claimed, err := m.store.MarkSiteVisitReminderSent(ctx, lead.ID)
		if err != nil {
			m.log.DatabaseError("mark_site_visit_reminder", err)
			continue
		}
		if !claimed {
			continue
		}

		m.log.AutomationEvent("site_visit_reminder", lead.ID.String(),
			slog.String("assigned_to", lead.Manager),
			slog.Bool("urgent", urgent))
		m.bus.Publish(ctx, events.SiteVisitReminder{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			LeadName:   lead.Name,
			AssignedTo: lead.Manager,
			VisitDate:  *lead.EventDate,
			Urgent:     urgent,
		})
	}
	return nil
}

// RunFollowUpScanOnce is the safety net behind the delayed follow-up timers:
// it dispatches any follow-up whose deadline passed but whose timer never
// fired (lost task, process restart). The deadline column is cleared with a
// conditional write, so the timer and the scan dispatch at most once between
// them.
func (m *Monitor) RunFollowUpScanOnce(ctx context.Context, now time.Time) error {
	contact, quote, err := m.store.ListDueFollowUps(ctx, now)
	if err != nil {
		return err
	}

	dispatch := func(lead repository.Lead, kind repository.FollowUpKind) {
		claimed, err := m.store.ClearFollowUp(ctx, lead.ID, kind)
		if err != nil {
			m.log.DatabaseError("clear_follow_up", err)
			return
		}
		if !claimed {
			return
		}
		m.bus.Publish(ctx, events.FollowUpDue{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			LeadName:   lead.Name,
			AssignedTo: lead.Manager,
			Kind:       string(kind),
		})
	}

	for _, lead := range contact {
		// A lead that moved past Contacted no longer needs the nudge.
		if lead.Stage == domain.StageContacted {
			dispatch(lead, repository.FollowUpContact)
		} else {
			_, _ = m.store.ClearFollowUp(ctx, lead.ID, repository.FollowUpContact)
		}
	}
	for _, lead := range quote {
		if lead.Stage == domain.StageQuoted {
			dispatch(lead, repository.FollowUpQuote)
		} else {
			_, _ = m.store.ClearFollowUp(ctx, lead.ID, repository.FollowUpQuote)
		}
	}
	return nil
}

func hoursSinceContact(lead domain.LeadSnapshot, now time.Time) int {
	lastContact := lead.CreatedAt
	if lead.LastContactedAt != nil {
		lastContact = *lead.LastContactedAt
	}
	if lastContact.IsZero() {
		return 0
	}
	return int(now.Sub(lastContact).Hours())
}
