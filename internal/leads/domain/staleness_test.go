package domain

import (
	"testing"
	"time"
)

func TestClassifyStalenessReminderAfter24h(t *testing.T) {
	now := time.Now()
	contacted := now.Add(-30 * time.Hour)

	lead := LeadSnapshot{Stage: StageContacted, CreatedAt: now.Add(-100 * time.Hour), LastContactedAt: &contacted}
	if got := ClassifyStaleness(lead, now); got != StaleNeedsReminder {
		t.Fatalf("expected reminder, got %v", got)
	}
}

func TestClassifyStalenessEscalationSkipsReminderTier(t *testing.T) {
	now := time.Now()
	contacted := now.Add(-50 * time.Hour)

	// Never reminded, but past 48h: escalate anyway. The tiers are
	// independent latches, not a required sequence.
	lead := LeadSnapshot{Stage: StageNew, CreatedAt: now.Add(-60 * time.Hour), LastContactedAt: &contacted}
	if got := ClassifyStaleness(lead, now); got != StaleNeedsEscalation {
		t.Fatalf("expected escalation, got %v", got)
	}
}

func TestClassifyStalenessLatchesSuppressRepeats(t *testing.T) {
	now := time.Now()
	contacted := now.Add(-50 * time.Hour)

	lead := LeadSnapshot{Stage: StageNew, LastContactedAt: &contacted, CreatedAt: now, Escalated: true, ReminderSent: true}
	if got := ClassifyStaleness(lead, now); got != StaleNone {
		t.Fatalf("latched lead must not be classified again, got %v", got)
	}
}

func TestClassifyStalenessEscalatedLeadStillGetsReminder(t *testing.T) {
	now := time.Now()
	contacted := now.Add(-50 * time.Hour)

	// The escalation latch does not absorb the reminder tier: past 24h with
	// the reminder latch unset, the reminder fires even on an escalated lead.
	lead := LeadSnapshot{Stage: StageNew, LastContactedAt: &contacted, CreatedAt: now, Escalated: true}
	if got := ClassifyStaleness(lead, now); got != StaleNeedsReminder {
		t.Fatalf("escalated lead with unset reminder latch must get the reminder, got %v", got)
	}
}

func TestClassifyStalenessUsesCreatedAtWhenNeverContacted(t *testing.T) {
	now := time.Now()

	lead := LeadSnapshot{Stage: StageNew, CreatedAt: now.Add(-25 * time.Hour)}
	if got := ClassifyStaleness(lead, now); got != StaleNeedsReminder {
		t.Fatalf("expected reminder based on createdAt, got %v", got)
	}
}

func TestClassifyStalenessIgnoresLaterStages(t *testing.T) {
	now := time.Now()

	lead := LeadSnapshot{Stage: StageQuoted, CreatedAt: now.Add(-100 * time.Hour)}
	if got := ClassifyStaleness(lead, now); got != StaleNone {
		t.Fatalf("only New and Contacted are monitored, got %v", got)
	}
}

func TestClassifyStalenessSkipsLeadsWithoutTimestamps(t *testing.T) {
	lead := LeadSnapshot{Stage: StageNew}
	if got := ClassifyStaleness(lead, time.Now()); got != StaleNone {
		t.Fatalf("unclassifiable lead must be skipped, got %v", got)
	}
}

func TestSiteVisitDue(t *testing.T) {
	now := time.Now()
	today := now
	tomorrow := now.Add(24 * time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	lead := LeadSnapshot{Stage: StageSiteVisitScheduled, EventDate: &today}
	if due, urgent := SiteVisitDue(lead, now); !due || !urgent {
		t.Fatalf("visit today must be due and urgent, got due=%v urgent=%v", due, urgent)
	}

	lead.EventDate = &tomorrow
	if due, urgent := SiteVisitDue(lead, now); !due || urgent {
		t.Fatalf("visit tomorrow must be due but not urgent, got due=%v urgent=%v", due, urgent)
	}

	lead.EventDate = &nextWeek
	if due, _ := SiteVisitDue(lead, now); due {
		t.Fatalf("visit next week must not be due")
	}

	lead.EventDate = &today
	lead.SiteVisitReminderSent = true
	if due, _ := SiteVisitDue(lead, now); due {
		t.Fatalf("latched reminder must not fire again")
	}

	lead = LeadSnapshot{Stage: StageQuoted, EventDate: &today}
	if due, _ := SiteVisitDue(lead, now); due {
		t.Fatalf("only Site Visit Scheduled leads are eligible")
	}
}

func TestSiteVisitDueUsesLocalCalendarDay(t *testing.T) {
	zone := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, zone)

	// Stored in UTC but the same local calendar day as now; a UTC day cut
	// would misread this as tomorrow.
	visit := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	lead := LeadSnapshot{Stage: StageSiteVisitScheduled, EventDate: &visit}
	if due, urgent := SiteVisitDue(lead, now); !due || !urgent {
		t.Fatalf("visit on the same local day must be urgent, got due=%v urgent=%v", due, urgent)
	}

	nextDay := time.Date(2026, 3, 3, 9, 0, 0, 0, zone)
	lead.EventDate = &nextDay
	if due, urgent := SiteVisitDue(lead, now); !due || urgent {
		t.Fatalf("visit the next local day must be due but not urgent, got due=%v urgent=%v", due, urgent)
	}
}
