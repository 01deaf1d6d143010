package domain

import "time"

// Staleness thresholds for leads sitting in New or Contacted.
const (
	ReminderThreshold   = 24 * time.Hour
	EscalationThreshold = 48 * time.Hour
)

// StaleClass is the outcome of a staleness check.
type StaleClass int

const (
	// StaleNone means no action is due.
	StaleNone StaleClass = iota
	// StaleNeedsReminder means the 24h reminder latch should fire.
	StaleNeedsReminder
	// StaleNeedsEscalation means the 48h escalation latch should fire.
	StaleNeedsEscalation
)

// ClassifyStaleness decides whether a lead needs a reminder or an escalation.
// The two tiers are independent one-shot latches, not a required sequence: a
// lead crossing 48h is escalated even if it was never reminded. Leads outside
// New/Contacted, or with no usable contact timestamp, are never classified.
func ClassifyStaleness(lead LeadSnapshot, now time.Time) StaleClass {
	if lead.Stage != StageNew && lead.Stage != StageContacted {
		return StaleNone
	}

	lastContact := lead.CreatedAt
	if lead.LastContactedAt != nil {
		lastContact = *lead.LastContactedAt
	}
	if lastContact.IsZero() {
		return StaleNone
	}

	since := now.Sub(lastContact)
	switch {
	case since > EscalationThreshold && !lead.Escalated:
		return StaleNeedsEscalation
	case since > ReminderThreshold && !lead.ReminderSent:
		return StaleNeedsReminder
	default:
		return StaleNone
	}
}

// SiteVisitDue reports whether a site-visit reminder should fire for the lead,
// and whether it is urgent (visit is today rather than tomorrow). Only leads
// in Site Visit Scheduled with an event date today or tomorrow and an unset
// reminder latch qualify. Calendar days are evaluated in now's location, so
// the today/tomorrow split follows the venue's clock, not UTC.
func SiteVisitDue(lead LeadSnapshot, now time.Time) (due bool, urgent bool) {
	if lead.Stage != StageSiteVisitScheduled || lead.SiteVisitReminderSent || lead.EventDate == nil {
		return false, false
	}

	today := StartOfDay(now)
	visitDay := StartOfDay(lead.EventDate.In(now.Location()))

	switch {
	case visitDay.Equal(today):
		return true, true
	case visitDay.Equal(today.AddDate(0, 0, 1)):
		return true, false
	default:
		return false, false
	}
}

// StartOfDay returns midnight of t's calendar day in t's location.
// Truncate cuts on absolute 24h boundaries and lands on the wrong day for
// non-UTC zones.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
