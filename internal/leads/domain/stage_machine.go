package domain

import (
	"fmt"
	"time"
)

// TriggerManual tags history entries for transitions not caused by an automation.
const TriggerManual = "manual"

// Follow-up windows attached on stage entry.
const (
	contactFollowUpWindow = 24 * time.Hour
	quoteFollowUpWindow   = 72 * time.Hour
)

// ErrUnknownStage is returned for stage values outside the known set.
// Callers log and ignore it; the lead is left untouched.
type ErrUnknownStage struct {
	Stage string
}

func (e ErrUnknownStage) Error() string {
	return fmt.Sprintf("unknown stage %q", e.Stage)
}

// TransitionPlan describes what a stage transition must do. The machine never
// forbids a from→to pair; its job is attaching side effects, not gatekeeping.
// A NoOp plan (same-stage transition) carries no history entry and no effects,
// because the orchestrator may observe redundant change notifications.
type TransitionPlan struct {
	NoOp bool

	History StageHistoryEntry

	// FollowUpDue is set when entering Contacted (now + 24h).
	FollowUpDue *time.Time
	// QuoteFollowUpDue is set when entering Quoted (now + 72h).
	QuoteFollowUpDue *time.Time
	// SiteVisitReminderAt is set when entering Site Visit Scheduled and an
	// event date is known (eventDate − 1 day).
	SiteVisitReminderAt *time.Time
	// PushInvoice is set when entering Booked; the caller invokes the external
	// invoicing collaborator and records the returned id on success.
	PushInvoice bool
	// LostAt stamps the loss timestamp when entering Lost.
	LostAt *time.Time
}

// PlanTransition computes the side effects of moving a lead from one stage to
// another. Pure: the caller commits the plan and fires external effects.
func PlanTransition(current, requested string, lead LeadSnapshot, trigger string, now time.Time) (TransitionPlan, error) {
	if !IsKnownStage(current) {
		return TransitionPlan{}, ErrUnknownStage{Stage: current}
	}
	if !IsKnownStage(requested) {
		return TransitionPlan{}, ErrUnknownStage{Stage: requested}
	}

	if current == requested {
		return TransitionPlan{NoOp: true}, nil
	}

	if trigger == "" {
		trigger = TriggerManual
	}

	plan := TransitionPlan{
		History: StageHistoryEntry{
			From:      current,
			To:        requested,
			Trigger:   trigger,
			Timestamp: now,
		},
	}

	switch requested {
	case StageContacted:
		due := now.Add(contactFollowUpWindow)
		plan.FollowUpDue = &due
	case StageSiteVisitScheduled:
		if lead.EventDate != nil {
			remindAt := lead.EventDate.Add(-24 * time.Hour)
			plan.SiteVisitReminderAt = &remindAt
		}
	case StageQuoted:
		due := now.Add(quoteFollowUpWindow)
		plan.QuoteFollowUpDue = &due
	case StageBooked:
		plan.PushInvoice = true
	case StageLost:
		lostAt := now
		plan.LostAt = &lostAt
	}

	return plan, nil
}
