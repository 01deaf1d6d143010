// Package domain holds the pure decision logic of the lead lifecycle engine:
// the stage machine, the assignment engine, the automation rule evaluator, and
// the role scope gate. Nothing in this package performs I/O; every function is
// deterministic given its inputs so the engine can be tested without a store.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline stages. Lost is terminal and reachable from any non-terminal stage.
const (
	StageNew                = "New"
	StageContacted          = "Contacted"
	StageQualified          = "Qualified"
	StageSiteVisitScheduled = "Site Visit Scheduled"
	StageQuoted             = "Quoted"
	StageNegotiating        = "Negotiating"
	StageBooked             = "Booked"
	StageLost               = "Lost"
)

// ManagerUnassigned is the sentinel assignee for leads nobody owns yet.
const ManagerUnassigned = "Unassigned"

var knownStages = map[string]struct{}{
	StageNew:                {},
	StageContacted:          {},
	StageQualified:          {},
	StageSiteVisitScheduled: {},
	StageQuoted:             {},
	StageNegotiating:        {},
	StageBooked:             {},
	StageLost:               {},
}

// IsKnownStage reports whether the value is one of the pipeline stages.
func IsKnownStage(stage string) bool {
	_, ok := knownStages[stage]
	return ok
}

// IsTerminalStage reports whether the stage ends the pursuit.
func IsTerminalStage(stage string) bool {
	return stage == StageLost
}

// LeadSnapshot is the read model the decision functions operate on.
// The processed/reminderSent/escalated/siteVisitReminderSent booleans are
// idempotency latches: once true, the corresponding automated action must
// never fire again for this lead.
type LeadSnapshot struct {
	ID        uuid.UUID
	Name      string
	Stage     string
	Manager   string
	Source    string
	Phone     string
	Email     string
	EventDate *time.Time

	CreatedAt       time.Time
	LastContactedAt *time.Time
	NextCallDate    *time.Time

	Processed             bool
	ReminderSent          bool
	Escalated             bool
	SiteVisitReminderSent bool
}

// StageHistoryEntry is one append-only record of a stage transition.
type StageHistoryEntry struct {
	From      string
	To        string
	Trigger   string
	Timestamp time.Time
}
