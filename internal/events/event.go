// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"venue_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	LeadName string    `json:"leadName"`
	Source   string    `json:"source,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Email    string    `json:"email,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadAssigned is published when the assignment engine claims a lead for an employee.
type LeadAssigned struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	LeadName string    `json:"leadName"`
	Employee string    `json:"employee"`
	Method   string    `json:"method"`
	Source   string    `json:"source,omitempty"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// StageChanged is published after a stage transition is committed.
type StageChanged struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	LeadName string    `json:"leadName"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Trigger  string    `json:"trigger"`
	Actor    string    `json:"actor,omitempty"`
}

func (e StageChanged) EventName() string { return "leads.stage.changed" }

// StaleLeadReminder is published when a lead crosses the 24h no-contact threshold.
// Emitted at most once per lead; the reminder latch is set before publishing.
type StaleLeadReminder struct {
	BaseEvent
	LeadID            uuid.UUID `json:"leadId"`
	LeadName          string    `json:"leadName"`
	AssignedTo        string    `json:"assignedTo"`
	HoursSinceContact int       `json:"hoursSinceContact"`
}

func (e StaleLeadReminder) EventName() string { return "leads.stale.reminder" }

// StaleLeadEscalation is published when a lead crosses the 48h no-contact threshold.
// Emitted at most once per lead; the escalation latch is set before publishing.
type StaleLeadEscalation struct {
	BaseEvent
	LeadID            uuid.UUID `json:"leadId"`
	LeadName          string    `json:"leadName"`
	AssignedTo        string    `json:"assignedTo"`
	HoursSinceContact int       `json:"hoursSinceContact"`
}

func (e StaleLeadEscalation) EventName() string { return "leads.stale.escalation" }

// SiteVisitReminder is published when a scheduled site visit is today or tomorrow.
type SiteVisitReminder struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	LeadName   string    `json:"leadName"`
	AssignedTo string    `json:"assignedTo"`
	VisitDate  time.Time `json:"visitDate"`
	Urgent     bool      `json:"urgent"`
}

func (e SiteVisitReminder) EventName() string { return "leads.sitevisit.reminder" }

// FollowUpDue is published by the scheduler worker when a stage-entry
// follow-up timer fires and the lead has not been contacted since.
type FollowUpDue struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	LeadName   string    `json:"leadName"`
	AssignedTo string    `json:"assignedTo"`
	Kind       string    `json:"kind"` // "contact" or "quote"
}

func (e FollowUpDue) EventName() string { return "leads.followup.due" }

// LeadBooked is published after a lead enters the Booked stage and the
// invoicing push has been attempted.
type LeadBooked struct {
	BaseEvent
	LeadID            uuid.UUID `json:"leadId"`
	LeadName          string    `json:"leadName"`
	AssignedTo        string    `json:"assignedTo"`
	InvoiceExternalID string    `json:"invoiceExternalId,omitempty"`
}

func (e LeadBooked) EventName() string { return "leads.lead.booked" }
