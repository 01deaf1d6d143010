// Package transport defines the HTTP request/response shapes for the leads API.
package transport

import (
	"time"

	"venue_crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// CreateLeadRequest is the intake payload for a new lead.
type CreateLeadRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=200"`
	Phone     string     `json:"phone" validate:"required,min=5,max=32"`
	Email     *string    `json:"email,omitempty" validate:"omitempty,email"`
	Source    string     `json:"source" validate:"required,min=1,max=100"`
	EventDate *time.Time `json:"eventDate,omitempty"`
}

// UpdateLeadRequest carries a partial lead update; absent fields are untouched.
type UpdateLeadRequest struct {
	Name            *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone           *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	Email           *string    `json:"email,omitempty" validate:"omitempty,email"`
	Source          *string    `json:"source,omitempty" validate:"omitempty,min=1,max=100"`
	EventDate       *time.Time `json:"eventDate,omitempty"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	NextCallDate    *time.Time `json:"nextCallDate,omitempty"`
}

// TransitionRequest moves a lead to a new pipeline stage.
type TransitionRequest struct {
	Stage   string `json:"stage" validate:"required"`
	Trigger string `json:"trigger,omitempty" validate:"omitempty,max=50"`
}

// ListLeadsQuery filters the lead list.
type ListLeadsQuery struct {
	Stage []string `form:"stage"`
	Limit int      `form:"limit"`
}

// LeadResponse is the API shape of a lead.
type LeadResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Email     *string    `json:"email,omitempty"`
	Source    string     `json:"source"`
	Stage     string     `json:"stage"`
	Manager   string     `json:"manager"`
	EventDate *time.Time `json:"eventDate,omitempty"`

	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	NextCallDate    *time.Time `json:"nextCallDate,omitempty"`

	Processed             bool `json:"processed"`
	ReminderSent          bool `json:"reminderSent"`
	Escalated             bool `json:"escalated"`
	SiteVisitReminderSent bool `json:"siteVisitReminderSent"`

	InvoiceExternalID *string `json:"invoiceExternalId,omitempty"`
}

// ToLeadResponse maps a stored lead to its API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                    lead.ID,
		Name:                  lead.Name,
		Phone:                 lead.Phone,
		Email:                 lead.Email,
		Source:                lead.Source,
		Stage:                 lead.Stage,
		Manager:               lead.Manager,
		EventDate:             lead.EventDate,
		CreatedAt:             lead.CreatedAt,
		UpdatedAt:             lead.UpdatedAt,
		LastContactedAt:       lead.LastContactedAt,
		NextCallDate:          lead.NextCallDate,
		Processed:             lead.Processed,
		ReminderSent:          lead.ReminderSent,
		Escalated:             lead.Escalated,
		SiteVisitReminderSent: lead.SiteVisitReminderSent,
		InvoiceExternalID:     lead.InvoiceExternalID,
	}
}

// ToLeadResponses maps a list of stored leads.
func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

// StageHistoryResponse is one stage transition record.
type StageHistoryResponse struct {
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	Trigger   string    `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
}

// ToStageHistoryResponses maps the transition log.
func ToStageHistoryResponses(entries []repository.StageHistoryEntry) []StageHistoryResponse {
	out := make([]StageHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, StageHistoryResponse{
			FromStage: e.FromStage,
			ToStage:   e.ToStage,
			Trigger:   e.Trigger,
			Timestamp: e.CreatedAt,
		})
	}
	return out
}
