// Package service implements the lead lifecycle use cases: intake, assignment,
// stage transitions and scoped reads. Decision logic lives in the domain
// package; this layer loads state, commits outcomes and fires side effects.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/internal/policy"
	"venue_crm_backend/platform/apperr"
	"venue_crm_backend/platform/logger"
	"venue_crm_backend/platform/phone"

	"github.com/google/uuid"
)

// LeadStore is the persistence surface the service needs.
type LeadStore interface {
	Create(ctx context.Context, p repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields repository.UpdateLeadFields) (repository.Lead, error)
	ClaimForAssignment(ctx context.Context, id uuid.UUID, employee string) (bool, error)
	CommitStageTransition(ctx context.Context, id uuid.UUID, c repository.StageCommit) (bool, error)
	RecordInvoiceExternalID(ctx context.Context, id uuid.UUID, externalID string) error
	CountNewByManager(ctx context.Context) (map[string]int, error)
	StageHistory(ctx context.Context, id uuid.UUID) ([]repository.StageHistoryEntry, error)
}

// PolicySource provides policy snapshots. Fresh is used on assignment paths
// where stale fairness counts or rosters would skew decisions.
type PolicySource interface {
	Current() policy.Snapshot
	Fresh(ctx context.Context) policy.Snapshot
}

// InvoicePusher creates a draft invoice in the external invoicing system
// when a lead books.
type InvoicePusher interface {
	PushBooking(ctx context.Context, leadID uuid.UUID, leadName string, eventDate *time.Time) (string, error)
}

// FollowUpScheduler enqueues delayed follow-up checks.
type FollowUpScheduler interface {
	ScheduleFollowUp(ctx context.Context, leadID uuid.UUID, kind string, at time.Time) error
	ScheduleSiteVisitReminder(ctx context.Context, leadID uuid.UUID, at time.Time) error
}

type Service struct {
	store     LeadStore
	policies  PolicySource
	bus       events.Bus
	invoicing InvoicePusher
	scheduler FollowUpScheduler
	log       *logger.Logger
}

func New(store LeadStore, policies PolicySource, bus events.Bus, invoicing InvoicePusher, scheduler FollowUpScheduler, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		policies:  policies,
		bus:       bus,
		invoicing: invoicing,
		scheduler: scheduler,
		log:       log,
	}
}

// CreateLeadInput holds validated intake fields.
type CreateLeadInput struct {
	Name      string
	Phone     string
	Email     *string
	Source    string
	EventDate *time.Time
}

// CreateLead stores a new lead and announces it. The lead starts in New,
// unassigned; the orchestrator picks it up from the published event.
func (s *Service) CreateLead(ctx context.Context, in CreateLeadInput) (repository.Lead, error) {
	in.Phone = phone.NormalizeE164(in.Phone)

	lead, err := s.store.Create(ctx, repository.CreateLeadParams{
		Name:      in.Name,
		Phone:     in.Phone,
		Email:     in.Email,
		Source:    in.Source,
		EventDate: in.EventDate,
	})
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	email := ""
	if lead.Email != nil {
		email = *lead.Email
	}
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		Source:    lead.Source,
		Phone:     lead.Phone,
		Email:     email,
	})

	return lead, nil
}

// GetLead returns a lead if the caller's scope admits it.
func (s *Service) GetLead(ctx context.Context, caller domain.Caller, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	if !s.ScopeFor(caller).Allows(lead.Snapshot()) {
		// Out-of-scope reads as not-found so record existence does not leak.
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

// ListLeads returns leads visible to the caller. The scope is pushed into the
// store query as an assignee filter, so out-of-scope rows are never fetched.
func (s *Service) ListLeads(ctx context.Context, caller domain.Caller, stages []string, limit int) ([]repository.Lead, error) {
	scope := s.ScopeFor(caller)

	leads, err := s.store.List(ctx, repository.ListFilter{
		Stages:   stages,
		Managers: scope.AllowedManagers(),
		Limit:    limit,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}
	return leads, nil
}

// UpdateLead applies a partial field update after a scope check.
func (s *Service) UpdateLead(ctx context.Context, caller domain.Caller, id uuid.UUID, fields repository.UpdateLeadFields) (repository.Lead, error) {
	if _, err := s.GetLead(ctx, caller, id); err != nil {
		return repository.Lead{}, err
	}

	if fields.Phone != nil {
		normalized := phone.NormalizeE164(*fields.Phone)
		fields.Phone = &normalized
	}

	lead, err := s.store.UpdateFields(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to update lead", err)
	}
	return lead, nil
}

// StageHistory returns the transition log for a lead visible to the caller.
func (s *Service) StageHistory(ctx context.Context, caller domain.Caller, id uuid.UUID) ([]repository.StageHistoryEntry, error) {
	if _, err := s.GetLead(ctx, caller, id); err != nil {
		return nil, err
	}
	entries, err := s.store.StageHistory(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load stage history", err)
	}
	return entries, nil
}

// ScopeFor resolves the caller's data-visibility scope, expanding a manager's
// team from the current roster.
func (s *Service) ScopeFor(caller domain.Caller) domain.Scope {
	if len(caller.Team) == 0 {
		caller.Team = s.policies.Current().TeamOf(caller.Name)
	}
	return domain.ScopeFor(caller)
}

// ResolveAutomation returns the enabled automation actions for a source,
// using the cached policy snapshot.
func (s *Service) ResolveAutomation(sourceName string) domain.ActionSet {
	return domain.ResolveAutomation(sourceName, s.policies.Current().Automation)
}

// AssignLead runs the assignment engine for one new lead. Idempotent: the
// processed latch is claimed with a conditional write, and a lost claim means
// another worker already assigned the lead. Leads that resolve to Unassigned
// (manual mode, unassigned fallback, empty roster) are left unclaimed so the
// reconcile pass retries them; no event is published for them.
func (s *Service) AssignLead(ctx context.Context, id uuid.UUID) error {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if lead.Processed || lead.Stage != domain.StageNew {
		return nil
	}

	// Policy is re-read per lead so fairness counts and roster edits made
	// mid-batch take effect immediately.
	snap := s.policies.Fresh(ctx)
	counts, err := s.store.CountNewByManager(ctx)
	if err != nil {
		return err
	}

	decision := domain.DecideAssignment(lead.Snapshot(), snap.Assignment, snap.Roster, counts)

	if decision.Employee == domain.ManagerUnassigned {
		s.log.AutomationEvent("assignment_skipped", id.String(),
			slog.String("method", decision.Method))
		return nil
	}

	claimed, err := s.store.ClaimForAssignment(ctx, id, decision.Employee)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	s.log.AutomationEvent("lead_assigned", id.String(),
		slog.String("employee", decision.Employee),
		slog.String("method", decision.Method))

	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		LeadName:  lead.Name,
		Employee:  decision.Employee,
		Method:    decision.Method,
		Source:    lead.Source,
	})
	return nil
}
