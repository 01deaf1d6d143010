package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"venue_crm_backend/internal/events"
	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// TransitionStage moves a lead to the requested stage, commits the side
// effects the stage machine planned, and publishes the change. Trigger tags
// the history entry ("manual" for user-driven moves, an automation name
// otherwise); actor is the user name for manual moves.
func (s *Service) TransitionStage(ctx context.Context, caller domain.Caller, id uuid.UUID, requested, trigger, actor string) (repository.Lead, error) {
	if !domain.IsKnownStage(requested) {
		return repository.Lead{}, apperr.Validation("unknown stage").WithDetails(map[string]string{"stage": requested})
	}

	lead, err := s.GetLead(ctx, caller, id)
	if err != nil {
		return repository.Lead{}, err
	}

	now := time.Now()
	plan, err := domain.PlanTransition(lead.Stage, requested, lead.Snapshot(), trigger, now)
	if err != nil {
		// A stored stage outside the known set means bad legacy data. Log and
		// leave the lead untouched rather than failing the caller.
		var unknown domain.ErrUnknownStage
		if errors.As(err, &unknown) {
			s.log.Warn("stage transition ignored",
				slog.String("lead_id", id.String()),
				slog.String("stage", unknown.Stage))
			return lead, nil
		}
		return repository.Lead{}, err
	}
	if plan.NoOp {
		return lead, nil
	}

	commit := repository.StageCommit{
		FromStage:        lead.Stage,
		ToStage:          requested,
		Trigger:          plan.History.Trigger,
		FollowUpDue:      plan.FollowUpDue,
		QuoteFollowUpDue: plan.QuoteFollowUpDue,
		LostAt:           plan.LostAt,
	}
	if requested == domain.StageContacted {
		// Contact resets the staleness clock and consumes the pending call.
		commit.LastContactedAt = &now
		commit.ClearNextCallDate = true
	}
	if plan.SiteVisitReminderAt != nil {
		commit.SiteVisitReminder = true
	}

	ok, err := s.store.CommitStageTransition(ctx, id, commit)
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to commit stage transition", err)
	}
	if !ok {
		return repository.Lead{}, apperr.Conflict("lead stage changed concurrently")
	}

	s.log.AutomationEvent("stage_changed", id.String(),
		slog.String("from", lead.Stage),
		slog.String("to", requested),
		slog.String("trigger", plan.History.Trigger))

	s.scheduleTimers(ctx, id, plan)

	if plan.PushInvoice {
		s.pushInvoice(ctx, lead)
	}

	s.bus.Publish(ctx, events.StageChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		LeadName:  lead.Name,
		From:      lead.Stage,
		To:        requested,
		Trigger:   plan.History.Trigger,
		Actor:     actor,
	})

	return s.store.GetByID(ctx, id)
}

// scheduleTimers enqueues the delayed checks the plan asked for. Scheduling
// failures are logged, not returned: the periodic scans cover missed timers.
func (s *Service) scheduleTimers(ctx context.Context, id uuid.UUID, plan domain.TransitionPlan) {
	if s.scheduler == nil {
		return
	}
	if plan.FollowUpDue != nil {
		if err := s.scheduler.ScheduleFollowUp(ctx, id, "contact", *plan.FollowUpDue); err != nil {
			s.log.Warn("failed to schedule contact follow-up", slog.String("lead_id", id.String()), slog.String("error", err.Error()))
		}
	}
	if plan.QuoteFollowUpDue != nil {
		if err := s.scheduler.ScheduleFollowUp(ctx, id, "quote", *plan.QuoteFollowUpDue); err != nil {
			s.log.Warn("failed to schedule quote follow-up", slog.String("lead_id", id.String()), slog.String("error", err.Error()))
		}
	}
	if plan.SiteVisitReminderAt != nil {
		if err := s.scheduler.ScheduleSiteVisitReminder(ctx, id, *plan.SiteVisitReminderAt); err != nil {
			s.log.Warn("failed to schedule site visit reminder", slog.String("lead_id", id.String()), slog.String("error", err.Error()))
		}
	}
}

// pushInvoice creates the draft invoice for a booked lead and records the
// external reference. Failures are logged; booking never rolls back because
// the invoicing system is down.
func (s *Service) pushInvoice(ctx context.Context, lead repository.Lead) {
	if s.invoicing == nil {
		return
	}

	externalID, err := s.invoicing.PushBooking(ctx, lead.ID, lead.Name, lead.EventDate)
	if err != nil {
		s.log.Error("invoicing push failed",
			slog.String("lead_id", lead.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	if err := s.store.RecordInvoiceExternalID(ctx, lead.ID, externalID); err != nil {
		s.log.DatabaseError("record_invoice_external_id", err)
	}

	s.bus.Publish(ctx, events.LeadBooked{
		BaseEvent:         events.NewBaseEvent(),
		LeadID:            lead.ID,
		LeadName:          lead.Name,
		AssignedTo:        lead.Manager,
		InvoiceExternalID: externalID,
	})
}
