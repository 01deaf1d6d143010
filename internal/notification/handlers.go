package notification

import (
	"context"
	"fmt"

	"venue_crm_backend/internal/email"
	"venue_crm_backend/internal/events"

	"golang.org/x/sync/errgroup"
)

// onLeadCreated runs the per-source automation actions for a fresh lead:
// call list, internal notification, and the outbound auto-responses.
func (m *Module) onLeadCreated(ctx context.Context, evt events.LeadCreated) error {
	actions := m.resolver.ResolveAutomation(evt.Source)

	if actions.AddToCallList {
		err := m.store.AddCallListEntry(ctx, AddCallListEntryParams{
			LeadID:   evt.LeadID,
			LeadName: evt.LeadName,
			Phone:    evt.Phone,
			Source:   evt.Source,
			Reason:   "new_lead",
		})
		if err != nil {
			m.log.Error("failed to add call list entry", "leadId", evt.LeadID, "error", err)
		}
	}

	if actions.SendNotification {
		err := m.store.CreateNotification(ctx, CreateNotificationParams{
			Type:     "new_lead",
			LeadID:   evt.LeadID,
			LeadName: evt.LeadName,
			Message:  fmt.Sprintf("New lead %s from %s", evt.LeadName, evt.Source),
		})
		if err != nil {
			m.log.Error("failed to create new-lead notification", "leadId", evt.LeadID, "error", err)
		}
	}

	m.sendGreetings(ctx, evt, actions.TextAutoResponse, actions.EmailResponse)
	return nil
}

// sendGreetings fans the enabled auto-responses out concurrently. Channel
// failures are logged per channel and never block each other.
func (m *Module) sendGreetings(ctx context.Context, evt events.LeadCreated, text, emailResponse bool) {
	g, gctx := errgroup.WithContext(ctx)

	if text && evt.Phone != "" {
		message := fmt.Sprintf("Hi %s, thanks for your enquiry! Our team will contact you shortly to talk through your event.", evt.LeadName)

		if m.whatsapp != nil {
			g.Go(func() error {
				if err := m.whatsapp.SendMessage(gctx, evt.Phone, message); err != nil {
					m.log.Error("whatsapp greeting failed", "leadId", evt.LeadID, "error", err)
				}
				return nil
			})
		}
		if m.sms != nil {
			g.Go(func() error {
				if err := m.sms.SendMessage(gctx, evt.Phone, message); err != nil {
					m.log.Error("sms greeting failed", "leadId", evt.LeadID, "error", err)
				}
				return nil
			})
		}
	}

	if emailResponse && evt.Email != "" && m.email != nil {
		g.Go(func() error {
			subject, body := email.Greeting(evt.LeadName, m.fromName)
			if err := m.email.Send(gctx, evt.Email, subject, body); err != nil {
				m.log.Error("email greeting failed", "leadId", evt.LeadID, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (m *Module) onLeadAssigned(ctx context.Context, evt events.LeadAssigned) error {
	return m.store.CreateNotification(ctx, CreateNotificationParams{
		Type:       "lead_assigned",
		LeadID:     evt.LeadID,
		LeadName:   evt.LeadName,
		AssignedTo: evt.Employee,
		Message:    fmt.Sprintf("Lead %s assigned to you (%s)", evt.LeadName, evt.Method),
	})
}

func (m *Module) onStaleReminder(ctx context.Context, evt events.StaleLeadReminder) error {
	return m.store.CreateNotification(ctx, CreateNotificationParams{
		Type:       "stale_reminder",
		LeadID:     evt.LeadID,
		LeadName:   evt.LeadName,
		AssignedTo: evt.AssignedTo,
		Message:    fmt.Sprintf("Lead %s has had no contact for %d hours", evt.LeadName, evt.HoursSinceContact),
	})
}

// onStaleEscalation broadcasts so management sees it, with the assignee named
// in the message.
func (m *Module) onStaleEscalation(ctx context.Context, evt events.StaleLeadEscalation) error {
	return m.store.CreateNotification(ctx, CreateNotificationParams{
		Type:     "stale_escalation",
		LeadID:   evt.LeadID,
		LeadName: evt.LeadName,
		Priority: "high",
		Message:  fmt.Sprintf("Lead %s (assigned to %s) has had no contact for %d hours", evt.LeadName, evt.AssignedTo, evt.HoursSinceContact),
	})
}

func (m *Module) onSiteVisitReminder(ctx context.Context, evt events.SiteVisitReminder) error {
	when := "tomorrow"
	priority := "high"
	if evt.Urgent {
		when = "today"
		priority = "urgent"
	}
	return m.store.CreateNotification(ctx, CreateNotificationParams{
		Type:       "site_visit_reminder",
		LeadID:     evt.LeadID,
		LeadName:   evt.LeadName,
		AssignedTo: evt.AssignedTo,
		Priority:   priority,
		Message:    fmt.Sprintf("Site visit for %s is %s (%s)", evt.LeadName, when, evt.VisitDate.Format("2006-01-02")),
	})
}

func (m *Module) onFollowUpDue(ctx context.Context, evt events.FollowUpDue) error {
	message := fmt.Sprintf("Follow up with %s: no contact since the last touch", evt.LeadName)
	if evt.Kind == "quote" {
		message = fmt.Sprintf("Quote follow-up due for %s", evt.LeadName)
	}
	return m.store.CreateNotification(ctx, CreateNotificationParams{
		Type:       "follow_up_due",
		LeadID:     evt.LeadID,
		LeadName:   evt.LeadName,
		AssignedTo: evt.AssignedTo,
		Message:    message,
	})
}

func (m *Module) onLeadBooked(ctx context.Context, evt events.LeadBooked) error {
	message := fmt.Sprintf("%s booked their event", evt.LeadName)
	if evt.InvoiceExternalID != "" {
		message = fmt.Sprintf("%s booked their event (invoice %s)", evt.LeadName, evt.InvoiceExternalID)
	}
	return m.store.CreateNotification(ctx, CreateNotificationParams{
		Type:     "lead_booked",
		LeadID:   evt.LeadID,
		LeadName: evt.LeadName,
		Message:  message,
	})
}
