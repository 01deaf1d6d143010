// Package notification turns domain events into staff-facing alerts and
// outbound auto-responses. It subscribes to the event bus so the leads module
// never needs to know about channels, gateways or templates.
package notification

import (
	"context"

	"venue_crm_backend/internal/email"
	"venue_crm_backend/internal/events"
	apphttp "venue_crm_backend/internal/http"
	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/platform/config"
	"venue_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence surface the event handlers need.
type Store interface {
	CreateNotification(ctx context.Context, p CreateNotificationParams) error
	AddCallListEntry(ctx context.Context, p AddCallListEntryParams) error
}

// MessageSender delivers a text message to a phone number. Implemented by the
// WhatsApp and SMS clients; a nil implementation is skipped.
type MessageSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// AutomationResolver returns the enabled automation actions for a source.
type AutomationResolver interface {
	ResolveAutomation(sourceName string) domain.ActionSet
}

// Module is the notification bounded context.
type Module struct {
	store    Store
	repo     *Repository
	resolver AutomationResolver
	whatsapp MessageSender
	sms      MessageSender
	email    email.Sender
	fromName string
	log      *logger.Logger

	handler *Handler
}

// NewModule wires the notification module. whatsapp and sms may be nil when
// the corresponding gateway is not configured.
func NewModule(
	pool *pgxpool.Pool,
	resolver AutomationResolver,
	whatsapp MessageSender,
	sms MessageSender,
	emailSender email.Sender,
	cfg config.EmailConfig,
	log *logger.Logger,
) *Module {
	repo := NewRepository(pool)
	m := &Module{
		store:    repo,
		repo:     repo,
		resolver: resolver,
		whatsapp: whatsapp,
		sms:      sms,
		email:    emailSender,
		fromName: cfg.GetEmailFromName(),
		log:      log,
	}
	m.handler = NewHandler(repo)
	return m
}

// Subscribe registers the module's event handlers on the bus.
func (m *Module) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.LeadCreated); ok {
			return m.onLeadCreated(ctx, evt)
		}
		return nil
	}))
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.LeadAssigned); ok {
			return m.onLeadAssigned(ctx, evt)
		}
		return nil
	}))
	bus.Subscribe(events.StaleLeadReminder{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.StaleLeadReminder); ok {
			return m.onStaleReminder(ctx, evt)
		}
		return nil
	}))
	bus.Subscribe(events.StaleLeadEscalation{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.StaleLeadEscalation); ok {
			return m.onStaleEscalation(ctx, evt)
		}
		return nil
	}))
	bus.Subscribe(events.SiteVisitReminder{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.SiteVisitReminder); ok {
			return m.onSiteVisitReminder(ctx, evt)
		}
		return nil
	}))
	bus.Subscribe(events.FollowUpDue{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.FollowUpDue); ok {
			return m.onFollowUpDue(ctx, evt)
		}
		return nil
	}))
	bus.Subscribe(events.LeadBooked{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.LeadBooked); ok {
			return m.onLeadBooked(ctx, evt)
		}
		return nil
	}))
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes registers the notification and call list routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
