package assistant

import (
	apphttp "venue_crm_backend/internal/http"
	"venue_crm_backend/platform/validator"
)

// Module exposes the assistant over HTTP.
type Module struct {
	handler *Handler

	Service *Service
}

func NewModule(svc *Service, val *validator.Validator) *Module {
	return &Module{
		handler: NewHandler(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "assistant"
}

// RegisterRoutes registers the module's routes under /api/v1/assistant.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	assistant := ctx.Protected.Group("/assistant")
	m.handler.RegisterRoutes(assistant)
}

var _ apphttp.Module = (*Module)(nil)
