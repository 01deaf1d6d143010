package leads

import (
	"context"
	"net/http"
	"time"

	"venue_crm_backend/internal/events"
	apphttp "venue_crm_backend/internal/http"
	"venue_crm_backend/internal/leads/handler"
	"venue_crm_backend/internal/leads/monitor"
	"venue_crm_backend/internal/leads/repository"
	"venue_crm_backend/internal/leads/service"
	"venue_crm_backend/platform/config"
	"venue_crm_backend/platform/httpkit"
	"venue_crm_backend/platform/logger"
	"venue_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context: storage, the lifecycle service, the
// orchestrator and the periodic monitor, plus the HTTP surface.
type Module struct {
	handler *handler.Handler

	Service      *service.Service
	Repository   *repository.Repository
	Orchestrator *Orchestrator
	Monitor      *monitor.Monitor
}

// NewModule wires the leads module. The policy provider, invoicing client and
// follow-up scheduler are passed in because they are shared across modules;
// either of the last two may be nil (the engine then skips that side effect).
func NewModule(
	pool *pgxpool.Pool,
	val *validator.Validator,
	bus events.Bus,
	policies service.PolicySource,
	invoicing service.InvoicePusher,
	scheduler service.FollowUpScheduler,
	cfg config.AutomationConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, policies, bus, invoicing, scheduler, log)
	h := handler.New(svc, val)

	orch := NewOrchestrator(svc, repo, log, cfg.GetNewLeadStagger())
	orch.Subscribe(bus)

	mon := monitor.New(repo, bus, log, cfg.GetStaleScanInterval(), cfg.GetSiteVisitScanInterval())

	return &Module{
		handler:      h,
		Service:      svc,
		Repository:   repo,
		Orchestrator: orch,
		Monitor:      mon,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes registers the module's routes under /api/v1/leads, plus the
// admin endpoints to run a monitor scan on demand.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leads)

	scans := ctx.Admin.Group("/scans")
	scans.POST("/stale", m.runScan(m.Monitor.RunStaleScanOnce))
	scans.POST("/follow-ups", m.runScan(m.Monitor.RunFollowUpScanOnce))
	scans.POST("/site-visits", m.runScan(m.Monitor.RunSiteVisitScanOnce))
}

// runScan executes one monitor scan immediately, outside its periodic cadence.
func (m *Module) runScan(scan func(context.Context, time.Time) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := scan(c.Request.Context(), time.Now()); err != nil {
			httpkit.Error(c, http.StatusServiceUnavailable, "scan failed, will retry on the next tick", nil)
			return
		}
		httpkit.OK(c, gin.H{"completed": true})
	}
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
