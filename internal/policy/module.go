package policy

import (
	"encoding/json"
	"net/http"
	"time"

	apphttp "venue_crm_backend/internal/http"
	"venue_crm_backend/platform/httpkit"
	"venue_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

var knownKeys = map[string]struct{}{
	KeyAssignmentRules: {},
	KeyAutomationRules: {},
	KeyManagers:        {},
	KeyEventTypes:      {},
}

// Module is the policy bounded context: the document repository, the cached
// snapshot provider, and the admin HTTP surface for editing documents.
type Module struct {
	Repository *Repository
	Provider   *Provider
}

// NewModule wires the policy module.
func NewModule(pool *pgxpool.Pool, refreshInterval time.Duration, log *logger.Logger) *Module {
	repo := New(pool)
	provider := NewProvider(repo, refreshInterval, log)
	return &Module{Repository: repo, Provider: provider}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "policy"
}

// RegisterRoutes registers the admin policy routes under /api/v1/admin.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	policies := ctx.Admin.Group("/policies")
	policies.GET("", m.getSnapshot)
	policies.GET("/:key", m.getDocument)
	policies.PUT("/:key", m.putDocument)
}

// getSnapshot handles GET /api/v1/admin/policies. It returns the live
// snapshot the engine currently decides against.
func (m *Module) getSnapshot(c *gin.Context) {
	snap := m.Provider.Fresh(c.Request.Context())
	httpkit.OK(c, gin.H{
		"assignmentRules": snap.Assignment,
		"automationRules": snap.Automation,
		"managers":        snap.Roster,
		"eventTypes":      snap.EventTypes,
		"loadedAt":        snap.LoadedAt,
	})
}

// getDocument handles GET /api/v1/admin/policies/:key
func (m *Module) getDocument(c *gin.Context) {
	key := c.Param("key")
	if _, ok := knownKeys[key]; !ok {
		httpkit.Error(c, http.StatusNotFound, "unknown policy key", nil)
		return
	}

	value, err := m.Repository.Get(c.Request.Context(), key)
	if err == ErrNotFound {
		httpkit.Error(c, http.StatusNotFound, "policy document not set", nil)
		return
	}
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to load policy document", nil)
		return
	}
	c.Data(http.StatusOK, "application/json", value)
}

// putDocument handles PUT /api/v1/admin/policies/:key. The body must be valid
// JSON for the document's shape; the provider cache is refreshed immediately
// so the next decision uses the new rules.
func (m *Module) putDocument(c *gin.Context) {
	key := c.Param("key")
	if _, ok := knownKeys[key]; !ok {
		httpkit.Error(c, http.StatusNotFound, "unknown policy key", nil)
		return
	}

	var value json.RawMessage
	if err := c.ShouldBindJSON(&value); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "body must be valid JSON", nil)
		return
	}
	if err := validateDocument(key, value); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid policy document", err.Error())
		return
	}

	if err := m.Repository.Set(c.Request.Context(), key, value); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to store policy document", nil)
		return
	}

	m.Provider.Fresh(c.Request.Context())
	httpkit.OK(c, gin.H{"key": key, "updated": true})
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
