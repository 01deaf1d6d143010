package notification

import (
	"net/http"
	"strconv"

	"venue_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes notifications and the call list over HTTP.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers the notification routes on the protected group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.List)
	rg.POST("/notifications/:id/read", h.MarkRead)
	rg.GET("/call-list", h.ListCalls)
	rg.POST("/call-list/:id/complete", h.CompleteCall)
}

// List handles GET /api/v1/notifications
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	notifications, err := h.repo.ListNotifications(c.Request.Context(), identity.Name(), limit)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to list notifications", nil)
		return
	}
	httpkit.OK(c, notifications)
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification id", nil)
		return
	}

	if identity := httpkit.MustGetIdentity(c); identity == nil {
		return
	}

	if err := h.repo.MarkNotificationRead(c.Request.Context(), id); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to mark notification read", nil)
		return
	}
	httpkit.OK(c, gin.H{"read": true})
}

// ListCalls handles GET /api/v1/call-list
func (h *Handler) ListCalls(c *gin.Context) {
	if identity := httpkit.MustGetIdentity(c); identity == nil {
		return
	}

	entries, err := h.repo.ListOpenCalls(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to list call list", nil)
		return
	}
	httpkit.OK(c, entries)
}

// CompleteCall handles POST /api/v1/call-list/:id/complete
func (h *Handler) CompleteCall(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid call list id", nil)
		return
	}

	if identity := httpkit.MustGetIdentity(c); identity == nil {
		return
	}

	if err := h.repo.CompleteCall(c.Request.Context(), id); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to complete call", nil)
		return
	}
	httpkit.OK(c, gin.H{"completed": true})
}
