package assistant

import (
	"net/http"

	"venue_crm_backend/internal/leads/domain"
	"venue_crm_backend/platform/httpkit"
	"venue_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type askRequest struct {
	Question string `json:"question" validate:"required,min=3,max=2000"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ask", h.Ask)
}

// Ask handles POST /api/v1/assistant/ask
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	role := ""
	if roles := identity.Roles(); len(roles) > 0 {
		role = roles[0]
	}
	caller := domain.Caller{Name: identity.Name(), Role: role}

	answer, err := h.svc.Answer(c.Request.Context(), caller, req.Question)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, askResponse{Answer: answer})
}
