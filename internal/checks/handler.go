package checks

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/li18635787490/ai-test-service/internal/llm"
	"github.com/li18635787490/ai-test-service/internal/shared/server/middleware"
	"github.com/li18635787490/ai-test-service/internal/shared/server/respond"
)

const (
	defaultWaitSeconds = 30
	maxWaitSeconds     = 120
)

// Handler wires HTTP handlers to the checks service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches check routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/check/start", h.start)
	rg.GET("/check/:taskId", h.get)
	rg.GET("/check/:taskId/wait", h.wait)
}

type startRequest struct {
	DocumentID  string   `json:"document_id"`
	Dimensions  []string `json:"dimensions"`
	AIProvider  string   `json:"ai_provider"`
	CustomRules string   `json:"custom_rules"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	task, err := h.Svc.Create(ctx, req.DocumentID, req.Dimensions, req.AIProvider, req.CustomRules)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnknownProvider):
			respond.Error(c, http.StatusBadRequest, "provider_error", err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start check", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, toResponse(task))
}

func (h *Handler) get(c *gin.Context) {
	task, err := h.Svc.Get(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "check task not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch check task", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(task))
}

func (h *Handler) wait(c *gin.Context) {
	seconds := defaultWaitSeconds
	if v := c.Query("timeout"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "timeout must be a positive integer", nil)
			return
		}
		seconds = parsed
	}
	if seconds > maxWaitSeconds {
		seconds = maxWaitSeconds
	}

	task, err := h.Svc.Wait(c.Request.Context(), c.Param("taskId"), time.Duration(seconds)*time.Second)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "check task not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to wait for check task", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(task))
}
