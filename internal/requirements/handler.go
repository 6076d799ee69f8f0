package requirements

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/li18635787490/ai-test-service/internal/llm"
	"github.com/li18635787490/ai-test-service/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the requirements service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches requirement analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/requirements/analyze", h.analyze)
	rg.POST("/requirements/generate-testcases", h.generateTestCases)
	rg.GET("/requirements/tasks/:taskId", h.get)
	rg.GET("/requirements/tasks/:taskId/export", h.export)
}

type analyzeRequest struct {
	DocumentID string `json:"document_id"`
	AIProvider string `json:"ai_provider"`
}

func (h *Handler) analyze(c *gin.Context) {
	h.start(c, h.Svc.Analyze)
}

func (h *Handler) generateTestCases(c *gin.Context) {
	h.start(c, h.Svc.GenerateTestCases)
}

func (h *Handler) start(c *gin.Context, startFn func(ctx context.Context, documentID, provider string) (Task, error)) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	task, err := startFn(c.Request.Context(), req.DocumentID, req.AIProvider)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrUnknownProvider):
			respond.Error(c, http.StatusBadRequest, "provider_error", err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
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
			respond.Error(c, http.StatusNotFound, "not_found", "analysis task not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis task", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(task))
}

func (h *Handler) export(c *gin.Context) {
	format := c.DefaultQuery("format", FormatMarkdown)
	task, err := h.Svc.Get(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis task not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis task", nil)
		}
		return
	}

	content, contentType, fileName, err := Export(task, format)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrInvalidState):
			respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export analysis task", nil)
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, contentType, content)
}
