package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/li18635787490/ai-test-service/internal/checks"
	"github.com/li18635787490/ai-test-service/internal/shared/server/respond"
)

// Handler serves assembled reports for finished check tasks.
type Handler struct {
	Checks *checks.Service
	// Dir is where downloaded report files are written.
	Dir string
}

// NewHandler constructs a Handler.
func NewHandler(checksSvc *checks.Service, dir string) *Handler {
	return &Handler{Checks: checksSvc, Dir: dir}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reports/:taskId", h.getJSON)
	rg.GET("/reports/:taskId/html", h.getHTML)
	rg.GET("/reports/:taskId/markdown", h.getMarkdown)
	rg.GET("/reports/:taskId/download", h.download)
}

func (h *Handler) assemble(c *gin.Context) (Report, bool) {
	task, err := h.Checks.Get(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		switch {
		case errors.Is(err, checks.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "check task not found", nil)
		case errors.Is(err, checks.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch check task", nil)
		}
		return Report{}, false
	}

	report, err := Assemble(task)
	if err != nil {
		respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
		return Report{}, false
	}
	return report, true
}

func (h *Handler) getJSON(c *gin.Context) {
	report, ok := h.assemble(c)
	if !ok {
		return
	}
	respond.JSON(c, http.StatusOK, report)
}

func (h *Handler) getHTML(c *gin.Context) {
	report, ok := h.assemble(c)
	if !ok {
		return
	}
	page, err := HTML(report)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (h *Handler) getMarkdown(c *gin.Context) {
	report, ok := h.assemble(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", Markdown(report))
}

func (h *Handler) download(c *gin.Context) {
	format := c.DefaultQuery("format", "html")
	report, ok := h.assemble(c)
	if !ok {
		return
	}

	var content []byte
	var contentType string
	switch format {
	case "html":
		page, err := HTML(report)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
			return
		}
		content, contentType = page, "text/html; charset=utf-8"
	case "markdown":
		content, contentType = Markdown(report), "text/markdown; charset=utf-8"
	case "json":
		encoded, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
			return
		}
		content, contentType = encoded, "application/json"
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("unsupported report format %q", format), nil)
		return
	}

	fileName := fmt.Sprintf("report-%s.%s", report.TaskID, fileExt(format))
	if h.Dir != "" {
		if err := os.MkdirAll(h.Dir, 0o755); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to prepare report dir", nil)
			return
		}
		if err := os.WriteFile(filepath.Join(h.Dir, fileName), content, 0o644); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to write report file", nil)
			return
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, contentType, content)
}

func fileExt(format string) string {
	switch format {
	case "markdown":
		return "md"
	case "json":
		return "json"
	default:
		return "html"
	}
}
