package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/casetrack-api/internal/dto"
	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/service"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
	"github.com/noah-isme/casetrack-api/pkg/response"
)

type timelineService interface {
	List(ctx context.Context, filter models.TimelineFilter, actor service.Actor) ([]models.TimelineEvent, error)
	Export(ctx context.Context, processID, format string, actor service.Actor) (*service.TimelineExport, error)
}

// TimelineHandler exposes audit reads.
type TimelineHandler struct {
	service timelineService
}

// NewTimelineHandler builds a new handler.
func NewTimelineHandler(service timelineService) *TimelineHandler {
	return &TimelineHandler{service: service}
}

// ListForProcess godoc
// @Summary List the timeline of a process
// @Tags Timeline
// @Produce json
// @Param id path string true "Process ID"
// @Param category query string false "STATUS, DOCUMENT, DATA, UPDATEFIELD or ANALYSIS"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /processes/{id}/timeline [get]
func (h *TimelineHandler) ListForProcess(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	filter.ProcessID = c.Param("id")
	h.list(c, filter)
}

// List godoc
// @Summary Query the audit log across processes
// @Description Reads must be scoped by operator or a from/to window unless the caller is an admin.
// @Tags Timeline
// @Produce json
// @Param operatorId query string false "Operator ID"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param category query string false "Event category"
// @Success 200 {object} response.Envelope
// @Router /timeline [get]
func (h *TimelineHandler) List(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	h.list(c, filter)
}

// Export godoc
// @Summary Download the timeline of a process
// @Tags Timeline
// @Produce octet-stream
// @Param id path string true "Process ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /processes/{id}/timeline/export [get]
func (h *TimelineHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	out, err := h.service.Export(c.Request.Context(), c.Param("id"), format, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func (h *TimelineHandler) list(c *gin.Context, filter models.TimelineFilter) {
	events, err := h.service.List(c.Request.Context(), filter, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{
		"limit":  filter.Limit,
		"offset": filter.Offset,
		"count":  len(events),
	})
}

func (h *TimelineHandler) filter(c *gin.Context) (models.TimelineFilter, bool) {
	var q dto.TimelineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timeline query"))
		return models.TimelineFilter{}, false
	}
	filter := models.TimelineFilter{
		OperatorID: q.OperatorID,
		Category:   models.EventCategory(strings.ToUpper(q.Category)),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	for _, bound := range []struct {
		raw  string
		dest **time.Time
	}{{q.From, &filter.From}, {q.To, &filter.To}} {
		if bound.raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, bound.raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from/to must be RFC3339"))
			return models.TimelineFilter{}, false
		}
		*bound.dest = &t
	}
	return filter, true
}
