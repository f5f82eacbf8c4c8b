package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/middleware"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
	"github.com/yigalul/gym-appointment/pkg/response"
)

type autoScheduler interface {
	RunAutoSchedule(ctx context.Context, actor models.Actor, req dto.AutoScheduleRequest) (*models.ScheduleRunReport, error)
	RunAutoResolve(ctx context.Context, actor models.Actor, req dto.AutoScheduleRequest) (*models.AutoResolveResult, error)
	LastReport(ctx context.Context, weekDate string) (*models.ScheduleRunReport, error)
	ExportReport(ctx context.Context, query dto.ScheduleReportQuery) (*dto.ExportedReport, error)
}

// AutoScheduleHandler exposes the weekly auto-scheduler.
type AutoScheduleHandler struct {
	service autoScheduler
}

// NewAutoScheduleHandler constructs the handler.
func NewAutoScheduleHandler(svc autoScheduler) *AutoScheduleHandler {
	return &AutoScheduleHandler{service: svc}
}

// Run godoc
// @Summary Auto-schedule a week from client default slots
// @Description Places every client's default slots for the week, then tries to resolve the failures.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.AutoScheduleRequest true "Week to schedule"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/auto-schedule [post]
func (h *AutoScheduleHandler) Run(c *gin.Context) {
	actor, req, ok := h.bindRun(c)
	if !ok {
		return
	}
	report, err := h.service.RunAutoSchedule(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Resolve godoc
// @Summary Resolve outstanding scheduling failures for a week
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.AutoScheduleRequest true "Week to resolve"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/auto-resolve [post]
func (h *AutoScheduleHandler) Resolve(c *gin.Context) {
	actor, req, ok := h.bindRun(c)
	if !ok {
		return
	}
	result, err := h.service.RunAutoResolve(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Report godoc
// @Summary Fetch the last auto-schedule report for a week
// @Description JSON by default; format=csv or format=pdf downloads a file.
// @Tags Scheduler
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param week path string true "Any date inside the week (YYYY-MM-DD)"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /appointments/auto-schedule/reports/{week} [get]
func (h *AutoScheduleHandler) Report(c *gin.Context) {
	week := c.Param("week")
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "json")))
	if format == "json" {
		report, err := h.service.LastReport(c.Request.Context(), week)
		if err != nil {
			response.Error(c, err)
			return
		}
		middleware.SetCacheHit(c, true)
		middleware.SetMeta(c, "run_id", report.RunID)
		response.OK(c, report, middleware.ExtractMeta(c))
		return
	}

	exported, err := h.service.ExportReport(c.Request.Context(), dto.ScheduleReportQuery{Week: week, Format: format})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exported.Filename))
	c.Data(http.StatusOK, exported.ContentType, exported.Body)
}

func (h *AutoScheduleHandler) bindRun(c *gin.Context) (models.Actor, dto.AutoScheduleRequest, bool) {
	var req dto.AutoScheduleRequest
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return actor, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid auto-schedule payload"))
		return actor, req, false
	}
	return actor, req, true
}
