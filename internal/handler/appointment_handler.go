package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
	"github.com/yigalul/gym-appointment/pkg/response"
)

type appointmentManager interface {
	Book(ctx context.Context, actor models.Actor, req dto.BookAppointmentRequest) (*models.Appointment, error)
	Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Appointment, error)
	ListWeek(ctx context.Context, query dto.AppointmentWeekQuery) ([]models.Appointment, error)
	ClearWeek(ctx context.Context, actor models.Actor, weekDate string) (int64, error)
}

// AppointmentHandler exposes interactive booking endpoints.
type AppointmentHandler struct {
	service appointmentManager
}

// NewAppointmentHandler constructs the handler.
func NewAppointmentHandler(svc appointmentManager) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

// List godoc
// @Summary List a week's appointments
// @Tags Appointments
// @Produce json
// @Param week_start query string false "Any date inside the week (YYYY-MM-DD), defaults to the current week"
// @Param trainer_id query int false "Only this trainer"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	var query dto.AppointmentWeekQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, err := h.service.ListWeek(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// Book godoc
// @Summary Book an hour with a trainer
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.BookAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	appt, err := h.service.Book(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Cancel godoc
// @Summary Cancel an appointment
// @Tags Appointments
// @Produce json
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/cancel [put]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	appt, err := h.service.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, appt)
}

// ClearWeek godoc
// @Summary Delete every appointment of a week
// @Tags Appointments
// @Produce json
// @Param week path string true "Any date inside the week (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /appointments/week/{week} [delete]
func (h *AppointmentHandler) ClearWeek(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	deleted, err := h.service.ClearWeek(c.Request.Context(), actor, c.Param("week"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": deleted})
}
