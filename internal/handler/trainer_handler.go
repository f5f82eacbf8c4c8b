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

type availabilityManager interface {
	ListTrainers(ctx context.Context) ([]models.Trainer, error)
	Create(ctx context.Context, actor models.Actor, trainerID int64, req dto.CreateAvailabilityRequest) (*models.Availability, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
}

// TrainerHandler exposes trainers and their availability windows.
type TrainerHandler struct {
	service availabilityManager
}

// NewTrainerHandler constructs the handler.
func NewTrainerHandler(svc availabilityManager) *TrainerHandler {
	return &TrainerHandler{service: svc}
}

// List godoc
// @Summary List trainers with availability
// @Tags Trainers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /trainers [get]
func (h *TrainerHandler) List(c *gin.Context) {
	trainers, err := h.service.ListTrainers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, trainers, len(trainers))
}

// CreateAvailability godoc
// @Summary Add an availability window to a trainer
// @Description Windows must sit inside the morning (07:00-13:00) or evening (15:00-21:00) shift.
// @Tags Trainers
// @Accept json
// @Produce json
// @Param id path int true "Trainer ID"
// @Param payload body dto.CreateAvailabilityRequest true "Availability payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /trainers/{id}/availability [post]
func (h *TrainerHandler) CreateAvailability(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	trainerID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	window, err := h.service.Create(c.Request.Context(), actor, trainerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// DeleteAvailability godoc
// @Summary Remove an availability window
// @Tags Trainers
// @Param id path int true "Availability ID"
// @Success 204
// @Router /availability/{id} [delete]
func (h *TrainerHandler) DeleteAvailability(c *gin.Context) {
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
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
