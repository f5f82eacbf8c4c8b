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

type defaultSlotManager interface {
	Replace(ctx context.Context, actor models.Actor, clientID int64, req dto.ReplaceDefaultSlotsRequest) ([]models.ClientDefaultSlot, error)
	List(ctx context.Context, actor models.Actor, clientID int64) ([]models.ClientDefaultSlot, error)
}

// ClientHandler exposes client default slot preferences.
type ClientHandler struct {
	service defaultSlotManager
}

// NewClientHandler constructs the handler.
func NewClientHandler(svc defaultSlotManager) *ClientHandler {
	return &ClientHandler{service: svc}
}

// DefaultSlots godoc
// @Summary List a client's default slots
// @Tags Clients
// @Produce json
// @Param id path int true "Client user ID"
// @Success 200 {object} response.Envelope
// @Router /clients/{id}/default-slots [get]
func (h *ClientHandler) DefaultSlots(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	clientID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	slots, err := h.service.List(c.Request.Context(), actor, clientID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, slots, len(slots))
}

// ReplaceDefaultSlots godoc
// @Summary Replace a client's default slots
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path int true "Client user ID"
// @Param payload body dto.ReplaceDefaultSlotsRequest true "Default slots"
// @Success 200 {object} response.Envelope
// @Router /clients/{id}/default-slots [put]
func (h *ClientHandler) ReplaceDefaultSlots(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	clientID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReplaceDefaultSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid default slots payload"))
		return
	}
	slots, err := h.service.Replace(c.Request.Context(), actor, clientID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, slots, len(slots))
}
