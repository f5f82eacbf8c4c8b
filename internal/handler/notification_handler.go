package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yigalul/gym-appointment/internal/models"
	"github.com/yigalul/gym-appointment/pkg/response"
)

const defaultNotificationLimit = 50

type notificationReader interface {
	List(ctx context.Context, actor models.Actor, userID int64, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, actor models.Actor, id int64) (*models.Notification, error)
}

// NotificationHandler exposes in-app notifications.
type NotificationHandler struct {
	service notificationReader
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(svc notificationReader) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List a user's notifications
// @Tags Notifications
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Maximum items, default 50"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	userID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, convErr := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultNotificationLimit)))
	if convErr != nil || limit <= 0 {
		limit = defaultNotificationLimit
	}
	items, err := h.service.List(c.Request.Context(), actor, userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
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
	item, err := h.service.MarkRead(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
