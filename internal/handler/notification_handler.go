package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkViewed(ctx context.Context, recipientID, id string) error
	MarkAllViewed(ctx context.Context, recipientID string) error
	Delete(ctx context.Context, recipientID, id string) error
}

// NotificationHandler serves the authenticated operator's inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler builds a new handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List my notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	filter := models.NotificationFilter{
		RecipientID: actorFromContext(c).OperatorID,
		OnlyUnread:  c.Query("unread") == "true",
		Limit:       queryInt(c, "limit", 50),
		Offset:      queryInt(c, "offset", 0),
	}
	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// UnreadCount godoc
// @Summary Count my unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), actorFromContext(c).OperatorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"unread": count})
}

// MarkViewed godoc
// @Summary Mark one notification as viewed
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/view [post]
func (h *NotificationHandler) MarkViewed(c *gin.Context) {
	if err := h.service.MarkViewed(c.Request.Context(), actorFromContext(c).OperatorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllViewed godoc
// @Summary Mark all my notifications as viewed
// @Tags Notifications
// @Success 204
// @Router /notifications/view-all [post]
func (h *NotificationHandler) MarkAllViewed(c *gin.Context) {
	if err := h.service.MarkAllViewed(c.Request.Context(), actorFromContext(c).OperatorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete one notification
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c).OperatorID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
