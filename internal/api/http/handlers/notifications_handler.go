package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// NotificationsHandler serves the caller's notification feed.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// ListNotifications GET /notifications.
func (h *NotificationsHandler) ListNotifications(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	items, err := h.notifications.ListForUser(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponses(items)})
}

// ListUnreadNotifications GET /notifications/unread.
func (h *NotificationsHandler) ListUnreadNotifications(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	items, err := h.notifications.ListUnreadForUser(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponses(items)})
}

// MarkNotificationRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.notifications.MarkRead(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// MarkAllNotificationsRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllNotificationsRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.notifications.MarkAllRead(c.Context(), principal.User.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func notificationResponses(items []domain.Notification) []dto.NotificationResponse {
	resp := make([]dto.NotificationResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, dto.NotificationResponse{
			ID:        item.ID,
			UserID:    item.UserID,
			Message:   item.Message,
			Type:      item.Type,
			TicketID:  item.TicketID,
			Read:      item.Read,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp
}
