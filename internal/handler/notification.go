package handler

import (
	"net/http"
	"storefront-fulfillment/internal/dto"
	"storefront-fulfillment/internal/middleware"
	"storefront-fulfillment/internal/service"
	"strconv"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	records, unread, err := h.notificationService.List(ctx, middleware.CurrentUser(c).ID, limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.NotificationListResponse{
		Notifications: records,
		UnreadCount:   unread,
	})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.MarkReadRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !req.All && len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids or all is required")
	}

	updated, err := h.notificationService.MarkRead(ctx, middleware.CurrentUser(c).ID, req.IDs, req.All)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]int64{"updated": updated})
}
