package handler

import (
	"net/http"
	"storefront-fulfillment/internal/client"
	"storefront-fulfillment/internal/dto"
	"storefront-fulfillment/internal/middleware"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/service"

	"github.com/labstack/echo/v4"
)

type PushHandler struct {
	subscriptionStore   service.SubscriptionStore
	notificationService service.NotificationService
	vapidPublicKey      string
}

func NewPushHandler(
	subscriptionStore service.SubscriptionStore,
	notificationService service.NotificationService,
	vapidPublicKey string,
) *PushHandler {
	return &PushHandler{
		subscriptionStore:   subscriptionStore,
		notificationService: notificationService,
		vapidPublicKey:      vapidPublicKey,
	}
}

// PublicKey is what the browser needs as applicationServerKey before subscribing.
func (h *PushHandler) PublicKey(c echo.Context) error {
	if h.vapidPublicKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "push notifications are not configured")
	}
	return c.JSON(http.StatusOK, map[string]string{"publicKey": h.vapidPublicKey})
}

func (h *PushHandler) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SubscribeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sub := &model.Subscription{
		Endpoint:  req.Subscription.Endpoint,
		UserID:    middleware.CurrentUser(c).ID,
		P256dh:    req.Subscription.Keys.P256dh,
		Auth:      req.Subscription.Keys.Auth,
		UserAgent: c.Request().UserAgent(),
	}
	if req.Preferences != nil {
		sub.Preferences = model.Preferences{
			Categories: req.Preferences.Categories,
			Frequency:  req.Preferences.Frequency,
		}
	}

	if err := h.subscriptionStore.Subscribe(ctx, sub); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"status": "subscribed"})
}

func (h *PushHandler) Unsubscribe(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UnsubscribeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	removed, err := h.subscriptionStore.Unsubscribe(ctx, req.Endpoint)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"removed": removed})
}

func (h *PushHandler) Broadcast(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.BroadcastRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	payload := service.Payload{
		Title:   req.Title,
		Body:    req.Body,
		URL:     req.URL,
		Type:    model.NotificationPromotion,
		Urgency: client.UrgencyLow,
	}
	if req.Category != "" {
		payload.Type = model.NotificationType(req.Category)
	}

	result, err := h.notificationService.SendToSegment(ctx, service.SegmentFilter{Category: req.Category}, payload, service.SendOptions{})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.Delivery{Sent: result.Sent, Failed: result.Failed, Evicted: result.Evicted})
}
