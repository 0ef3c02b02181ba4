package handler

import (
	"net/http"
	"storefront-fulfillment/internal/dto"
	"storefront-fulfillment/internal/middleware"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/service"
	"strconv"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	fulfillmentService service.FulfillmentService
	inventoryLedger    service.InventoryLedger
}

func NewOrderHandler(fulfillmentService service.FulfillmentService, inventoryLedger service.InventoryLedger) *OrderHandler {
	return &OrderHandler{
		fulfillmentService: fulfillmentService,
		inventoryLedger:    inventoryLedger,
	}
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.fulfillmentService.GetOrder(ctx, middleware.CurrentUser(c), c.Param("orderId"))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.fulfillmentService.UpdateStatus(ctx, middleware.CurrentUser(c), c.Param("orderId"), service.StatusUpdate{
		OrderStatus:   model.OrderStatus(req.OrderStatus),
		PaymentStatus: model.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) InventoryLogs(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	entries, err := h.inventoryLedger.History(ctx, c.Param("productId"), limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, entries)
}
