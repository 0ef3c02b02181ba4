package handler

import (
	"net/http"
	"storefront-fulfillment/internal/dto"
	"storefront-fulfillment/internal/middleware"
	"storefront-fulfillment/internal/service"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	fulfillmentService service.FulfillmentService
}

func NewPaymentHandler(fulfillmentService service.FulfillmentService) *PaymentHandler {
	return &PaymentHandler{
		fulfillmentService: fulfillmentService,
	}
}

// ReviewPayment approves or rejects the uploaded payment proof of an order.
func (h *PaymentHandler) ReviewPayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ReviewPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.fulfillmentService.Review(ctx, middleware.CurrentUser(c), c.Param("orderId"), service.ReviewAction(req.Action), req.AdminNotes)
	if err != nil {
		return httpError(err)
	}

	resp := dto.ReviewPaymentResponse{
		Order: result.Order,
		Sale:  result.Sale,
		Notification: dto.Delivery{
			Sent:    result.Notification.Sent,
			Failed:  result.Notification.Failed,
			Evicted: result.Notification.Evicted,
		},
	}
	for _, effect := range result.SideEffects {
		se := dto.SideEffect{Step: effect.Step, OK: effect.OK}
		if effect.Err != nil {
			se.Error = effect.Err.Error()
		}
		resp.SideEffects = append(resp.SideEffects, se)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) SubmitProof(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.SubmitProofRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.fulfillmentService.SubmitPaymentProof(ctx, middleware.CurrentUser(c), c.Param("orderId"), req.ProofURL)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, order)
}
