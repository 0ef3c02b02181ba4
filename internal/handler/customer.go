package handler

import (
	"net/http"
	"storefront-fulfillment/internal/dto"
	"storefront-fulfillment/internal/middleware"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/service"

	"github.com/labstack/echo/v4"
)

// CustomerHandler serves the customer-facing loyalty, coupon and activity endpoints.
type CustomerHandler struct {
	loyaltyLedger      service.LoyaltyLedger
	couponTracker      service.CouponTracker
	activityAggregator service.ActivityAggregator
}

func NewCustomerHandler(
	loyaltyLedger service.LoyaltyLedger,
	couponTracker service.CouponTracker,
	activityAggregator service.ActivityAggregator,
) *CustomerHandler {
	return &CustomerHandler{
		loyaltyLedger:      loyaltyLedger,
		couponTracker:      couponTracker,
		activityAggregator: activityAggregator,
	}
}

func (h *CustomerHandler) LoyaltyAccount(c echo.Context) error {
	ctx := c.Request().Context()

	account, txns, err := h.loyaltyLedger.Account(ctx, middleware.CurrentUser(c).ID, 20)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, dto.LoyaltyAccountResponse{
		Account:      account,
		Transactions: txns,
	})
}

func (h *CustomerHandler) LoyaltyPreview(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.LoyaltyPreviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if !req.OrderTotal.IsPositive() {
		return echo.NewHTTPError(http.StatusBadRequest, "orderTotal must be positive")
	}

	preview, err := h.loyaltyLedger.Preview(ctx, middleware.CurrentUser(c).ID, req.Points, req.OrderTotal)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, preview)
}

func (h *CustomerHandler) ValidateCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CouponValidateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Subtotal.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "subtotal must not be negative")
	}

	quote, err := h.couponTracker.Validate(ctx, req.Code, middleware.CurrentUser(c).ID, req.Subtotal)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, quote)
}

func (h *CustomerHandler) RecordLogin(c echo.Context) error {
	ctx := c.Request().Context()

	activity, err := h.activityAggregator.Record(ctx, middleware.CurrentUser(c).ID, model.ActionLogin, service.ActivityPayload{})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, activity)
}

func (h *CustomerHandler) Activity(c echo.Context) error {
	ctx := c.Request().Context()

	activity, err := h.activityAggregator.Get(ctx, middleware.CurrentUser(c).ID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, activity)
}
