package handler

import (
	"errors"
	"net/http"
	"storefront-fulfillment/internal/model"

	"github.com/labstack/echo/v4"
)

// httpError maps domain errors to HTTP responses. Unknown errors pass through so echo answers 500.
func httpError(err error) error {
	var (
		httpErr       *echo.HTTPError
		stockErr      *model.StockInsufficientError
		pointsErr     *model.InsufficientPointsError
		transitionErr *model.InvalidTransitionError
		validationErr *model.ValidationError
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, model.ErrOrderNotFound),
		errors.Is(err, model.ErrProductNotFound),
		errors.Is(err, model.ErrCouponNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrPaymentProofMissing),
		errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrInvalidPoints),
		errors.Is(err, model.ErrBelowMinRedeemPoints):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &validationErr):
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &stockErr):
		return echo.NewHTTPError(http.StatusConflict, stockErr.Error())
	case errors.As(err, &transitionErr):
		return echo.NewHTTPError(http.StatusConflict, transitionErr.Error())
	case errors.Is(err, model.ErrApprovalInProgress),
		errors.Is(err, model.ErrOrderStateConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &pointsErr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, pointsErr.Error())
	case errors.Is(err, model.ErrCouponInactive),
		errors.Is(err, model.ErrCouponExpired),
		errors.Is(err, model.ErrCouponExhausted),
		errors.Is(err, model.ErrCouponUserLimit),
		errors.Is(err, model.ErrCouponMinPurchase):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	return err
}

// bind decodes and validates the body.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
