package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-fulfillment/internal/model"
)

func TestHTTPErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"order not found", model.ErrOrderNotFound, http.StatusNotFound},
		{"wrapped product not found", fmt.Errorf("decrement: %w", model.ErrProductNotFound), http.StatusNotFound},
		{"forbidden", model.ErrForbidden, http.StatusForbidden},
		{"proof missing", model.ErrPaymentProofMissing, http.StatusBadRequest},
		{"validation", &model.ValidationError{Field: "action", Message: "unknown"}, http.StatusBadRequest},
		{"stock", &model.StockInsufficientError{ProductID: "p1", Requested: 3, Available: 1}, http.StatusConflict},
		{"transition", &model.InvalidTransitionError{Field: "payment_status", From: "approved", To: "approved"}, http.StatusConflict},
		{"lease held", model.ErrApprovalInProgress, http.StatusConflict},
		{"stale write", model.ErrOrderStateConflict, http.StatusConflict},
		{"points", &model.InsufficientPointsError{UserID: "u", Requested: 100, Balance: 80}, http.StatusUnprocessableEntity},
		{"coupon exhausted", model.ErrCouponExhausted, http.StatusUnprocessableEntity},
		{"echo error passes through", echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var httpErr *echo.HTTPError
			require.True(t, errors.As(httpError(tt.err), &httpErr))
			assert.Equal(t, tt.status, httpErr.Code)
		})
	}
}

func TestHTTPErrorLeavesUnknownErrors(t *testing.T) {
	err := errors.New("connection reset")
	assert.Same(t, err, httpError(err))
}
