package model

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrForbidden            = errors.New("not allowed to access this resource")
	ErrPaymentProofMissing  = errors.New("payment proof missing")
	ErrApprovalInProgress   = errors.New("order review already in progress")
	ErrOrderStateConflict   = errors.New("order state changed concurrently")
	ErrProductNotFound      = errors.New("product not found")
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrCouponInactive       = errors.New("coupon inactive")
	ErrCouponExpired        = errors.New("coupon expired")
	ErrCouponExhausted      = errors.New("coupon usage limit reached")
	ErrCouponUserLimit      = errors.New("coupon per-user limit reached")
	ErrCouponMinPurchase    = errors.New("order below coupon minimum purchase")
	ErrBelowMinRedeemPoints = errors.New("points below minimum redeemable amount")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPoints        = errors.New("points must not be negative")
)

type StockInsufficientError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockInsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

type InsufficientPointsError struct {
	UserID    string
	Requested int64
	Balance   int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points for user %s: requested %d, balance %d", e.UserID, e.Requested, e.Balance)
}

type InvalidTransitionError struct {
	Field string
	From  string
	To    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Field, e.From, e.To)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
