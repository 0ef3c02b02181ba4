package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderApproved      = "order.approved"
	EventOrderRejected      = "order.rejected"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderEvent struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	Type          string          `json:"type"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	OrderStatus   OrderStatus     `json:"order_status"`
	Total         decimal.Decimal `json:"total"`
	Actor         string          `json:"actor"`
	Occurred      time.Time       `json:"occurred"`
}

func NewOrderEvent(eventType string, order *Order, actor string, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Type:          eventType,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.OrderStatus,
		Total:         order.TotalAmount,
		Actor:         actor,
		Occurred:      at,
	}
}
