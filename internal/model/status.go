package model

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentUnderReview PaymentStatus = "under_review"
	PaymentApproved    PaymentStatus = "approved"
	PaymentRejected    PaymentStatus = "rejected"
	PaymentPaid        PaymentStatus = "paid"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// A proof upload moves pending to under_review; only under_review can be approved or rejected.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:     {PaymentUnderReview},
	PaymentUnderReview: {PaymentApproved, PaymentRejected},
	PaymentApproved:    {PaymentPaid},
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentUnderReview, PaymentApproved, PaymentRejected, PaymentPaid:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReviewableFrom lists the payment states an approve or reject may start from.
func ReviewableFrom() []PaymentStatus {
	return []PaymentStatus{PaymentUnderReview}
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
