package dto

import (
	"storefront-fulfillment/internal/model"

	"github.com/shopspring/decimal"
)

type ReviewPaymentRequest struct {
	Action     string `json:"action" validate:"required,oneof=approve reject"`
	AdminNotes string `json:"adminNotes" validate:"max=2000"`
}

type SideEffect struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type Delivery struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Evicted int `json:"evicted"`
}

type ReviewPaymentResponse struct {
	Order        *model.Order `json:"order"`
	Sale         *model.Sale  `json:"sale,omitempty"`
	SideEffects  []SideEffect `json:"side_effects,omitempty"`
	Notification Delivery     `json:"notification"`
}

type SubmitProofRequest struct {
	ProofURL string `json:"proofUrl" validate:"required,url,max=512"`
}

type UpdateOrderStatusRequest struct {
	OrderStatus   string `json:"orderStatus" validate:"omitempty,oneof=pending processing shipped delivered cancelled"`
	PaymentStatus string `json:"paymentStatus" validate:"omitempty,oneof=pending under_review approved rejected paid"`
}

type PushKeys struct {
	P256dh string `json:"p256dh" validate:"required,max=255"`
	Auth   string `json:"auth" validate:"required,max=255"`
}

type PushSubscription struct {
	Endpoint string   `json:"endpoint" validate:"required,url,max=512"`
	Keys     PushKeys `json:"keys"`
}

type Preferences struct {
	Categories []string `json:"categories" validate:"omitempty,dive,oneof=order_status payment promotion system"`
	Frequency  string   `json:"frequency" validate:"omitempty,oneof=instant daily weekly"`
}

type SubscribeRequest struct {
	Subscription PushSubscription `json:"subscription"`
	Preferences  *Preferences     `json:"preferences"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

type BroadcastRequest struct {
	Title    string `json:"title" validate:"required,max=120"`
	Body     string `json:"body" validate:"required,max=500"`
	URL      string `json:"url" validate:"omitempty,url"`
	Category string `json:"category" validate:"omitempty,oneof=order_status payment promotion system"`
}

type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"max=200"`
	All bool     `json:"all"`
}

type NotificationListResponse struct {
	Notifications []*model.NotificationRecord `json:"notifications"`
	UnreadCount   int64                       `json:"unread_count"`
}

type LoyaltyAccountResponse struct {
	Account      *model.LoyaltyAccount       `json:"account"`
	Transactions []*model.LoyaltyTransaction `json:"transactions"`
}

type LoyaltyPreviewRequest struct {
	Points     int64           `json:"points" validate:"required,gt=0"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
}

type CouponValidateRequest struct {
	Code     string          `json:"code" validate:"required,max=64"`
	Subtotal decimal.Decimal `json:"subtotal"`
}
