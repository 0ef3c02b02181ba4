package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string      `gorm:"primaryKey;size:64;not null" json:"id"`
	UserID        string      `gorm:"size:64;index;not null" json:"user_id"`
	CustomerEmail string      `gorm:"size:255" json:"customer_email"`
	Items         []OrderItem `gorm:"foreignKey:OrderID;references:ID" json:"items"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingFee    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_fee"`
	Tax            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	CouponDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"coupon_discount"`
	PointsDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"points_discount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`

	PaymentStatus   PaymentStatus `gorm:"size:32;index;not null" json:"payment_status"`
	OrderStatus     OrderStatus   `gorm:"size:32;index;not null" json:"order_status"`
	PaymentProofURL string        `gorm:"size:512" json:"payment_proof_url,omitempty"`
	CouponCode      string        `gorm:"size:64" json:"coupon_code,omitempty"`
	PointsUsed      int64         `gorm:"not null;default:0" json:"points_used"`
	AdminNotes      string        `gorm:"type:text" json:"admin_notes,omitempty"`

	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"-"`
	OrderID     string          `gorm:"size:64;index;not null" json:"-"`
	ProductID   string          `gorm:"size:64;index;not null" json:"product_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

// ComputeTotals fills line subtotals, Subtotal and TotalAmount from the items and adjustments.
// The total is floored at zero.
func (o *Order) ComputeTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		line := o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
		o.Items[i].Subtotal = line
		subtotal = subtotal.Add(line)
	}
	o.Subtotal = subtotal

	total := subtotal.Add(o.ShippingFee).Add(o.Tax).Sub(o.CouponDiscount).Sub(o.PointsDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.TotalAmount = total
}

func (o *Order) Discounts() decimal.Decimal {
	return o.CouponDiscount.Add(o.PointsDiscount)
}

func (o *Order) HasPaymentProof() bool {
	return o.PaymentProofURL != ""
}
