package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon keeps UsageCount <= UsageLimit whenever UsageLimit > 0. Zero limits mean unlimited.
type Coupon struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Code           string          `gorm:"size:64;uniqueIndex;not null" json:"code"`
	DiscountType   DiscountType    `gorm:"size:16;not null" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_value"`
	MinPurchase    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"min_purchase"`
	MaxDiscount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"max_discount"`
	UsageLimit     int             `gorm:"not null;default:0" json:"usage_limit"`
	UsageCount     int             `gorm:"not null;default:0" json:"usage_count"`
	UserUsageLimit int             `gorm:"not null;default:0" json:"user_usage_limit"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	IsActive       bool            `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type CouponRedemption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CouponID   uint      `gorm:"not null;uniqueIndex:idx_coupon_order" json:"coupon_id"`
	Code       string    `gorm:"size:64;not null" json:"code"`
	UserID     string    `gorm:"size:64;index;not null" json:"user_id"`
	OrderID    string    `gorm:"size:64;not null;uniqueIndex:idx_coupon_order" json:"order_id"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

func (c *Coupon) Exhausted() bool {
	return c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit
}

// Discount computes the discount for a subtotal. Percentage discounts are capped by MaxDiscount
// when it is positive; no discount ever exceeds the subtotal.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).RoundFloor(2)
		if c.MaxDiscount.IsPositive() && discount.GreaterThan(c.MaxDiscount) {
			discount = c.MaxDiscount
		}
	case DiscountFixed:
		discount = c.DiscountValue
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}
