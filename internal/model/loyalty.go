package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoyaltyAccount keeps Balance = TotalEarned - TotalRedeemed and Balance >= 0.
type LoyaltyAccount struct {
	UserID        string    `gorm:"primaryKey;size:64;not null" json:"user_id"`
	Balance       int64     `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	TotalEarned   int64     `gorm:"not null;default:0" json:"total_earned"`
	TotalRedeemed int64     `gorm:"not null;default:0" json:"total_redeemed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type LoyaltyTransactionType string

const (
	LoyaltyEarn   LoyaltyTransactionType = "earn"
	LoyaltyRedeem LoyaltyTransactionType = "redeem"
)

type LoyaltyTransaction struct {
	ID           uint                   `gorm:"primaryKey" json:"id"`
	UserID       string                 `gorm:"size:64;index;not null" json:"user_id"`
	Type         LoyaltyTransactionType `gorm:"size:16;not null" json:"type"`
	Points       int64                  `gorm:"not null" json:"points"`
	BalanceAfter int64                  `gorm:"not null" json:"balance_after"`
	OrderID      string                 `gorm:"size:64;index" json:"order_id,omitempty"`
	Reason       string                 `gorm:"size:255" json:"reason"`
	CreatedAt    time.Time              `json:"created_at"`
}

// LoyaltySettings are admin-editable outside this service.
type LoyaltySettings struct {
	PointsPerAmount  decimal.Decimal // currency units spent per earned point
	RedeemRate       decimal.Decimal // points per currency unit of discount
	MinRedeemPoints  int64
	MaxRedeemPercent decimal.Decimal // share of the order total points may cover
}

// PointsForAmount returns floor(amount / PointsPerAmount), or 0 for a non-positive rate.
func (s LoyaltySettings) PointsForAmount(amount decimal.Decimal) int64 {
	if !s.PointsPerAmount.IsPositive() || !amount.IsPositive() {
		return 0
	}
	return amount.Div(s.PointsPerAmount).Floor().IntPart()
}

// DiscountForPoints returns points / RedeemRate rounded down to cents.
func (s LoyaltySettings) DiscountForPoints(points int64) decimal.Decimal {
	if !s.RedeemRate.IsPositive() || points <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(points).Div(s.RedeemRate).RoundFloor(2)
}

type LoyaltyPreview struct {
	RequestedPoints int64           `json:"requested_points"`
	Points          int64           `json:"points"`
	Discount        decimal.Decimal `json:"discount"`
	Balance         int64           `json:"balance"`
	Capped          bool            `json:"capped"`
}
