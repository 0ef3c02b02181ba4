package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ActivityStatus string

const (
	ActivityNew      ActivityStatus = "new"
	ActivityActive   ActivityStatus = "active"
	ActivityInactive ActivityStatus = "inactive"
)

type ActivityAction string

const (
	ActionLogin ActivityAction = "login"
	ActionOrder ActivityAction = "order"
	ActionEmail ActivityAction = "email"
)

func (a ActivityAction) Valid() bool {
	switch a {
	case ActionLogin, ActionOrder, ActionEmail:
		return true
	}
	return false
}

// InactiveAfterDays counts whole elapsed days; a partial day does not count.
const InactiveAfterDays = 60

func daysSince(t, now time.Time) int {
	return int(now.Sub(t) / (24 * time.Hour))
}

// CustomerActivity.ActivityStatus is derived; it is recomputed by Refresh on every recorded action.
type CustomerActivity struct {
	UserID            string          `gorm:"primaryKey;size:64;not null" json:"user_id"`
	LoginCount        int             `gorm:"not null;default:0" json:"login_count"`
	EmailCount        int             `gorm:"not null;default:0" json:"email_count"`
	TotalOrders       int             `gorm:"not null;default:0" json:"total_orders"`
	TotalSpent        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_spent"`
	AverageOrderValue decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"average_order_value"`
	LastLoginDate     *time.Time      `json:"last_login_date,omitempty"`
	LastOrderDate     *time.Time      `json:"last_order_date,omitempty"`
	LastEmailDate     *time.Time      `json:"last_email_date,omitempty"`
	ActivityStatus    ActivityStatus  `gorm:"size:16;index;not null" json:"activity_status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ClassifyActivity: no orders is "new" until the aggregate itself is older than the inactivity
// window; with orders, recency of the last order decides.
func ClassifyActivity(totalOrders int, lastOrderDate *time.Time, createdAt, now time.Time) ActivityStatus {
	if totalOrders == 0 || lastOrderDate == nil {
		if !createdAt.IsZero() && daysSince(createdAt, now) > InactiveAfterDays {
			return ActivityInactive
		}
		return ActivityNew
	}
	if daysSince(*lastOrderDate, now) > InactiveAfterDays {
		return ActivityInactive
	}
	return ActivityActive
}

func (a *CustomerActivity) Refresh(now time.Time) {
	if a.TotalOrders > 0 {
		a.AverageOrderValue = a.TotalSpent.Div(decimal.NewFromInt(int64(a.TotalOrders))).Round(2)
	} else {
		a.AverageOrderValue = decimal.Zero
	}
	a.ActivityStatus = ClassifyActivity(a.TotalOrders, a.LastOrderDate, a.CreatedAt, now)
}
