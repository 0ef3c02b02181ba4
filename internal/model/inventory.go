package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `gorm:"primaryKey;size:64;not null" json:"id"` // product sku
	Name      string          `gorm:"size:255;not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type InventoryChangeType string

const (
	InventorySale    InventoryChangeType = "sale"
	InventoryRestock InventoryChangeType = "restock"
)

// InventoryLogEntry is append-only. QuantityAfter = QuantityBefore + QuantityChange and is never negative.
type InventoryLogEntry struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	ProductID      string              `gorm:"size:64;index;not null" json:"product_id"`
	ChangeType     InventoryChangeType `gorm:"size:32;not null" json:"change_type"`
	QuantityBefore int                 `gorm:"not null" json:"quantity_before"`
	QuantityChange int                 `gorm:"not null" json:"quantity_change"`
	QuantityAfter  int                 `gorm:"not null" json:"quantity_after"`
	OrderID        string              `gorm:"size:64;index" json:"order_id,omitempty"`
	PerformedBy    string              `gorm:"size:64" json:"performed_by"`
	Reason         string              `gorm:"size:255" json:"reason"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Sale is the immutable analytics snapshot of an approved order.
type Sale struct {
	ID          string          `gorm:"primaryKey;size:64;not null" json:"id"`
	OrderID     string          `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	UserID      string          `gorm:"size:64;index;not null" json:"user_id"`
	Items       []SaleItem      `gorm:"foreignKey:SaleID;references:ID" json:"items"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingFee decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_fee"`
	Tax         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	CouponCode  string          `gorm:"size:64" json:"coupon_code,omitempty"`
	PointsUsed  int64           `json:"points_used"`
	ApprovedBy  string          `gorm:"size:64" json:"approved_by"`
	SoldAt      time.Time       `gorm:"index" json:"sold_at"`
}

type SaleItem struct {
	ID          uint            `gorm:"primaryKey" json:"-"`
	SaleID      string          `gorm:"size:64;index;not null" json:"-"`
	ProductID   string          `gorm:"size:64;index;not null" json:"product_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

func NewSaleFromOrder(id string, order *Order, approvedBy string, soldAt time.Time) *Sale {
	items := make([]SaleItem, len(order.Items))
	for i, item := range order.Items {
		items[i] = SaleItem{
			SaleID:      id,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		}
	}

	return &Sale{
		ID:          id,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       items,
		Subtotal:    order.Subtotal,
		ShippingFee: order.ShippingFee,
		Tax:         order.Tax,
		Discount:    order.Discounts(),
		Total:       order.TotalAmount,
		CouponCode:  order.CouponCode,
		PointsUsed:  order.PointsUsed,
		ApprovedBy:  approvedBy,
		SoldAt:      soldAt,
	}
}
