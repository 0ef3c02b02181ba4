package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront-fulfillment/internal/client"
	"storefront-fulfillment/internal/model"
)

// NewTestDB opens a private in-memory sqlite database with the full schema migrated.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := client.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

func Logger() zerolog.Logger {
	return zerolog.Nop()
}

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

func NewClock() *Clock {
	return &Clock{T: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	return c.T
}

func (c *Clock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}

func SeedProduct(t testing.TB, db *gorm.DB, id string, stock int) *model.Product {
	t.Helper()

	product := &model.Product{ID: id, Name: "Product " + id, Price: decimal.NewFromInt(100), Stock: stock}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// SeedOrder stores an order in under_review with a payment proof unless the caller overrides it.
func SeedOrder(t testing.TB, db *gorm.DB, order *model.Order) *model.Order {
	t.Helper()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.UserID == "" {
		order.UserID = "user-1"
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = model.PaymentUnderReview
	}
	if order.OrderStatus == "" {
		order.OrderStatus = model.OrderPending
	}
	order.ComputeTotals()

	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func Item(productID string, quantity int, unitPrice int64) model.OrderItem {
	return model.OrderItem{
		ProductID:   productID,
		ProductName: "Product " + productID,
		Quantity:    quantity,
		UnitPrice:   decimal.NewFromInt(unitPrice),
	}
}
