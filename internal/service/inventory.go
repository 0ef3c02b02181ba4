package service

import (
	"context"
	"fmt"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"

	"gorm.io/gorm"
)

type StockChange struct {
	ProductID string
	Quantity  int
	Reason    string
	ActorID   string
	OrderID   string
}

type InventoryLedger interface {
	// Decrement removes stock and appends a sale entry. With a nil tx it runs in its own transaction.
	Decrement(ctx context.Context, tx *gorm.DB, change StockChange) (*model.InventoryLogEntry, error)
	Restock(ctx context.Context, tx *gorm.DB, change StockChange) (*model.InventoryLogEntry, error)
	History(ctx context.Context, productID string, limit int) ([]*model.InventoryLogEntry, error)
}

type inventoryLedgerImpl struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	logRepo     repository.InventoryLogRepository
}

func NewInventoryLedger(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	logRepo repository.InventoryLogRepository,
) InventoryLedger {
	return &inventoryLedgerImpl{
		db:          db,
		productRepo: productRepo,
		logRepo:     logRepo,
	}
}

func (s *inventoryLedgerImpl) Decrement(ctx context.Context, tx *gorm.DB, change StockChange) (*model.InventoryLogEntry, error) {
	return s.inTx(ctx, tx, func(tx *gorm.DB) (*model.InventoryLogEntry, error) {
		return s.decrement(ctx, tx, change)
	})
}

func (s *inventoryLedgerImpl) Restock(ctx context.Context, tx *gorm.DB, change StockChange) (*model.InventoryLogEntry, error) {
	return s.inTx(ctx, tx, func(tx *gorm.DB) (*model.InventoryLogEntry, error) {
		return s.restock(ctx, tx, change)
	})
}

func (s *inventoryLedgerImpl) History(ctx context.Context, productID string, limit int) ([]*model.InventoryLogEntry, error) {
	if _, err := s.productRepo.FindByID(ctx, nil, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.logRepo.ListByProduct(ctx, productID, limit)
}

func (s *inventoryLedgerImpl) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) (*model.InventoryLogEntry, error)) (*model.InventoryLogEntry, error) {
	if tx != nil {
		return fn(tx)
	}

	var entry *model.InventoryLogEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// decrement applies a conditional update first, so concurrent callers can never drive stock
// below zero, then reads the new value back to fill the log entry.
func (s *inventoryLedgerImpl) decrement(ctx context.Context, tx *gorm.DB, change StockChange) (*model.InventoryLogEntry, error) {
	if change.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	ok, err := s.productRepo.DecrementStock(ctx, tx, change.ProductID, change.Quantity)
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, tx, change.ProductID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, &model.StockInsufficientError{
			ProductID: change.ProductID,
			Requested: change.Quantity,
			Available: product.Stock,
		}
	}

	entry := &model.InventoryLogEntry{
		ProductID:      change.ProductID,
		ChangeType:     model.InventorySale,
		QuantityBefore: product.Stock + change.Quantity,
		QuantityChange: -change.Quantity,
		QuantityAfter:  product.Stock,
		OrderID:        change.OrderID,
		PerformedBy:    change.ActorID,
		Reason:         change.Reason,
	}
	if err := s.logRepo.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append inventory log: %w", err)
	}

	return entry, nil
}

func (s *inventoryLedgerImpl) restock(ctx context.Context, tx *gorm.DB, change StockChange) (*model.InventoryLogEntry, error) {
	if change.Quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	ok, err := s.productRepo.IncrementStock(ctx, tx, change.ProductID, change.Quantity)
	if err != nil {
		return nil, fmt.Errorf("increment stock: %w", err)
	}
	if !ok {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.FindByID(ctx, tx, change.ProductID)
	if err != nil {
		return nil, err
	}

	entry := &model.InventoryLogEntry{
		ProductID:      change.ProductID,
		ChangeType:     model.InventoryRestock,
		QuantityBefore: product.Stock - change.Quantity,
		QuantityChange: change.Quantity,
		QuantityAfter:  product.Stock,
		OrderID:        change.OrderID,
		PerformedBy:    change.ActorID,
		Reason:         change.Reason,
	}
	if err := s.logRepo.Append(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append inventory log: %w", err)
	}

	return entry, nil
}
