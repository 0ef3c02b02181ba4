package repository

import (
	"context"
	"storefront-fulfillment/internal/model"

	"gorm.io/gorm"
)

type InventoryLogRepository interface {
	Append(ctx context.Context, tx *gorm.DB, entry *model.InventoryLogEntry) error
	ListByProduct(ctx context.Context, productID string, limit int) ([]*model.InventoryLogEntry, error)
	ListByOrder(ctx context.Context, orderID string) ([]*model.InventoryLogEntry, error)
}

type inventoryLogRepoImpl struct {
	db *gorm.DB
}

func NewInventoryLogRepository(db *gorm.DB) InventoryLogRepository {
	return &inventoryLogRepoImpl{
		db: db,
	}
}

func (r *inventoryLogRepoImpl) Append(ctx context.Context, tx *gorm.DB, entry *model.InventoryLogEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *inventoryLogRepoImpl) ListByProduct(ctx context.Context, productID string, limit int) ([]*model.InventoryLogEntry, error) {
	var entries []*model.InventoryLogEntry

	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *inventoryLogRepoImpl) ListByOrder(ctx context.Context, orderID string) ([]*model.InventoryLogEntry, error) {
	var entries []*model.InventoryLogEntry

	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}
