package repository

import (
	"context"
	"errors"
	"storefront-fulfillment/internal/model"

	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, sale *model.Sale) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Sale, error)
}

type saleRepoImpl struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepoImpl{
		db: db,
	}
}

// Create relies on the unique order_id index so a second sale for one order fails.
func (r *saleRepoImpl) Create(ctx context.Context, tx *gorm.DB, sale *model.Sale) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(sale).Error
}

func (r *saleRepoImpl) FindByOrderID(ctx context.Context, orderID string) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &sale, nil
}
