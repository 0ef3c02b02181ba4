package repository

import (
	"context"
	"errors"
	"storefront-fulfillment/internal/model"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, tx *gorm.DB, productID string) (*model.Product, error)
	// DecrementStock subtracts quantity only while stock >= quantity and reports whether a row changed.
	DecrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) (bool, error)
	IncrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) (bool, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *productRepoImpl) Seed(ctx context.Context) error {
	products := []model.Product{
		{ID: "tee_black_m", Name: "Black Tee (M)", Price: decimal.NewFromInt(250), Stock: 40},
		{ID: "tee_white_m", Name: "White Tee (M)", Price: decimal.NewFromInt(250), Stock: 25},
		{ID: "cap_logo", Name: "Logo Cap", Price: decimal.NewFromInt(180), Stock: 10},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&products).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, productID string) (*model.Product, error) {
	var product model.Product
	err := r.conn(tx).WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrProductNotFound
		}
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) DecrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) (bool, error) {
	result := r.conn(tx).WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *productRepoImpl) IncrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) (bool, error) {
	result := r.conn(tx).WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
