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

type CouponRepository interface {
	Seed(ctx context.Context) error
	FindByCode(ctx context.Context, tx *gorm.DB, code string) (*model.Coupon, error)
	CountUserRedemptions(ctx context.Context, tx *gorm.DB, couponID uint, userID string) (int64, error)
	FindRedemption(ctx context.Context, tx *gorm.DB, couponID uint, orderID string) (*model.CouponRedemption, error)
	// IncrementUsage bumps usage_count only while the global limit allows it.
	IncrementUsage(ctx context.Context, tx *gorm.DB, couponID uint) (bool, error)
	CreateRedemption(ctx context.Context, tx *gorm.DB, redemption *model.CouponRedemption) error
}

type couponRepoImpl struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepoImpl{
		db: db,
	}
}

func (r *couponRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *couponRepoImpl) Seed(ctx context.Context) error {
	coupons := []model.Coupon{
		{
			Code:           "WELCOME10",
			DiscountType:   model.DiscountPercentage,
			DiscountValue:  decimal.NewFromInt(10),
			MinPurchase:    decimal.NewFromInt(200),
			MaxDiscount:    decimal.NewFromInt(100),
			UsageLimit:     500,
			UserUsageLimit: 1,
			IsActive:       true,
		},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&coupons).Error
}

func (r *couponRepoImpl) FindByCode(ctx context.Context, tx *gorm.DB, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.conn(tx).WithContext(ctx).
		Where("code = ?", model.NormalizeCouponCode(code)).
		First(&coupon).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrCouponNotFound
		}
		return nil, err
	}

	return &coupon, nil
}

func (r *couponRepoImpl) CountUserRedemptions(ctx context.Context, tx *gorm.DB, couponID uint, userID string) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&model.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error

	return count, err
}

func (r *couponRepoImpl) FindRedemption(ctx context.Context, tx *gorm.DB, couponID uint, orderID string) (*model.CouponRedemption, error) {
	var redemption model.CouponRedemption
	err := r.conn(tx).WithContext(ctx).
		Where("coupon_id = ? AND order_id = ?", couponID, orderID).
		First(&redemption).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &redemption, nil
}

func (r *couponRepoImpl) IncrementUsage(ctx context.Context, tx *gorm.DB, couponID uint) (bool, error) {
	result := r.conn(tx).WithContext(ctx).Model(&model.Coupon{}).
		Where("id = ?", couponID).
		Where("usage_limit = 0 OR usage_count < usage_limit").
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *couponRepoImpl) CreateRedemption(ctx context.Context, tx *gorm.DB, redemption *model.CouponRedemption) error {
	return r.conn(tx).WithContext(ctx).Create(redemption).Error
}
