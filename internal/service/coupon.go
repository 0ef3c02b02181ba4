package service

import (
	"context"
	"fmt"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CouponQuote struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Coupon   *model.Coupon   `json:"coupon"`
}

type CouponTracker interface {
	// Apply records one use of code against an order. Re-applying the same order returns the
	// existing redemption without counting it twice.
	Apply(ctx context.Context, code, userID, orderID string) (*model.CouponRedemption, error)
	Validate(ctx context.Context, code, userID string, subtotal decimal.Decimal) (*CouponQuote, error)
}

type couponTrackerImpl struct {
	db         *gorm.DB
	couponRepo repository.CouponRepository
	clock      Clock
}

func NewCouponTracker(
	db *gorm.DB,
	couponRepo repository.CouponRepository,
	clock Clock,
) CouponTracker {
	return &couponTrackerImpl{
		db:         db,
		couponRepo: couponRepo,
		clock:      clock,
	}
}

func (s *couponTrackerImpl) Apply(ctx context.Context, code, userID, orderID string) (*model.CouponRedemption, error) {
	var redemption *model.CouponRedemption

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		coupon, err := s.couponRepo.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}

		existing, err := s.couponRepo.FindRedemption(ctx, tx, coupon.ID, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			redemption = existing
			return nil
		}

		if err := s.checkUsable(ctx, tx, coupon, userID); err != nil {
			return err
		}

		ok, err := s.couponRepo.IncrementUsage(ctx, tx, coupon.ID)
		if err != nil {
			return fmt.Errorf("increment coupon usage: %w", err)
		}
		if !ok {
			return model.ErrCouponExhausted
		}

		redemption = &model.CouponRedemption{
			CouponID:   coupon.ID,
			Code:       coupon.Code,
			UserID:     userID,
			OrderID:    orderID,
			RedeemedAt: s.clock.Now(),
		}
		return s.couponRepo.CreateRedemption(ctx, tx, redemption)
	})
	if err != nil {
		return nil, err
	}

	return redemption, nil
}

func (s *couponTrackerImpl) Validate(ctx context.Context, code, userID string, subtotal decimal.Decimal) (*CouponQuote, error) {
	coupon, err := s.couponRepo.FindByCode(ctx, nil, code)
	if err != nil {
		return nil, err
	}

	if err := s.checkUsable(ctx, nil, coupon, userID); err != nil {
		return nil, err
	}
	if subtotal.LessThan(coupon.MinPurchase) {
		return nil, model.ErrCouponMinPurchase
	}

	return &CouponQuote{
		Code:     coupon.Code,
		Subtotal: subtotal,
		Discount: coupon.Discount(subtotal),
		Coupon:   coupon,
	}, nil
}

func (s *couponTrackerImpl) checkUsable(ctx context.Context, tx *gorm.DB, coupon *model.Coupon, userID string) error {
	if !coupon.IsActive {
		return model.ErrCouponInactive
	}
	if coupon.Expired(s.clock.Now()) {
		return model.ErrCouponExpired
	}
	if coupon.Exhausted() {
		return model.ErrCouponExhausted
	}

	if coupon.UserUsageLimit > 0 {
		used, err := s.couponRepo.CountUserRedemptions(ctx, tx, coupon.ID, userID)
		if err != nil {
			return fmt.Errorf("count coupon redemptions: %w", err)
		}
		if used >= int64(coupon.UserUsageLimit) {
			return model.ErrCouponUserLimit
		}
	}

	return nil
}
