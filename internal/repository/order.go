package repository

import (
	"context"
	"errors"
	"storefront-fulfillment/internal/model"
	"time"

	"gorm.io/gorm"
)

type OrderRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error)
	// MarkReviewed persists the review outcome only if the payment status is still one of fromStatuses.
	MarkReviewed(ctx context.Context, tx *gorm.DB, order *model.Order, fromStatuses []model.PaymentStatus) error
	AttachPaymentProof(ctx context.Context, orderID, proofURL string) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, order *model.Order, fromPayment model.PaymentStatus, fromOrder model.OrderStatus) error
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.conn(tx).WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrOrderNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) MarkReviewed(ctx context.Context, tx *gorm.DB, order *model.Order, fromStatuses []model.PaymentStatus) error {
	result := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where(`
			id = ?
			AND payment_status IN ?
		`,
			order.ID,
			fromStatuses,
		).
		Updates(map[string]interface{}{
			"payment_status": order.PaymentStatus,
			"order_status":   order.OrderStatus,
			"admin_notes":    order.AdminNotes,
			"reviewed_at":    order.ReviewedAt,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrOrderStateConflict
	}

	return nil
}

func (r *orderRepoImpl) AttachPaymentProof(ctx context.Context, orderID, proofURL string) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Where("payment_status IN ?", []model.PaymentStatus{model.PaymentPending, model.PaymentUnderReview}).
		Updates(map[string]interface{}{
			"payment_proof_url": proofURL,
			"payment_status":    model.PaymentUnderReview,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrOrderStateConflict
	}

	return nil
}

func (r *orderRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, order *model.Order, fromPayment model.PaymentStatus, fromOrder model.OrderStatus) error {
	result := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ? AND order_status = ?", order.ID, fromPayment, fromOrder).
		Updates(map[string]interface{}{
			"payment_status": order.PaymentStatus,
			"order_status":   order.OrderStatus,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrOrderStateConflict
	}

	return nil
}
