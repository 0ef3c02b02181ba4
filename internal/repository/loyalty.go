package repository

import (
	"context"
	"errors"
	"storefront-fulfillment/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoyaltyRepository interface {
	FindAccount(ctx context.Context, tx *gorm.DB, userID string) (*model.LoyaltyAccount, error)
	// Accrue creates the account on first use and adds points to balance and total_earned.
	Accrue(ctx context.Context, tx *gorm.DB, userID string, points int64) error
	// Redeem deducts points only while balance >= points and reports whether a row changed.
	Redeem(ctx context.Context, tx *gorm.DB, userID string, points int64) (bool, error)
	AppendTransaction(ctx context.Context, tx *gorm.DB, txn *model.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]*model.LoyaltyTransaction, error)
}

type loyaltyRepoImpl struct {
	db *gorm.DB
}

func NewLoyaltyRepository(db *gorm.DB) LoyaltyRepository {
	return &loyaltyRepoImpl{
		db: db,
	}
}

func (r *loyaltyRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// FindAccount returns nil without error when the user has never earned points.
func (r *loyaltyRepoImpl) FindAccount(ctx context.Context, tx *gorm.DB, userID string) (*model.LoyaltyAccount, error) {
	var account model.LoyaltyAccount
	err := r.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

func (r *loyaltyRepoImpl) Accrue(ctx context.Context, tx *gorm.DB, userID string, points int64) error {
	account := model.LoyaltyAccount{
		UserID:      userID,
		Balance:     points,
		TotalEarned: points,
	}

	return r.conn(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":      gorm.Expr("loyalty_accounts.balance + ?", points),
			"total_earned": gorm.Expr("loyalty_accounts.total_earned + ?", points),
			"updated_at":   time.Now(),
		}),
	}).Create(&account).Error
}

func (r *loyaltyRepoImpl) Redeem(ctx context.Context, tx *gorm.DB, userID string, points int64) (bool, error) {
	result := r.conn(tx).WithContext(ctx).Model(&model.LoyaltyAccount{}).
		Where("user_id = ? AND balance >= ?", userID, points).
		Updates(map[string]interface{}{
			"balance":        gorm.Expr("balance - ?", points),
			"total_redeemed": gorm.Expr("total_redeemed + ?", points),
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *loyaltyRepoImpl) AppendTransaction(ctx context.Context, tx *gorm.DB, txn *model.LoyaltyTransaction) error {
	return r.conn(tx).WithContext(ctx).Create(txn).Error
}

func (r *loyaltyRepoImpl) ListTransactions(ctx context.Context, userID string, limit int) ([]*model.LoyaltyTransaction, error) {
	var txns []*model.LoyaltyTransaction

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}

	return txns, nil
}
