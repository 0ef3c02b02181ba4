package repository

import (
	"context"
	"storefront-fulfillment/internal/model"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	// Upsert keys on the endpoint; re-subscribing the same client rebinds owner, keys and preferences.
	Upsert(ctx context.Context, sub *model.Subscription) error
	Delete(ctx context.Context, endpoint string) (bool, error)
	FindByUser(ctx context.Context, userID string) ([]*model.Subscription, error)
	FindByCategory(ctx context.Context, category string) ([]*model.Subscription, error)
	FindAll(ctx context.Context) ([]*model.Subscription, error)
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{
		db: db,
	}
}

func (r *subscriptionRepoImpl) Upsert(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"user_id":         sub.UserID,
			"p256dh":          sub.P256dh,
			"auth":            sub.Auth,
			"pref_categories": sub.Preferences.Categories,
			"pref_frequency":  sub.Preferences.Frequency,
			"user_agent":      sub.UserAgent,
			"updated_at":      time.Now(),
		}),
	}).Create(sub).Error
}

func (r *subscriptionRepoImpl) Delete(ctx context.Context, endpoint string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&model.Subscription{})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *subscriptionRepoImpl) FindByUser(ctx context.Context, userID string) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepoImpl) FindByCategory(ctx context.Context, category string) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := r.db.WithContext(ctx).
		Where(datatypes.JSONArrayQuery("pref_categories").Contains(category)).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepoImpl) FindAll(ctx context.Context) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}

	return subs, nil
}
