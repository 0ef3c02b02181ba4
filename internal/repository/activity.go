package repository

import (
	"context"
	"errors"
	"storefront-fulfillment/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository interface {
	// Find returns nil without error when no aggregate exists yet.
	Find(ctx context.Context, tx *gorm.DB, userID string) (*model.CustomerActivity, error)
	// Ensure inserts the aggregate unless the user already has one; an existing row is left untouched.
	Ensure(ctx context.Context, tx *gorm.DB, activity *model.CustomerActivity) error
	// Lock reads the aggregate and holds it until tx ends.
	Lock(ctx context.Context, tx *gorm.DB, userID string) (*model.CustomerActivity, error)
	Save(ctx context.Context, tx *gorm.DB, activity *model.CustomerActivity) error
}

type activityRepoImpl struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepoImpl{
		db: db,
	}
}

func (r *activityRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *activityRepoImpl) Find(ctx context.Context, tx *gorm.DB, userID string) (*model.CustomerActivity, error) {
	var activity model.CustomerActivity
	err := r.conn(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		First(&activity).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &activity, nil
}

func (r *activityRepoImpl) Ensure(ctx context.Context, tx *gorm.DB, activity *model.CustomerActivity) error {
	return r.conn(tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(activity).Error
}

func (r *activityRepoImpl) Lock(ctx context.Context, tx *gorm.DB, userID string) (*model.CustomerActivity, error) {
	var activity model.CustomerActivity
	err := r.conn(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&activity).Error
	if err != nil {
		return nil, err
	}

	return &activity, nil
}

func (r *activityRepoImpl) Save(ctx context.Context, tx *gorm.DB, activity *model.CustomerActivity) error {
	return r.conn(tx).WithContext(ctx).Save(activity).Error
}
