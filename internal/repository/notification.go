package repository

import (
	"context"
	"storefront-fulfillment/internal/model"
	"time"

	"gorm.io/gorm"
)

type NotificationRepository interface {
	CreateMany(ctx context.Context, records []*model.NotificationRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.NotificationRecord, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID string, ids []string, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
}

type notificationRepoImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepoImpl{
		db: db,
	}
}

func (r *notificationRepoImpl) CreateMany(ctx context.Context, records []*model.NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *notificationRepoImpl) ListByUser(ctx context.Context, userID string, limit int) ([]*model.NotificationRecord, error) {
	var records []*model.NotificationRecord

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *notificationRepoImpl) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.NotificationRecord{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error

	return count, err
}

// MarkRead only touches the caller's own unread records.
func (r *notificationRepoImpl) MarkRead(ctx context.Context, userID string, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Model(&model.NotificationRecord{}).
		Where("user_id = ? AND is_read = ? AND id IN ?", userID, false, ids).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})

	return result.RowsAffected, result.Error
}

func (r *notificationRepoImpl) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.NotificationRecord{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})

	return result.RowsAffected, result.Error
}
