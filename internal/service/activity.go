package service

import (
	"context"
	"fmt"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ActivityPayload struct {
	Amount decimal.Decimal // order total, only read for order actions
	At     time.Time       // defaults to the clock
}

type ActivityAggregator interface {
	Record(ctx context.Context, userID string, action model.ActivityAction, payload ActivityPayload) (*model.CustomerActivity, error)
	Get(ctx context.Context, userID string) (*model.CustomerActivity, error)
}

type activityAggregatorImpl struct {
	db           *gorm.DB
	activityRepo repository.ActivityRepository
	clock        Clock
}

func NewActivityAggregator(db *gorm.DB, activityRepo repository.ActivityRepository, clock Clock) ActivityAggregator {
	return &activityAggregatorImpl{
		db:           db,
		activityRepo: activityRepo,
		clock:        clock,
	}
}

func (s *activityAggregatorImpl) Record(ctx context.Context, userID string, action model.ActivityAction, payload ActivityPayload) (*model.CustomerActivity, error) {
	if !action.Valid() {
		return nil, &model.ValidationError{Field: "action", Message: fmt.Sprintf("unknown activity action %q", action)}
	}

	now := s.clock.Now()
	at := payload.At
	if at.IsZero() {
		at = now
	}

	// The first action for a user may race another; the insert is a no-op for the loser and
	// the row lock serializes the counter updates.
	var activity *model.CustomerActivity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.activityRepo.Ensure(ctx, tx, &model.CustomerActivity{
			UserID:         userID,
			ActivityStatus: model.ActivityNew,
			CreatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("create customer activity: %w", err)
		}

		activity, err = s.activityRepo.Lock(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("load customer activity: %w", err)
		}

		switch action {
		case model.ActionLogin:
			activity.LoginCount++
			activity.LastLoginDate = &at
		case model.ActionEmail:
			activity.EmailCount++
			activity.LastEmailDate = &at
		case model.ActionOrder:
			activity.TotalOrders++
			activity.TotalSpent = activity.TotalSpent.Add(payload.Amount)
			activity.LastOrderDate = &at
		}
		activity.Refresh(now)

		if err := s.activityRepo.Save(ctx, tx, activity); err != nil {
			return fmt.Errorf("save customer activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return activity, nil
}

// Get reclassifies on read so a customer who stopped ordering shows as inactive without a new action.
func (s *activityAggregatorImpl) Get(ctx context.Context, userID string) (*model.CustomerActivity, error) {
	activity, err := s.activityRepo.Find(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		now := s.clock.Now()
		return &model.CustomerActivity{
			UserID:         userID,
			ActivityStatus: model.ActivityNew,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, nil
	}

	activity.Refresh(s.clock.Now())
	return activity, nil
}
