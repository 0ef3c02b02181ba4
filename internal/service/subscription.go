package service

import (
	"context"
	"fmt"
	"net/url"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"
	"strings"
)

// SubscriptionStore holds one push subscription per installed client.
type SubscriptionStore interface {
	Subscribe(ctx context.Context, sub *model.Subscription) error
	Unsubscribe(ctx context.Context, endpoint string) (bool, error)
	ForUser(ctx context.Context, userID string) ([]*model.Subscription, error)
	ForCategory(ctx context.Context, category string) ([]*model.Subscription, error)
	All(ctx context.Context) ([]*model.Subscription, error)
}

type subscriptionStoreImpl struct {
	subscriptionRepo repository.SubscriptionRepository
}

func NewSubscriptionStore(subscriptionRepo repository.SubscriptionRepository) SubscriptionStore {
	return &subscriptionStoreImpl{
		subscriptionRepo: subscriptionRepo,
	}
}

func (s *subscriptionStoreImpl) Subscribe(ctx context.Context, sub *model.Subscription) error {
	endpoint, err := url.Parse(sub.Endpoint)
	if err != nil || endpoint.Scheme != "https" || endpoint.Host == "" {
		return &model.ValidationError{Field: "subscription.endpoint", Message: "must be an https url"}
	}
	if sub.P256dh == "" || sub.Auth == "" {
		return &model.ValidationError{Field: "subscription.keys", Message: "p256dh and auth are required"}
	}

	categories := make([]string, 0, len(sub.Preferences.Categories))
	for _, c := range sub.Preferences.Categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}
	sub.Preferences.Categories = categories

	if err := s.subscriptionRepo.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("store subscription: %w", err)
	}
	return nil
}

func (s *subscriptionStoreImpl) Unsubscribe(ctx context.Context, endpoint string) (bool, error) {
	return s.subscriptionRepo.Delete(ctx, endpoint)
}

func (s *subscriptionStoreImpl) ForUser(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return s.subscriptionRepo.FindByUser(ctx, userID)
}

func (s *subscriptionStoreImpl) ForCategory(ctx context.Context, category string) ([]*model.Subscription, error) {
	return s.subscriptionRepo.FindByCategory(ctx, category)
}

func (s *subscriptionStoreImpl) All(ctx context.Context) ([]*model.Subscription, error) {
	return s.subscriptionRepo.FindAll(ctx)
}
