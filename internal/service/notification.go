package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"storefront-fulfillment/internal/client"
	"storefront-fulfillment/internal/metrics"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Payload struct {
	Title   string                 `json:"title"`
	Body    string                 `json:"body"`
	URL     string                 `json:"url,omitempty"`
	Type    model.NotificationType `json:"type"`
	Tag     string                 `json:"tag,omitempty"`
	Urgency client.Urgency         `json:"-"`
}

type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

type SendOptions struct {
	SkipHistory bool
	Email       *EmailMessage // sent independently of push; failures are only logged
}

// SegmentFilter with an empty Category selects every subscription.
type SegmentFilter struct {
	Category string
}

type DeliveryResult struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Evicted int `json:"evicted"`
}

type NotificationService interface {
	SendToUser(ctx context.Context, userID string, payload Payload, opts SendOptions) (DeliveryResult, error)
	SendToSegment(ctx context.Context, filter SegmentFilter, payload Payload, opts SendOptions) (DeliveryResult, error)
	SendToAll(ctx context.Context, payload Payload, opts SendOptions) (DeliveryResult, error)
	List(ctx context.Context, userID string, limit int) ([]*model.NotificationRecord, int64, error)
	MarkRead(ctx context.Context, userID string, ids []string, all bool) (int64, error)
}

type notificationServiceImpl struct {
	subscriptions    SubscriptionStore
	notificationRepo repository.NotificationRepository
	push             client.PushSetup
	mailer           client.Mailer
	concurrency      int
	clock            Clock
	logger           zerolog.Logger
}

func NewNotificationService(
	subscriptions SubscriptionStore,
	notificationRepo repository.NotificationRepository,
	push client.PushSetup,
	mailer client.Mailer,
	concurrency int,
	clock Clock,
	logger zerolog.Logger,
) NotificationService {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &notificationServiceImpl{
		subscriptions:    subscriptions,
		notificationRepo: notificationRepo,
		push:             push,
		mailer:           mailer,
		concurrency:      concurrency,
		clock:            clock,
		logger:           logger.With().Str("component", "notifications").Logger(),
	}
}

func (s *notificationServiceImpl) SendToUser(ctx context.Context, userID string, payload Payload, opts SendOptions) (DeliveryResult, error) {
	subs, err := s.subscriptions.ForUser(ctx, userID)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("load subscriptions for %s: %w", userID, err)
	}
	return s.fanOut(ctx, subs, []string{userID}, payload, opts)
}

func (s *notificationServiceImpl) SendToSegment(ctx context.Context, filter SegmentFilter, payload Payload, opts SendOptions) (DeliveryResult, error) {
	if filter.Category == "" {
		return s.SendToAll(ctx, payload, opts)
	}

	subs, err := s.subscriptions.ForCategory(ctx, filter.Category)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("load subscriptions for category %s: %w", filter.Category, err)
	}
	return s.fanOut(ctx, subs, ownersOf(subs), payload, opts)
}

func (s *notificationServiceImpl) SendToAll(ctx context.Context, payload Payload, opts SendOptions) (DeliveryResult, error) {
	subs, err := s.subscriptions.All(ctx)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("load subscriptions: %w", err)
	}
	return s.fanOut(ctx, subs, ownersOf(subs), payload, opts)
}

func (s *notificationServiceImpl) List(ctx context.Context, userID string, limit int) ([]*model.NotificationRecord, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	records, err := s.notificationRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.notificationRepo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return records, unread, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID string, ids []string, all bool) (int64, error) {
	if all {
		return s.notificationRepo.MarkAllRead(ctx, userID, s.clock.Now())
	}
	return s.notificationRepo.MarkRead(ctx, userID, ids, s.clock.Now())
}

// fanOut pushes to every subscription in parallel, then writes history for each target user and
// sends the optional email. History and email never depend on push outcomes.
func (s *notificationServiceImpl) fanOut(ctx context.Context, subs []*model.Subscription, targets []string, payload Payload, opts SendOptions) (DeliveryResult, error) {
	result := s.deliver(ctx, subs, payload)

	var historyErr error
	if !opts.SkipHistory {
		historyErr = s.saveHistory(ctx, targets, payload)
	}

	if opts.Email != nil && opts.Email.To != "" {
		if err := s.mailer.Send(ctx, opts.Email.To, opts.Email.Subject, opts.Email.Body); err != nil {
			s.logger.Warn().Err(err).Str("to", opts.Email.To).Msg("email send failed")
		}
	}

	return result, historyErr
}

func (s *notificationServiceImpl) deliver(ctx context.Context, subs []*model.Subscription, payload Payload) DeliveryResult {
	var result DeliveryResult
	if len(subs) == 0 {
		return result
	}
	if !s.push.Configured {
		s.logger.Debug().Int("subscriptions", len(subs)).Msg("push not configured, skipping delivery")
		return result
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode push payload")
		result.Failed = len(subs)
		return result
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			outcome := s.deliverOne(ctx, sub, body, payload.Urgency)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case metrics.PushSent:
				result.Sent++
			case metrics.PushEvicted:
				result.Failed++
				result.Evicted++
			default:
				result.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	return result
}

func (s *notificationServiceImpl) deliverOne(ctx context.Context, sub *model.Subscription, body []byte, urgency client.Urgency) string {
	status, err := s.push.Pusher.Push(ctx, sub, body, urgency)

	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("push delivery failed")
		metrics.RecordPush(metrics.PushFailed)
		return metrics.PushFailed

	case status == http.StatusGone || status == http.StatusNotFound:
		if _, err := s.subscriptions.Unsubscribe(ctx, sub.Endpoint); err != nil {
			s.logger.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("evict dead subscription")
		}
		s.logger.Info().Int("status", status).Str("user_id", sub.UserID).Msg("evicted dead push subscription")
		metrics.RecordPush(metrics.PushEvicted)
		return metrics.PushEvicted

	case status < 200 || status > 299:
		s.logger.Warn().Int("status", status).Str("endpoint", sub.Endpoint).Msg("push service rejected message")
		metrics.RecordPush(metrics.PushFailed)
		return metrics.PushFailed
	}

	metrics.RecordPush(metrics.PushSent)
	return metrics.PushSent
}

func (s *notificationServiceImpl) saveHistory(ctx context.Context, targets []string, payload Payload) error {
	now := s.clock.Now()

	seen := make(map[string]struct{}, len(targets))
	records := make([]*model.NotificationRecord, 0, len(targets))
	for _, userID := range targets {
		if userID == "" {
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}

		records = append(records, &model.NotificationRecord{
			ID:     uuid.NewString(),
			UserID: userID,
			Title:  payload.Title,
			Body:   payload.Body,
			URL:    payload.URL,
			Type:   payload.Type,
			SentAt: now,
		})
	}

	if err := s.notificationRepo.CreateMany(ctx, records); err != nil {
		return fmt.Errorf("save notification history: %w", err)
	}
	return nil
}

func ownersOf(subs []*model.Subscription) []string {
	owners := make([]string, 0, len(subs))
	for _, sub := range subs {
		owners = append(owners, sub.UserID)
	}
	return owners
}
