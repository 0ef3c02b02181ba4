package service

import (
	"context"
	"errors"
	"fmt"
	"storefront-fulfillment/internal/client"
	"storefront-fulfillment/internal/lock"
	"storefront-fulfillment/internal/messaging"
	"storefront-fulfillment/internal/metrics"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ReviewAction string

const (
	ActionApprove ReviewAction = "approve"
	ActionReject  ReviewAction = "reject"
)

const reviewLeaseTTL = 30 * time.Second

// SideEffectResult reports one best-effort step of an approval. Err is nil on success.
type SideEffectResult struct {
	Step string `json:"step"`
	OK   bool   `json:"ok"`
	Err  error  `json:"-"`
}

type ReviewResult struct {
	Order        *model.Order       `json:"order"`
	Sale         *model.Sale        `json:"sale,omitempty"`
	SideEffects  []SideEffectResult `json:"side_effects,omitempty"`
	Notification DeliveryResult     `json:"notification"`
}

// StatusUpdate holds the requested targets; empty fields are left unchanged.
type StatusUpdate struct {
	OrderStatus   model.OrderStatus
	PaymentStatus model.PaymentStatus
}

type FulfillmentService interface {
	Review(ctx context.Context, actor model.CurrentUser, orderID string, action ReviewAction, notes string) (*ReviewResult, error)
	Approve(ctx context.Context, actor model.CurrentUser, orderID, notes string) (*ReviewResult, error)
	Reject(ctx context.Context, actor model.CurrentUser, orderID, notes string) (*ReviewResult, error)
	SubmitPaymentProof(ctx context.Context, actor model.CurrentUser, orderID, proofURL string) (*model.Order, error)
	UpdateStatus(ctx context.Context, actor model.CurrentUser, orderID string, update StatusUpdate) (*model.Order, error)
	GetOrder(ctx context.Context, actor model.CurrentUser, orderID string) (*model.Order, error)
}

type FulfillmentDeps struct {
	DB            *gorm.DB
	OrderRepo     repository.OrderRepository
	SaleRepo      repository.SaleRepository
	Inventory     InventoryLedger
	Loyalty       LoyaltyLedger
	Coupons       CouponTracker
	Activity      ActivityAggregator
	Notifications NotificationService
	Publisher     messaging.Publisher
	Locker        lock.Locker
	Clock         Clock
	Logger        zerolog.Logger
	EventsTopic   string
	BaseURL       string
}

type fulfillmentServiceImpl struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	saleRepo      repository.SaleRepository
	inventory     InventoryLedger
	loyalty       LoyaltyLedger
	coupons       CouponTracker
	activity      ActivityAggregator
	notifications NotificationService
	publisher     messaging.Publisher
	locker        lock.Locker
	clock         Clock
	logger        zerolog.Logger
	eventsTopic   string
	baseURL       string
}

func NewFulfillmentService(deps FulfillmentDeps) FulfillmentService {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}

	return &fulfillmentServiceImpl{
		db:            deps.DB,
		orderRepo:     deps.OrderRepo,
		saleRepo:      deps.SaleRepo,
		inventory:     deps.Inventory,
		loyalty:       deps.Loyalty,
		coupons:       deps.Coupons,
		activity:      deps.Activity,
		notifications: deps.Notifications,
		publisher:     publisher,
		locker:        locker,
		clock:         clock,
		logger:        deps.Logger.With().Str("component", "fulfillment").Logger(),
		eventsTopic:   deps.EventsTopic,
		baseURL:       deps.BaseURL,
	}
}

func (s *fulfillmentServiceImpl) Review(ctx context.Context, actor model.CurrentUser, orderID string, action ReviewAction, notes string) (*ReviewResult, error) {
	switch action {
	case ActionApprove:
		return s.Approve(ctx, actor, orderID, notes)
	case ActionReject:
		return s.Reject(ctx, actor, orderID, notes)
	}
	return nil, &model.ValidationError{Field: "action", Message: "must be approve or reject"}
}

// Approve commits stock decrements, the sale record and the order status in one transaction.
// Loyalty, coupon and activity bookkeeping then run best-effort, followed by notifications.
func (s *fulfillmentServiceImpl) Approve(ctx context.Context, actor model.CurrentUser, orderID, notes string) (*ReviewResult, error) {
	release, err := s.acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		metrics.RecordOrderOperation("approve", false)
		return nil, err
	}
	if !order.HasPaymentProof() {
		metrics.RecordOrderOperation("approve", false)
		return nil, model.ErrPaymentProofMissing
	}
	if err := checkReviewable(order, model.PaymentApproved); err != nil {
		metrics.RecordOrderOperation("approve", false)
		return nil, err
	}
	if !order.OrderStatus.CanTransitionTo(model.OrderProcessing) {
		metrics.RecordOrderOperation("approve", false)
		return nil, &model.InvalidTransitionError{Field: "orderStatus", From: string(order.OrderStatus), To: string(model.OrderProcessing)}
	}

	now := s.clock.Now()
	order.PaymentStatus = model.PaymentApproved
	order.OrderStatus = model.OrderProcessing
	order.AdminNotes = notes
	order.ReviewedAt = &now

	sale := model.NewSaleFromOrder(uuid.NewString(), order, actor.ID, now)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			_, err := s.inventory.Decrement(ctx, tx, StockChange{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Reason:    "order approved",
				ActorID:   actor.ID,
				OrderID:   order.ID,
			})
			if err != nil {
				return fmt.Errorf("decrement %s: %w", item.ProductID, err)
			}
		}

		if err := s.saleRepo.Create(ctx, tx, sale); err != nil {
			return fmt.Errorf("record sale: %w", err)
		}

		return s.orderRepo.MarkReviewed(ctx, tx, order, model.ReviewableFrom())
	})
	if err != nil {
		metrics.RecordOrderOperation("approve", false)
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("approval aborted")
		return nil, err
	}
	metrics.RecordOrderOperation("approve", true)

	result := &ReviewResult{
		Order:       order,
		Sale:        sale,
		SideEffects: s.runSideEffects(ctx, order),
	}

	result.Notification = s.notify(ctx, order, Payload{
		Title:   "Payment approved",
		Body:    fmt.Sprintf("Your payment for order %s was approved. We are preparing your items.", order.ID),
		URL:     s.orderURL(order.ID),
		Type:    model.NotificationPayment,
		Tag:     "order-" + order.ID,
		Urgency: client.UrgencyHigh,
	}, "Your order has been approved")

	s.publish(ctx, model.EventOrderApproved, order, actor.ID)

	s.logger.Info().
		Str("order_id", order.ID).
		Str("actor", actor.ID).
		Int("push_sent", result.Notification.Sent).
		Int("push_failed", result.Notification.Failed).
		Msg("order approved")

	return result, nil
}

func (s *fulfillmentServiceImpl) Reject(ctx context.Context, actor model.CurrentUser, orderID, notes string) (*ReviewResult, error) {
	release, err := s.acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		metrics.RecordOrderOperation("reject", false)
		return nil, err
	}
	if err := checkReviewable(order, model.PaymentRejected); err != nil {
		metrics.RecordOrderOperation("reject", false)
		return nil, err
	}

	now := s.clock.Now()
	order.PaymentStatus = model.PaymentRejected
	order.AdminNotes = notes
	order.ReviewedAt = &now

	if err := s.orderRepo.MarkReviewed(ctx, nil, order, model.ReviewableFrom()); err != nil {
		metrics.RecordOrderOperation("reject", false)
		return nil, err
	}
	metrics.RecordOrderOperation("reject", true)

	body := fmt.Sprintf("Your payment for order %s could not be verified.", order.ID)
	if notes != "" {
		body += " " + notes
	}

	result := &ReviewResult{Order: order}
	result.Notification = s.notify(ctx, order, Payload{
		Title:   "Payment rejected",
		Body:    body,
		URL:     s.orderURL(order.ID),
		Type:    model.NotificationPayment,
		Tag:     "order-" + order.ID,
		Urgency: client.UrgencyHigh,
	}, "Your payment was rejected")

	s.publish(ctx, model.EventOrderRejected, order, actor.ID)

	s.logger.Info().Str("order_id", order.ID).Str("actor", actor.ID).Msg("order rejected")

	return result, nil
}

func (s *fulfillmentServiceImpl) SubmitPaymentProof(ctx context.Context, actor model.CurrentUser, orderID, proofURL string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID && !actor.IsStaff() {
		return nil, model.ErrForbidden
	}
	if order.PaymentStatus != model.PaymentPending && order.PaymentStatus != model.PaymentUnderReview {
		return nil, &model.InvalidTransitionError{Field: "paymentStatus", From: string(order.PaymentStatus), To: string(model.PaymentUnderReview)}
	}

	if err := s.orderRepo.AttachPaymentProof(ctx, orderID, proofURL); err != nil {
		return nil, err
	}

	return s.orderRepo.FindByID(ctx, nil, orderID)
}

// UpdateStatus is the manual status-edit path. Cancelling a processing order returns its stock.
func (s *fulfillmentServiceImpl) UpdateStatus(ctx context.Context, actor model.CurrentUser, orderID string, update StatusUpdate) (*model.Order, error) {
	if update.OrderStatus == "" && update.PaymentStatus == "" {
		return nil, &model.ValidationError{Field: "status", Message: "orderStatus or paymentStatus is required"}
	}
	if update.OrderStatus != "" && !update.OrderStatus.Valid() {
		return nil, &model.ValidationError{Field: "orderStatus", Message: fmt.Sprintf("unknown status %q", update.OrderStatus)}
	}
	if update.PaymentStatus != "" && !update.PaymentStatus.Valid() {
		return nil, &model.ValidationError{Field: "paymentStatus", Message: fmt.Sprintf("unknown status %q", update.PaymentStatus)}
	}

	release, err := s.acquire(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	prevPayment, prevOrder := order.PaymentStatus, order.OrderStatus

	if err := applyStatusUpdate(order, update); err != nil {
		metrics.RecordOrderOperation("update_status", false)
		return nil, err
	}
	if order.PaymentStatus == prevPayment && order.OrderStatus == prevOrder {
		return order, nil
	}

	restock := prevOrder == model.OrderProcessing && order.OrderStatus == model.OrderCancelled

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if restock {
			for _, item := range order.Items {
				_, err := s.inventory.Restock(ctx, tx, StockChange{
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
					Reason:    "order cancelled",
					ActorID:   actor.ID,
					OrderID:   order.ID,
				})
				if err != nil {
					return fmt.Errorf("restock %s: %w", item.ProductID, err)
				}
			}
		}
		return s.orderRepo.UpdateStatus(ctx, tx, order, prevPayment, prevOrder)
	})
	if err != nil {
		metrics.RecordOrderOperation("update_status", false)
		return nil, err
	}
	metrics.RecordOrderOperation("update_status", true)

	s.notify(ctx, order, Payload{
		Title: "Order update",
		Body:  fmt.Sprintf("Order %s is now %s.", order.ID, statusLabel(order)),
		URL:   s.orderURL(order.ID),
		Type:  model.NotificationOrderStatus,
		Tag:   "order-" + order.ID,
	}, "Your order status changed")

	s.publish(ctx, model.EventOrderStatusChanged, order, actor.ID)

	s.logger.Info().
		Str("order_id", order.ID).
		Str("order_status", string(order.OrderStatus)).
		Str("payment_status", string(order.PaymentStatus)).
		Bool("restocked", restock).
		Msg("order status updated")

	return order, nil
}

func (s *fulfillmentServiceImpl) GetOrder(ctx context.Context, actor model.CurrentUser, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID && !actor.IsStaff() {
		// owners of other orders learn nothing about existence
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// runSideEffects executes the best-effort approval steps in order. A failing step is logged and
// counted; it never stops the steps after it.
func (s *fulfillmentServiceImpl) runSideEffects(ctx context.Context, order *model.Order) []SideEffectResult {
	type task struct {
		step string
		run  func(context.Context) error
	}

	tasks := []task{
		{step: "loyalty_accrue", run: func(ctx context.Context) error {
			points, err := s.loyalty.PointsForAmount(ctx, order.TotalAmount)
			if err != nil {
				return err
			}
			_, err = s.loyalty.Accrue(ctx, order.UserID, points, order.ID, "earned on order "+order.ID)
			return err
		}},
	}
	if order.PointsUsed > 0 {
		tasks = append(tasks, task{step: "loyalty_redeem", run: func(ctx context.Context) error {
			_, err := s.loyalty.Redeem(ctx, order.UserID, order.PointsUsed, order.ID)
			return err
		}})
	}
	if order.CouponCode != "" {
		tasks = append(tasks, task{step: "coupon_apply", run: func(ctx context.Context) error {
			_, err := s.coupons.Apply(ctx, order.CouponCode, order.UserID, order.ID)
			return err
		}})
	}
	tasks = append(tasks, task{step: "customer_activity", run: func(ctx context.Context) error {
		_, err := s.activity.Record(ctx, order.UserID, model.ActionOrder, ActivityPayload{Amount: order.TotalAmount})
		return err
	}})

	results := make([]SideEffectResult, 0, len(tasks))
	for _, t := range tasks {
		err := t.run(ctx)
		results = append(results, SideEffectResult{Step: t.step, OK: err == nil, Err: err})
		if err != nil {
			metrics.RecordSideEffectFailure(t.step)
			s.logger.Warn().Err(err).Str("order_id", order.ID).Str("step", t.step).Msg("fulfillment side effect failed")
		}
	}

	return results
}

func (s *fulfillmentServiceImpl) notify(ctx context.Context, order *model.Order, payload Payload, subject string) DeliveryResult {
	opts := SendOptions{}
	if order.CustomerEmail != "" {
		opts.Email = &EmailMessage{
			To:      order.CustomerEmail,
			Subject: subject,
			Body:    payload.Body + "\n\n" + payload.URL,
		}
	}

	result, err := s.notifications.SendToUser(ctx, order.UserID, payload, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("order notification failed")
	}
	return result
}

func (s *fulfillmentServiceImpl) publish(ctx context.Context, eventType string, order *model.Order, actorID string) {
	event := model.NewOrderEvent(eventType, order, actorID, s.clock.Now())
	if err := s.publisher.PublishEvent(ctx, s.eventsTopic, order.ID, event); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Str("event", eventType).Msg("publish order event")
	}
}

func (s *fulfillmentServiceImpl) acquire(ctx context.Context, orderID string) (func(), error) {
	lease, err := s.locker.Acquire(ctx, "order-review:"+orderID, reviewLeaseTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, model.ErrApprovalInProgress
		}
		return nil, fmt.Errorf("acquire order lease: %w", err)
	}

	return func() {
		// release on a fresh context so a cancelled request still frees the key
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			s.logger.Warn().Err(err).Str("order_id", orderID).Msg("release order lease")
		}
	}, nil
}

func (s *fulfillmentServiceImpl) orderURL(orderID string) string {
	return s.baseURL + "/orders/" + orderID
}

func checkReviewable(order *model.Order, target model.PaymentStatus) error {
	if !order.PaymentStatus.CanTransitionTo(target) {
		return &model.InvalidTransitionError{Field: "paymentStatus", From: string(order.PaymentStatus), To: string(target)}
	}
	return nil
}

// applyStatusUpdate enforces the status-edit rules: payment may only move approved -> paid here,
// and fulfilment states past pending need an approved or paid payment.
func applyStatusUpdate(order *model.Order, update StatusUpdate) error {
	if update.PaymentStatus != "" && update.PaymentStatus != order.PaymentStatus {
		if update.PaymentStatus != model.PaymentPaid || !order.PaymentStatus.CanTransitionTo(model.PaymentPaid) {
			return &model.InvalidTransitionError{Field: "paymentStatus", From: string(order.PaymentStatus), To: string(update.PaymentStatus)}
		}
		order.PaymentStatus = update.PaymentStatus
	}

	if update.OrderStatus != "" && update.OrderStatus != order.OrderStatus {
		if !order.OrderStatus.CanTransitionTo(update.OrderStatus) {
			return &model.InvalidTransitionError{Field: "orderStatus", From: string(order.OrderStatus), To: string(update.OrderStatus)}
		}
		if update.OrderStatus != model.OrderCancelled &&
			order.PaymentStatus != model.PaymentApproved && order.PaymentStatus != model.PaymentPaid {
			return &model.InvalidTransitionError{Field: "orderStatus", From: string(order.OrderStatus), To: string(update.OrderStatus)}
		}
		order.OrderStatus = update.OrderStatus
	}

	return nil
}

func statusLabel(order *model.Order) string {
	switch order.OrderStatus {
	case model.OrderProcessing:
		return "being prepared"
	case model.OrderShipped:
		return "on its way"
	case model.OrderDelivered:
		return "delivered"
	case model.OrderCancelled:
		return "cancelled"
	}
	return string(order.OrderStatus)
}
