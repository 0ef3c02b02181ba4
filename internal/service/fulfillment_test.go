package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-fulfillment/internal/client"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/testutil"
)

func sideEffect(results []SideEffectResult, step string) (SideEffectResult, bool) {
	for _, r := range results {
		if r.Step == step {
			return r, true
		}
	}
	return SideEffectResult{}, false
}

func TestApproveDecrementsStockAndRecordsSale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		CustomerEmail:   "buyer@example.com",
		Items:           []model.OrderItem{testutil.Item("sku-1", 2, 100)},
	})

	result, err := h.fulfillment.Approve(ctx, admin, order.ID, "looks good")
	require.NoError(t, err)

	assert.Equal(t, 3, h.stock(t, "sku-1"))

	var entries []model.InventoryLogEntry
	require.NoError(t, h.db.Where("order_id = ?", order.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].QuantityBefore)
	assert.Equal(t, -2, entries[0].QuantityChange)
	assert.Equal(t, 3, entries[0].QuantityAfter)
	assert.Equal(t, model.InventorySale, entries[0].ChangeType)
	assert.Equal(t, admin.ID, entries[0].PerformedBy)

	assert.Equal(t, int64(1), h.count(t, &model.Sale{}, "order_id = ?", order.ID))
	assert.Equal(t, int64(1), h.count(t, &model.SaleItem{}, "sale_id = ?", result.Sale.ID))

	var stored model.Order
	require.NoError(t, h.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, model.PaymentApproved, stored.PaymentStatus)
	assert.Equal(t, model.OrderProcessing, stored.OrderStatus)
	assert.Equal(t, "looks good", stored.AdminNotes)
	assert.NotNil(t, stored.ReviewedAt)

	assert.Equal(t, int64(1), h.count(t, &model.NotificationRecord{}, "user_id = ? AND type = ?", order.UserID, model.NotificationPayment))
	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "buyer@example.com", h.mailer.sent[0].To)
	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, model.EventOrderApproved, h.publisher.events[0].Type)
}

func TestApproveInsufficientStockLeavesOrderUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 4)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		Items:           []model.OrderItem{testutil.Item("sku-1", 10, 100)},
	})

	_, err := h.fulfillment.Approve(ctx, admin, order.ID, "")

	var stockErr *model.StockInsufficientError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 10, stockErr.Requested)
	assert.Equal(t, 4, stockErr.Available)

	assert.Equal(t, 4, h.stock(t, "sku-1"))
	assert.Equal(t, int64(0), h.count(t, &model.InventoryLogEntry{}, ""))
	assert.Equal(t, int64(0), h.count(t, &model.Sale{}, ""))

	var stored model.Order
	require.NoError(t, h.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, model.PaymentUnderReview, stored.PaymentStatus)
	assert.Equal(t, model.OrderPending, stored.OrderStatus)
	assert.Empty(t, h.publisher.events)
}

func TestApproveRollsBackEarlierItemsWhenLaterItemFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	testutil.SeedProduct(t, h.db, "sku-2", 1)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		Items: []model.OrderItem{
			testutil.Item("sku-1", 2, 100),
			testutil.Item("sku-2", 3, 100),
		},
	})

	_, err := h.fulfillment.Approve(ctx, admin, order.ID, "")
	var stockErr *model.StockInsufficientError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "sku-2", stockErr.ProductID)

	assert.Equal(t, 5, h.stock(t, "sku-1"))
	assert.Equal(t, 1, h.stock(t, "sku-2"))
	assert.Equal(t, int64(0), h.count(t, &model.InventoryLogEntry{}, ""))
}

func TestApproveAccruesLoyaltyPoints(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		Items:           []model.OrderItem{testutil.Item("sku-1", 1, 500)},
	})
	require.True(t, order.TotalAmount.Equal(decimal.NewFromInt(500)))

	result, err := h.fulfillment.Approve(ctx, admin, order.ID, "")
	require.NoError(t, err)

	accrue, ok := sideEffect(result.SideEffects, "loyalty_accrue")
	require.True(t, ok)
	assert.True(t, accrue.OK)

	account, txns, err := h.loyalty.Account(ctx, order.UserID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(50), account.Balance)
	assert.Equal(t, int64(50), account.TotalEarned)
	require.Len(t, txns, 1)
	assert.Equal(t, model.LoyaltyEarn, txns[0].Type)
	assert.Equal(t, order.ID, txns[0].OrderID)
}

func TestApproveSucceedsWhenRedemptionExceedsBalance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)

	_, err := h.loyalty.Accrue(ctx, "user-1", 80, "", "welcome bonus")
	require.NoError(t, err)

	// total 5 earns no points, so only the redemption can move the balance
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		PointsUsed:      100,
		Items:           []model.OrderItem{testutil.Item("sku-1", 1, 5)},
	})

	result, err := h.fulfillment.Approve(ctx, admin, order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentApproved, result.Order.PaymentStatus)

	redeem, ok := sideEffect(result.SideEffects, "loyalty_redeem")
	require.True(t, ok)
	assert.False(t, redeem.OK)
	var pointsErr *model.InsufficientPointsError
	require.True(t, errors.As(redeem.Err, &pointsErr))
	assert.Equal(t, int64(80), pointsErr.Balance)

	account, _, err := h.loyalty.Account(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(80), account.Balance)
}

func TestApproveSucceedsWhenCouponExhausted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	require.NoError(t, h.db.Create(&model.Coupon{
		Code:          "ONCE",
		DiscountType:  model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(20),
		UsageLimit:    1,
		UsageCount:    1,
		IsActive:      true,
	}).Error)

	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		CouponCode:      "ONCE",
		CouponDiscount:  decimal.NewFromInt(20),
		Items:           []model.OrderItem{testutil.Item("sku-1", 1, 100)},
	})

	result, err := h.fulfillment.Approve(ctx, admin, order.ID, "")
	require.NoError(t, err)

	coupon, ok := sideEffect(result.SideEffects, "coupon_apply")
	require.True(t, ok)
	assert.ErrorIs(t, coupon.Err, model.ErrCouponExhausted)

	var stored model.Order
	require.NoError(t, h.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, model.PaymentApproved, stored.PaymentStatus)
	assert.True(t, stored.CouponDiscount.Equal(decimal.NewFromInt(20)))
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(80)))

	var reloaded model.Coupon
	require.NoError(t, h.db.First(&reloaded, "code = ?", "ONCE").Error)
	assert.Equal(t, 1, reloaded.UsageCount)
}

func TestApproveConsumesCouponAndRecordsActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	require.NoError(t, h.db.Create(&model.Coupon{
		Code:          "SAVE10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		UsageLimit:    10,
		IsActive:      true,
	}).Error)

	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		CouponCode:      "save10",
		CouponDiscount:  decimal.NewFromInt(20),
		Items:           []model.OrderItem{testutil.Item("sku-1", 2, 100)},
	})

	result, err := h.fulfillment.Approve(ctx, admin, order.ID, "")
	require.NoError(t, err)
	for _, r := range result.SideEffects {
		assert.True(t, r.OK, r.Step)
	}

	assert.Equal(t, int64(1), h.count(t, &model.CouponRedemption{}, "order_id = ?", order.ID))

	activity, err := h.activity.Get(ctx, order.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, activity.TotalOrders)
	assert.True(t, activity.TotalSpent.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, model.ActivityActive, activity.ActivityStatus)
}

func TestApproveRequiresPaymentProof(t *testing.T) {
	h := newHarness(t)
	order := testutil.SeedOrder(t, h.db, &model.Order{PaymentStatus: model.PaymentPending})

	_, err := h.fulfillment.Approve(context.Background(), admin, order.ID, "")
	assert.ErrorIs(t, err, model.ErrPaymentProofMissing)

	_, err = h.fulfillment.Approve(context.Background(), admin, "missing", "")
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestApproveTwiceIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		Items:           []model.OrderItem{testutil.Item("sku-1", 2, 100)},
	})

	_, err := h.fulfillment.Approve(ctx, admin, order.ID, "")
	require.NoError(t, err)

	_, err = h.fulfillment.Approve(ctx, admin, order.ID, "")
	var transitionErr *model.InvalidTransitionError
	require.True(t, errors.As(err, &transitionErr))

	assert.Equal(t, 3, h.stock(t, "sku-1"))
	assert.Equal(t, int64(1), h.count(t, &model.Sale{}, ""))
}

func TestApproveWhileLeaseHeld(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, h.db, &model.Order{PaymentProofURL: proofURL})

	lease, err := h.locker.Acquire(ctx, "order-review:"+order.ID, reviewLeaseTTL)
	require.NoError(t, err)
	defer lease.Release(ctx)

	_, err = h.fulfillment.Approve(ctx, admin, order.ID, "")
	assert.ErrorIs(t, err, model.ErrApprovalInProgress)
}

func TestReviewRequiresUnderReviewPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentStatus:   model.PaymentPending,
		PaymentProofURL: proofURL,
		Items:           []model.OrderItem{testutil.Item("sku-1", 2, 100)},
	})

	for _, action := range []ReviewAction{ActionApprove, ActionReject} {
		_, err := h.fulfillment.Review(ctx, admin, order.ID, action, "")
		var transitionErr *model.InvalidTransitionError
		require.True(t, errors.As(err, &transitionErr), "action %s", action)
		assert.Equal(t, string(model.PaymentPending), transitionErr.From)
	}

	var stored model.Order
	require.NoError(t, h.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, model.PaymentPending, stored.PaymentStatus)
	assert.Equal(t, model.OrderPending, stored.OrderStatus)
	assert.Equal(t, 5, h.stock(t, "sku-1"))
	assert.Equal(t, int64(0), h.count(t, &model.Sale{}, ""))
}

func TestPaymentDecisionPushesAreHighUrgency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		Items:           []model.OrderItem{testutil.Item("sku-1", 1, 100)},
	})
	h.subscribe(t, order.UserID, "https://push.example.com/phone")

	result, err := h.fulfillment.Approve(ctx, admin, order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Notification.Sent)
	assert.Equal(t, client.UrgencyHigh, h.pusher.urgencyFor("https://push.example.com/phone"))

	_, err = h.fulfillment.UpdateStatus(ctx, admin, order.ID, StatusUpdate{OrderStatus: model.OrderShipped})
	require.NoError(t, err)
	assert.Equal(t, client.Urgency(""), h.pusher.urgencyFor("https://push.example.com/phone"))
}

func TestRejectHasNoInventorySideEffects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		PointsUsed:      10,
		Items:           []model.OrderItem{testutil.Item("sku-1", 2, 100)},
	})
	h.subscribe(t, order.UserID, "https://push.example.com/live")

	result, err := h.fulfillment.Review(ctx, admin, order.ID, ActionReject, "blurry receipt")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRejected, result.Order.PaymentStatus)
	assert.Equal(t, 1, result.Notification.Sent)
	assert.Equal(t, client.UrgencyHigh, h.pusher.urgencyFor("https://push.example.com/live"))

	assert.Equal(t, 5, h.stock(t, "sku-1"))
	assert.Equal(t, int64(0), h.count(t, &model.Sale{}, ""))
	assert.Equal(t, int64(0), h.count(t, &model.LoyaltyTransaction{}, ""))

	var stored model.Order
	require.NoError(t, h.db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, model.PaymentRejected, stored.PaymentStatus)
	assert.Equal(t, model.OrderPending, stored.OrderStatus)

	_, err = h.fulfillment.Review(ctx, admin, order.ID, ReviewAction("maybe"), "")
	var validationErr *model.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestUpdateStatusCancelProcessingRestocks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		Items:           []model.OrderItem{testutil.Item("sku-1", 2, 100)},
	})

	_, err := h.fulfillment.Approve(ctx, admin, order.ID, "")
	require.NoError(t, err)
	require.Equal(t, 3, h.stock(t, "sku-1"))

	updated, err := h.fulfillment.UpdateStatus(ctx, admin, order.ID, StatusUpdate{OrderStatus: model.OrderCancelled})
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, updated.OrderStatus)
	assert.Equal(t, 5, h.stock(t, "sku-1"))

	var restock model.InventoryLogEntry
	require.NoError(t, h.db.Where("change_type = ?", model.InventoryRestock).First(&restock).Error)
	assert.Equal(t, 3, restock.QuantityBefore)
	assert.Equal(t, 2, restock.QuantityChange)
	assert.Equal(t, 5, restock.QuantityAfter)

	_, err = h.fulfillment.UpdateStatus(ctx, admin, order.ID, StatusUpdate{OrderStatus: model.OrderShipped})
	var transitionErr *model.InvalidTransitionError
	assert.True(t, errors.As(err, &transitionErr))
}

func TestUpdateStatusForwardPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	testutil.SeedProduct(t, h.db, "sku-1", 5)
	order := testutil.SeedOrder(t, h.db, &model.Order{
		PaymentProofURL: proofURL,
		Items:           []model.OrderItem{testutil.Item("sku-1", 1, 100)},
	})

	var transitionErr *model.InvalidTransitionError
	_, err := h.fulfillment.UpdateStatus(ctx, admin, order.ID, StatusUpdate{PaymentStatus: model.PaymentPaid})
	require.True(t, errors.As(err, &transitionErr))

	_, err = h.fulfillment.UpdateStatus(ctx, admin, order.ID, StatusUpdate{OrderStatus: model.OrderProcessing})
	require.True(t, errors.As(err, &transitionErr))

	_, err = h.fulfillment.Approve(ctx, admin, order.ID, "")
	require.NoError(t, err)

	updated, err := h.fulfillment.UpdateStatus(ctx, admin, order.ID, StatusUpdate{
		PaymentStatus: model.PaymentPaid,
		OrderStatus:   model.OrderShipped,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, model.OrderShipped, updated.OrderStatus)
	assert.Equal(t, 4, h.stock(t, "sku-1"))

	_, err = h.fulfillment.UpdateStatus(ctx, admin, order.ID, StatusUpdate{OrderStatus: model.OrderCancelled})
	require.True(t, errors.As(err, &transitionErr))

	require.Len(t, h.publisher.events, 2)
	assert.Equal(t, model.EventOrderStatusChanged, h.publisher.events[1].Type)

	_, err = h.fulfillment.UpdateStatus(ctx, admin, order.ID, StatusUpdate{OrderStatus: "lost"})
	var validationErr *model.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestSubmitPaymentProof(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, h.db, &model.Order{PaymentStatus: model.PaymentPending})

	_, err := h.fulfillment.SubmitPaymentProof(ctx, model.CurrentUser{ID: "someone-else", Role: model.RoleCustomer}, order.ID, proofURL)
	assert.ErrorIs(t, err, model.ErrForbidden)

	updated, err := h.fulfillment.SubmitPaymentProof(ctx, customer, order.ID, proofURL)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentUnderReview, updated.PaymentStatus)
	assert.Equal(t, proofURL, updated.PaymentProofURL)
}

func TestGetOrderHidesOtherCustomersOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := testutil.SeedOrder(t, h.db, &model.Order{})

	got, err := h.fulfillment.GetOrder(ctx, customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = h.fulfillment.GetOrder(ctx, model.CurrentUser{ID: "user-2", Role: model.RoleCustomer}, order.ID)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	_, err = h.fulfillment.GetOrder(ctx, model.CurrentUser{ID: "mgr", Role: model.RoleRetailManager}, order.ID)
	assert.NoError(t, err)
}
