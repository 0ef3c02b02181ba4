package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront-fulfillment/internal/client"
	"storefront-fulfillment/internal/config"
	"storefront-fulfillment/internal/lock"
	"storefront-fulfillment/internal/messaging"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/repository"
	"storefront-fulfillment/internal/testutil"
)

type fakePusher struct {
	mu       sync.Mutex
	statuses map[string]int   // endpoint -> status; missing endpoints get 201
	errs     map[string]error // endpoint -> transport error
	calls    []string
	urgency  map[string]client.Urgency // endpoint -> last urgency
}

func newFakePusher() *fakePusher {
	return &fakePusher{statuses: map[string]int{}, errs: map[string]error{}, urgency: map[string]client.Urgency{}}
}

func (p *fakePusher) Push(_ context.Context, sub *model.Subscription, _ []byte, urgency client.Urgency) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, sub.Endpoint)
	p.urgency[sub.Endpoint] = urgency
	if err, ok := p.errs[sub.Endpoint]; ok {
		return 0, err
	}
	if status, ok := p.statuses[sub.Endpoint]; ok {
		return status, nil
	}
	return 201, nil
}

func (p *fakePusher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakePusher) urgencyFor(endpoint string) client.Urgency {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.urgency[endpoint]
}

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if e, ok := event.(model.OrderEvent); ok {
		p.events = append(p.events, e)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

var _ messaging.Publisher = (*recordingPublisher)(nil)

var errPushUnreachable = errors.New("dial tcp: connection refused")

type harness struct {
	db            *gorm.DB
	clock         *testutil.Clock
	pusher        *fakePusher
	mailer        *fakeMailer
	publisher     *recordingPublisher
	locker        lock.Locker
	inventory     InventoryLedger
	loyalty       LoyaltyLedger
	coupons       CouponTracker
	activity      ActivityAggregator
	subscriptions SubscriptionStore
	notifications NotificationService
	fulfillment   FulfillmentService
}

func testLoyaltyConfig() config.Loyalty {
	return config.Loyalty{
		PointsPerAmount:  decimal.NewFromInt(10),
		RedeemRate:       decimal.NewFromInt(1),
		MinRedeemPoints:  10,
		MaxRedeemPercent: decimal.NewFromInt(50),
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.NewTestDB(t)
	h := &harness{
		db:        db,
		clock:     testutil.NewClock(),
		pusher:    newFakePusher(),
		mailer:    &fakeMailer{},
		publisher: &recordingPublisher{},
		locker:    lock.NewLocalLocker(),
	}

	h.inventory = NewInventoryLedger(db, repository.NewProductRepository(db), repository.NewInventoryLogRepository(db))
	h.loyalty = NewLoyaltyLedger(db, repository.NewLoyaltyRepository(db), NewStaticLoyaltySettings(testLoyaltyConfig()))
	h.coupons = NewCouponTracker(db, repository.NewCouponRepository(db), h.clock)
	h.activity = NewActivityAggregator(db, repository.NewActivityRepository(db), h.clock)
	h.subscriptions = NewSubscriptionStore(repository.NewSubscriptionRepository(db))
	h.notifications = NewNotificationService(
		h.subscriptions,
		repository.NewNotificationRepository(db),
		client.PushSetup{Pusher: h.pusher, Configured: true},
		h.mailer,
		4,
		h.clock,
		testutil.Logger(),
	)
	h.fulfillment = NewFulfillmentService(FulfillmentDeps{
		DB:            db,
		OrderRepo:     repository.NewOrderRepository(db),
		SaleRepo:      repository.NewSaleRepository(db),
		Inventory:     h.inventory,
		Loyalty:       h.loyalty,
		Coupons:       h.coupons,
		Activity:      h.activity,
		Notifications: h.notifications,
		Publisher:     h.publisher,
		Locker:        h.locker,
		Clock:         h.clock,
		Logger:        testutil.Logger(),
		EventsTopic:   "orders.events",
		BaseURL:       "https://shop.example.com",
	})

	return h
}

func (h *harness) subscribe(t *testing.T, userID, endpoint string, categories ...string) {
	t.Helper()
	err := h.subscriptions.Subscribe(context.Background(), &model.Subscription{
		Endpoint:    endpoint,
		UserID:      userID,
		P256dh:      "BNc-p256dh",
		Auth:        "auth-secret",
		Preferences: model.Preferences{Categories: categories},
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
}

func (h *harness) stock(t *testing.T, productID string) int {
	t.Helper()
	var product model.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func (h *harness) count(t *testing.T, m any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := h.db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

var (
	admin    = model.CurrentUser{ID: "admin-1", Role: model.RoleAdmin}
	customer = model.CurrentUser{ID: "user-1", Role: model.RoleCustomer}
)

const proofURL = "https://files.example.com/proofs/receipt.jpg"
