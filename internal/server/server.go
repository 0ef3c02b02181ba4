package server

import (
	"context"
	"net/http"
	"storefront-fulfillment/internal/handler"
	appmiddleware "storefront-fulfillment/internal/middleware"
	"storefront-fulfillment/internal/model"
	"storefront-fulfillment/internal/service"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Services struct {
	Fulfillment   service.FulfillmentService
	Inventory     service.InventoryLedger
	Loyalty       service.LoyaltyLedger
	Coupons       service.CouponTracker
	Activity      service.ActivityAggregator
	Subscriptions service.SubscriptionStore
	Notifications service.NotificationService
}

type Options struct {
	JWTSecret      string
	VAPIDPublicKey string
	// PushRateLimit is requests per second per caller on the /api/push routes. Zero disables limiting.
	PushRateLimit float64
	PushRateBurst int
}

type Server struct {
	echo                *echo.Echo
	opts                Options
	paymentHandler      *handler.PaymentHandler
	orderHandler        *handler.OrderHandler
	pushHandler         *handler.PushHandler
	notificationHandler *handler.NotificationHandler
	customerHandler     *handler.CustomerHandler
}

func NewServer(services Services, opts Options, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(appmiddleware.PrometheusMiddleware())

	s := &Server{
		echo:                e,
		opts:                opts,
		paymentHandler:      handler.NewPaymentHandler(services.Fulfillment),
		orderHandler:        handler.NewOrderHandler(services.Fulfillment, services.Inventory),
		pushHandler:         handler.NewPushHandler(services.Subscriptions, services.Notifications, opts.VAPIDPublicKey),
		notificationHandler: handler.NewNotificationHandler(services.Notifications),
		customerHandler:     handler.NewCustomerHandler(services.Loyalty, services.Coupons, services.Activity),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	api.GET("/push/public-key", s.pushHandler.PublicKey)

	auth := appmiddleware.AuthMiddleware(s.opts.JWTSecret)
	staff := appmiddleware.RequireRole(model.RoleAdmin, model.RoleRetailManager)
	admin := appmiddleware.RequireRole(model.RoleAdmin)

	// -------- payments / orders --------
	payments := api.Group("/payments", auth)
	payments.PATCH("/:orderId/approve", s.paymentHandler.ReviewPayment, staff)
	payments.POST("/:orderId/proof", s.paymentHandler.SubmitProof)

	orders := api.Group("/orders", auth)
	orders.GET("/:orderId", s.orderHandler.GetOrder)
	orders.PATCH("/:orderId/status", s.orderHandler.UpdateStatus, staff)

	api.GET("/inventory/:productId/logs", s.orderHandler.InventoryLogs, auth, staff)

	// -------- push / notifications --------
	push := api.Group("/push", auth, s.pushRateLimiter())
	push.POST("/subscribe", s.pushHandler.Subscribe)
	push.POST("/unsubscribe", s.pushHandler.Unsubscribe)
	push.POST("/broadcast", s.pushHandler.Broadcast, admin)

	notifications := api.Group("/notifications", auth)
	notifications.GET("", s.notificationHandler.List)
	notifications.PATCH("/read", s.notificationHandler.MarkRead)

	// -------- customer --------
	api.GET("/loyalty", s.customerHandler.LoyaltyAccount, auth)
	api.POST("/loyalty/preview", s.customerHandler.LoyaltyPreview, auth)
	api.POST("/coupons/validate", s.customerHandler.ValidateCoupon, auth)
	api.GET("/activity", s.customerHandler.Activity, auth)
	api.POST("/activity/login", s.customerHandler.RecordLogin, auth)
}

func (s *Server) pushRateLimiter() echo.MiddlewareFunc {
	if s.opts.PushRateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	burst := s.opts.PushRateBurst
	if burst <= 0 {
		burst = 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.opts.PushRateLimit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if user := appmiddleware.CurrentUser(c); user.ID != "" {
				return user.ID, nil
			}
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "could not identify caller")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
