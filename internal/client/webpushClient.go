package client

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"storefront-fulfillment/internal/config"
	"storefront-fulfillment/internal/model"
)

type Urgency string

const (
	UrgencyLow    Urgency = Urgency(webpush.UrgencyLow)
	UrgencyNormal Urgency = Urgency(webpush.UrgencyNormal)
	UrgencyHigh   Urgency = Urgency(webpush.UrgencyHigh)
)

// Pusher delivers one encrypted payload to one subscription and reports the push service status code.
// A non-nil error means the request never got a response.
type Pusher interface {
	Push(ctx context.Context, sub *model.Subscription, payload []byte, urgency Urgency) (int, error)
}

// PushSetup is resolved once at start-up. Configured is false when the VAPID key pair is absent,
// in which case Pusher is nil and callers skip delivery.
type PushSetup struct {
	Pusher     Pusher
	Configured bool
}

func InitPush(cfg config.Push) PushSetup {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		return PushSetup{}
	}

	return PushSetup{
		Pusher: &webPushClient{
			httpClient: &http.Client{
				Timeout: 15 * time.Second,
			},
			publicKey:  cfg.VAPIDPublicKey,
			privateKey: cfg.VAPIDPrivateKey,
			subscriber: vapidSubscriber(cfg.Subscriber),
			ttl:        cfg.TTL,
		},
		Configured: true,
	}
}

// vapidSubscriber strips a leading "mailto:"; the library prefixes every non-https contact itself.
func vapidSubscriber(subscriber string) string {
	return strings.TrimPrefix(strings.TrimSpace(subscriber), "mailto:")
}

type webPushClient struct {
	httpClient *http.Client
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
}

func (c *webPushClient) Push(ctx context.Context, sub *model.Subscription, payload []byte, urgency Urgency) (int, error) {
	if urgency == "" {
		urgency = UrgencyNormal
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      c.httpClient,
		Subscriber:      c.subscriber,
		TTL:             c.ttl,
		Urgency:         webpush.Urgency(urgency),
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// GenerateVAPIDKeys returns a fresh (private, public) key pair.
func GenerateVAPIDKeys() (string, string, error) {
	return webpush.GenerateVAPIDKeys()
}
