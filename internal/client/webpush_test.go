package client

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-fulfillment/internal/config"
	"storefront-fulfillment/internal/model"
)

type pushRequest struct {
	path          string
	authorization string
	urgency       string
	encoding      string
}

type pushServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []pushRequest
}

// newPushServer answers 410 on /gone and 201 everywhere else.
func newPushServer(t *testing.T) *pushServer {
	t.Helper()

	ps := &pushServer{}
	ps.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		ps.requests = append(ps.requests, pushRequest{
			path:          r.URL.Path,
			authorization: r.Header.Get("Authorization"),
			urgency:       r.Header.Get("Urgency"),
			encoding:      r.Header.Get("Content-Encoding"),
		})
		ps.mu.Unlock()

		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(ps.Close)
	return ps
}

func (ps *pushServer) last() pushRequest {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.requests[len(ps.requests)-1]
}

func testSubscription(t *testing.T, endpoint string) *model.Subscription {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return &model.Subscription{
		Endpoint: endpoint,
		UserID:   "user-1",
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func newTestPusher(t *testing.T, ps *pushServer, subscriber string) Pusher {
	t.Helper()

	private, public, err := GenerateVAPIDKeys()
	require.NoError(t, err)

	setup := InitPush(config.Push{
		VAPIDPublicKey:  public,
		VAPIDPrivateKey: private,
		Subscriber:      subscriber,
		TTL:             60,
	})
	require.True(t, setup.Configured)

	pusher := setup.Pusher.(*webPushClient)
	pusher.httpClient = ps.Client()
	return pusher
}

func vapidClaims(t *testing.T, header string) jwt.MapClaims {
	t.Helper()

	require.True(t, strings.HasPrefix(header, "vapid t="), header)
	token, _, _ := strings.Cut(strings.TrimPrefix(header, "vapid t="), ",")

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	return claims
}

func TestWebPushDeliversAndReportsStatus(t *testing.T) {
	ps := newPushServer(t)
	pusher := newTestPusher(t, ps, "admin@example.com")
	ctx := context.Background()

	status, err := pusher.Push(ctx, testSubscription(t, ps.URL+"/live"), []byte(`{"title":"hi"}`), "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	req := ps.last()
	assert.Equal(t, "/live", req.path)
	assert.Equal(t, "aes128gcm", req.encoding)
	assert.Equal(t, string(UrgencyNormal), req.urgency)

	status, err = pusher.Push(ctx, testSubscription(t, ps.URL+"/gone"), []byte(`{"title":"hi"}`), UrgencyHigh)
	require.NoError(t, err)
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, string(UrgencyHigh), ps.last().urgency)
}

func TestWebPushVAPIDClaims(t *testing.T) {
	tests := []struct {
		name       string
		subscriber string
		want       string
	}{
		{"bare address", "admin@example.com", "mailto:admin@example.com"},
		{"mailto address", "mailto:ops@example.com", "mailto:ops@example.com"},
		{"https contact", "https://shop.example.com/contact", "https://shop.example.com/contact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := newPushServer(t)
			pusher := newTestPusher(t, ps, tt.subscriber)

			_, err := pusher.Push(context.Background(), testSubscription(t, ps.URL+"/live"), []byte(`{}`), UrgencyLow)
			require.NoError(t, err)

			claims := vapidClaims(t, ps.last().authorization)
			assert.Equal(t, tt.want, claims["sub"])
			assert.Equal(t, ps.URL, claims["aud"])
		})
	}
}

func TestWebPushUnreachable(t *testing.T) {
	ps := newPushServer(t)
	pusher := newTestPusher(t, ps, "admin@example.com")
	endpoint := ps.URL + "/live"
	ps.Close()

	_, err := pusher.Push(context.Background(), testSubscription(t, endpoint), []byte(`{}`), "")
	assert.Error(t, err)
}
