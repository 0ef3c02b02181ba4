package config

import (
	"testing"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{
		Environment: map[string]string{"JWT_SECRET": "secret"},
	})
	require.NoError(t, err)

	assert.True(t, cfg.Environment.IsDevelopment())
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "10", cfg.Loyalty.PointsPerAmount.String())
	assert.Equal(t, "50", cfg.Loyalty.MaxRedeemPercent.String())
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.KafkaBrokers)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestParseOverrides(t *testing.T) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{
		Environment: map[string]string{
			"JWT_SECRET":                "secret",
			"ENVIRONMENT":               "production",
			"LOYALTY_POINTS_PER_AMOUNT": "2.5",
			"EVENTS_BROKER":             "kafka",
			"EVENTS_KAFKA_BROKERS":      "k1:9092,k2:9092",
			"PUSH_VAPID_PUBLIC_KEY":     "pub",
		},
	})
	require.NoError(t, err)

	assert.False(t, cfg.Environment.IsDevelopment())
	assert.Equal(t, "2.5", cfg.Loyalty.PointsPerAmount.String())
	assert.Equal(t, "kafka", cfg.Events.Broker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, "pub", cfg.Push.VAPIDPublicKey)
}

func TestParseRequiresJWTSecret(t *testing.T) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	assert.Error(t, err)
}
