package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEBHOOK_CLAIM_TTL_SECONDS", "")
	t.Setenv("QUEUE_CACHE_TTL_SECONDS", "")
	t.Setenv("JAEGER_ENDPOINT", "")

	cfg := Load()

	assert.Equal(t, 120, cfg.Business.WebhookClaimTTLSeconds)
	assert.Equal(t, 300, cfg.Business.QueueCacheTTLSeconds)
	assert.Equal(t, ObservabilityConfig{JaegerEndpoint: "http://localhost:14268/api/traces"}, cfg.Observ)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("WEBHOOK_CLAIM_TTL_SECONDS", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://tunely.app,https://admin.tunely.app")
	t.Setenv("JAEGER_ENDPOINT", "http://jaeger:14268/api/traces")

	cfg := Load()

	assert.Equal(t, 30, cfg.Business.WebhookClaimTTLSeconds)
	assert.Equal(t, []string{"https://tunely.app", "https://admin.tunely.app"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ObservabilityConfig{JaegerEndpoint: "http://jaeger:14268/api/traces"}, cfg.Observ)
}
