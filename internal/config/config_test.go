package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "signing-key")
	t.Setenv("SHOPIFY_API_KEY", "api-key")
	t.Setenv("SHOPIFY_API_SECRET", "api-secret")
	t.Setenv("SHOPIFY_SCOPE", "read_products:write_products")
	t.Setenv("USER_POOL_ID", "us-east-1_abc123")
	t.Setenv("AUTH_COMPLETE_TOPIC_ARN", "arn:aws:sns:us-east-1:123:auth-complete")
}

func TestLoad_AllValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_ISS", "shopify-connect")
	t.Setenv("SHOPS_TABLE", "shops")
	t.Setenv("METRICS_NAMESPACE", "ShopifyConnect")
	t.Setenv("WEBHOOK_ROUTES", `[{"topic":"shop/update","topicArn":"arn:aws:sns:us-east-1:123:shop-update"}]`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "signing-key", cfg.JWTSecret)
	assert.Equal(t, "shopify-connect", cfg.JWTIssuer)
	assert.Equal(t, "api-key", cfg.APIKey)
	assert.Equal(t, "api-secret", cfg.APISecret)
	assert.Equal(t, "read_products:write_products", cfg.Scope)
	assert.Equal(t, "us-east-1_abc123", cfg.UserPoolID)
	assert.Equal(t, "shops", cfg.ShopsTable)
	assert.Equal(t, "ShopifyConnect", cfg.MetricsNamespace)
	require.Len(t, cfg.WebhookRoutes, 1)
	assert.Equal(t, WebhookRoute{Topic: "shop/update", TopicARN: "arn:aws:sns:us-east-1:123:shop-update"}, cfg.WebhookRoutes[0])
}

func TestLoad_MissingRequired(t *testing.T) {
	keys := []string{"JWT_SECRET", "SHOPIFY_API_KEY", "SHOPIFY_API_SECRET", "SHOPIFY_SCOPE", "USER_POOL_ID"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "")

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RequiresANotificationBinding(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_COMPLETE_TOPIC_ARN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_COMPLETE_TOPIC_ARN or AUTH_COMPLETE_STATE_MACHINE_ARN")
}

func TestLoad_StateMachineBindingAlone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_COMPLETE_TOPIC_ARN", "")
	t.Setenv("AUTH_COMPLETE_STATE_MACHINE_ARN", "arn:aws:states:us-east-1:123:stateMachine:reconcile")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:states:us-east-1:123:stateMachine:reconcile", cfg.AuthCompleteStateMachineARN)
}

func TestLoad_MalformedWebhookRoutes(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WEBHOOK_ROUTES", "not-json")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEBHOOK_ROUTES")
}

func TestLoad_RouteMissingTopicARN(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WEBHOOK_ROUTES", `[{"topic":"shop/update"}]`)

	_, err := Load()
	assert.Error(t, err)
}
