package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopkite/shopify-connect/internal/events"
	"github.com/shopkite/shopify-connect/internal/integrity"
	"github.com/shopkite/shopify-connect/internal/monitoring"
)

// Webhook delivery headers set by the platform.
const (
	headerHmac       = "X-Shopify-Hmac-Sha256"
	headerShopDomain = "X-Shopify-Shop-Domain"
	headerTopic      = "X-Shopify-Topic"
)

// RegisterWebhookRoutes registers the signature-checked webhook receiver.
// Verified deliveries are republished as domain events on the SNS topics
// configured per webhook topic; a topic with no route is acknowledged and
// dropped.
func RegisterWebhookRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.POST("/webhooks/shopify", func(c *gin.Context) {
		noCache(c)
		ctx := c.Request.Context()

		body, err := c.GetRawData()
		if err != nil || len(body) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": 400, "message": "body is empty"})
			return
		}

		digest := c.GetHeader(headerHmac)
		shopDomain := c.GetHeader(headerShopDomain)
		topic := c.GetHeader(headerTopic)

		if !integrity.VerifyBody(cfg.Config.APISecret, body, digest) {
			cfg.Logger.Info().Str("shop", shopDomain).Str("topic", topic).Msg("webhook hmac validation failed")
			cfg.Metrics.Count(ctx, monitoring.MetricWebhookRejected, map[string]string{"Topic": topic})
			c.JSON(http.StatusBadRequest, gin.H{"error": 400, "message": headerHmac + " header validation failed"})
			return
		}

		cfg.Metrics.Count(ctx, monitoring.MetricWebhookReceived, map[string]string{"Topic": topic})

		routed := false
		for _, route := range cfg.Config.WebhookRoutes {
			if route.Topic != topic {
				continue
			}
			routed = true
			env := events.Envelope{
				ShopDomain: shopDomain,
				Event:      events.Topic(topic),
				Data:       body,
			}
			if err := cfg.Publisher.Publish(ctx, route.TopicARN, env); err != nil {
				cfg.Logger.Error().Err(err).Str("topic", topic).Msg("webhook publish failed")
				c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
				return
			}
		}
		if !routed {
			cfg.Logger.Info().Str("topic", topic).Msg("no route configured for webhook topic")
		}

		c.Status(http.StatusNoContent)
	})
}
