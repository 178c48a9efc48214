package config

import (
	"encoding/json"
	"fmt"
	"os"

	validatorv10 "github.com/go-playground/validator/v10"
)

// WebhookRoute maps an inbound webhook topic to the SNS topic its events are
// published to.
type WebhookRoute struct {
	Topic    string `json:"topic" validate:"required"`
	TopicARN string `json:"topicArn" validate:"required"`
}

// Config carries every value the functions need. It is loaded once in main
// and passed into constructors; components never read the environment
// themselves.
type Config struct {
	// Signing secret and issuer for the nonce tokens.
	JWTSecret string `validate:"required"`
	JWTIssuer string

	// Shopify app credentials. APISecret doubles as the webhook shared secret.
	APIKey    string `validate:"required"`
	APISecret string `validate:"required"`
	Scope     string `validate:"required"`

	// Cognito user pool holding shop owner identities.
	UserPoolID string `validate:"required"`

	// Shops table is optional: a deployment without one skips installation
	// persistence.
	ShopsTable string

	// Exactly one downstream binding for the auth-complete notification.
	AuthCompleteTopicARN        string
	AuthCompleteStateMachineARN string

	WebhookRoutes []WebhookRoute `validate:"dive"`

	// MetricsNamespace is optional; empty disables CloudWatch counters.
	MetricsNamespace string
}

// Load reads configuration from the environment and validates it.
// A missing required value is a fatal configuration error.
func Load() (*Config, error) {
	cfg := &Config{
		JWTSecret:                   os.Getenv("JWT_SECRET"),
		JWTIssuer:                   os.Getenv("JWT_ISS"),
		APIKey:                      os.Getenv("SHOPIFY_API_KEY"),
		APISecret:                   os.Getenv("SHOPIFY_API_SECRET"),
		Scope:                       os.Getenv("SHOPIFY_SCOPE"),
		UserPoolID:                  os.Getenv("USER_POOL_ID"),
		ShopsTable:                  os.Getenv("SHOPS_TABLE"),
		AuthCompleteTopicARN:        os.Getenv("AUTH_COMPLETE_TOPIC_ARN"),
		AuthCompleteStateMachineARN: os.Getenv("AUTH_COMPLETE_STATE_MACHINE_ARN"),
		MetricsNamespace:            os.Getenv("METRICS_NAMESPACE"),
	}

	if routes := os.Getenv("WEBHOOK_ROUTES"); routes != "" {
		if err := json.Unmarshal([]byte(routes), &cfg.WebhookRoutes); err != nil {
			return nil, fmt.Errorf("parse WEBHOOK_ROUTES: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and the notification binding.
func (c *Config) Validate() error {
	v := validatorv10.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if c.AuthCompleteTopicARN == "" && c.AuthCompleteStateMachineARN == "" {
		return fmt.Errorf("config validation: one of AUTH_COMPLETE_TOPIC_ARN or AUTH_COMPLETE_STATE_MACHINE_ARN must be set")
	}
	return nil
}
