// Package events defines the domain event envelope exchanged over SNS and
// the downstream notification bindings for completed installs.
package events

import (
	"encoding/json"
	"fmt"
)

// Topic is the closed vocabulary of event names. Webhook deliveries reuse
// the platform's own topic strings.
type Topic string

const (
	TopicAuthComplete    Topic = "app/auth_complete"
	TopicAppInstalled    Topic = "app/installed"
	TopicAppUninstalled  Topic = "app/uninstalled"
	TopicShopUpdate      Topic = "shop/update"
	TopicOrdersCreate    Topic = "orders/create"
	TopicOrdersPaid      Topic = "orders/paid"
	TopicCustomersCreate Topic = "customers/create"
)

var knownTopics = map[Topic]struct{}{
	TopicAuthComplete:    {},
	TopicAppInstalled:    {},
	TopicAppUninstalled:  {},
	TopicShopUpdate:      {},
	TopicOrdersCreate:    {},
	TopicOrdersPaid:      {},
	TopicCustomersCreate: {},
}

// Envelope is the message shape published for every domain event. Data is
// null for pure signals and carries the webhook payload otherwise. The
// access token travels only on the completion event.
type Envelope struct {
	ShopDomain  string          `json:"shopDomain"`
	Event       Topic           `json:"event"`
	Data        json.RawMessage `json:"data"`
	AccessToken string          `json:"accessToken,omitempty"`
}

// ParseEnvelope decodes and validates a raw message. Unknown event names and
// missing shop domains are rejected here, in one place, instead of turning
// into nil fields downstream.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("events: malformed envelope: %w", err)
	}
	if env.ShopDomain == "" {
		return Envelope{}, fmt.Errorf("events: envelope missing shopDomain")
	}
	if _, ok := knownTopics[env.Event]; !ok {
		return Envelope{}, fmt.Errorf("events: unknown event %q", env.Event)
	}
	return env, nil
}

// DataMap decodes the payload into a generic map. Signals (null data) yield
// an empty map.
func (e Envelope) DataMap() (map[string]interface{}, error) {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return map[string]interface{}{}, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(e.Data, &m); err != nil {
		return nil, fmt.Errorf("events: decode %s data: %w", e.Event, err)
	}
	return m, nil
}
