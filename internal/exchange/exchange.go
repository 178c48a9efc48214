// Package exchange trades the one-time OAuth grant code for a durable
// access token at the shop's token endpoint.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Doer is the outbound HTTP capability, satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrMalformedResponse means the platform answered 2xx without an access token.
var ErrMalformedResponse = errors.New("exchange: response has no access token")

// RejectedError carries the platform's own error message for a refused
// exchange. It is logged, never surfaced to the caller.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("exchange: rejected by platform: %s", e.Reason)
}

// Client performs the token exchange. No retry: a failed exchange fails the
// whole completion.
type Client struct {
	httpClient   Doer
	clientID     string
	clientSecret string
	logger       zerolog.Logger
}

func NewClient(httpClient Doer, clientID, clientSecret string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient:   httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
}

type tokenResponse struct {
	Error            string `json:"error,omitempty"`
	Errors           string `json:"errors,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	AccessToken      string `json:"access_token,omitempty"`
	Scope            string `json:"scope,omitempty"`
}

// Exchange posts the grant code to https://{shop}/admin/oauth/access_token
// and returns the access token.
func (c *Client) Exchange(ctx context.Context, shopDomain, code string) (string, error) {
	payload, err := json.Marshal(tokenRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Code:         code,
	})
	if err != nil {
		return "", fmt.Errorf("exchange: marshal request: %w", err)
	}

	url := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("exchange: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange: post: %w", err)
	}
	defer resp.Body.Close()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("exchange: decode response: %w", err)
	}

	if body.Error != "" || body.Errors != "" || body.ErrorDescription != "" {
		reason := body.ErrorDescription
		if reason == "" {
			reason = body.Error
		}
		if reason == "" {
			reason = body.Errors
		}
		c.logger.Error().Str("shop", shopDomain).Str("reason", reason).Msg("token exchange rejected")
		return "", &RejectedError{Reason: reason}
	}

	if body.AccessToken == "" {
		c.logger.Error().Str("shop", shopDomain).Msg("token exchange response missing access_token")
		return "", ErrMalformedResponse
	}

	return body.AccessToken, nil
}
