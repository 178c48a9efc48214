// Package authflow runs the OAuth completion sequence: validate the signed
// callback, exchange the grant code, resolve the owner identity, persist
// installation state and notify downstream reconciliation.
package authflow

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shopkite/shopify-connect/internal/exchange"
	"github.com/shopkite/shopify-connect/internal/identity"
	"github.com/shopkite/shopify-connect/internal/integrity"
	"github.com/shopkite/shopify-connect/internal/nonce"
	"github.com/shopkite/shopify-connect/internal/shops"

	connectevents "github.com/shopkite/shopify-connect/internal/events"
)

// shopDomainPattern is the platform's requirement for shop domains.
var shopDomainPattern = regexp.MustCompile(`(?i)^[a-z][a-z0-9\-]*\.myshopify\.com$`)

const (
	digestField   = "hmac"
	tokenValidity = 600 * time.Second
)

// CompletionRequest is the inbound callback body.
type CompletionRequest struct {
	Token  string            `json:"token" validate:"required"`
	Params map[string]string `json:"params" validate:"required"`
}

// CompletionResult is the success response body. ChargeAuthorizationURL is
// always null today; the field is kept so clients have a stable shape when
// billing is added.
type CompletionResult struct {
	ChargeAuthorizationURL *string `json:"chargeAuthorizationUrl"`
	Token                  string  `json:"token"`
}

// RejectionError marks a caller-input failure. It carries a human-readable
// reason and maps to a 400; everything else maps to an opaque 500.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "auth completion rejected: " + e.Reason
}

// Orchestrator composes the completion steps. The shop store is nil when no
// table is configured; that deployment mode skips persistence.
type Orchestrator struct {
	nonces    *nonce.Service
	exchanger *exchange.Client
	resolver  *identity.Resolver
	store     *shops.Store
	notifier  connectevents.Notifier
	apiSecret string
	logger    zerolog.Logger
	nowFunc   func() time.Time
	nonceFunc func() string
}

func NewOrchestrator(
	nonces *nonce.Service,
	exchanger *exchange.Client,
	resolver *identity.Resolver,
	store *shops.Store,
	notifier connectevents.Notifier,
	apiSecret string,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		nonces:    nonces,
		exchanger: exchanger,
		resolver:  resolver,
		store:     store,
		notifier:  notifier,
		apiSecret: apiSecret,
		logger:    logger,
		nowFunc:   time.Now,
		nonceFunc: uuid.NewString,
	}
}

// Complete runs the full sequence. A *RejectionError return means the
// caller's input failed validation; any other error is an internal failure
// whose detail must not reach the caller.
func (o *Orchestrator) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}
	shopDomain := req.Params["shop"]

	accessToken, err := o.exchanger.Exchange(ctx, shopDomain, req.Params["code"])
	if err != nil {
		return nil, fmt.Errorf("complete %s: %w", shopDomain, err)
	}

	now := o.nowFunc()

	// Identity resolution and installation persistence are independent;
	// both must finish before downstream is notified.
	var userID string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := o.resolver.ResolveOrCreate(gctx, shopDomain)
		if err != nil {
			return err
		}
		userID = id
		return nil
	})
	if o.store != nil {
		g.Go(func() error {
			return o.store.UpsertOnComplete(gctx, shopDomain, accessToken, now)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("complete %s: %w", shopDomain, err)
	}

	if err := o.notifier.NotifyAuthComplete(ctx, shopDomain, accessToken); err != nil {
		return nil, fmt.Errorf("complete %s: %w", shopDomain, err)
	}

	sessionToken, err := o.nonces.Issue(userID, o.nonceFunc(), now, tokenValidity)
	if err != nil {
		return nil, fmt.Errorf("complete %s: issue session token: %w", shopDomain, err)
	}

	o.logger.Info().Str("shop", shopDomain).Str("user", userID).Msg("auth completion finished")
	return &CompletionResult{
		ChargeAuthorizationURL: nil,
		Token:                  sessionToken,
	}, nil
}

func (o *Orchestrator) validate(req CompletionRequest) error {
	if req.Token == "" {
		return &RejectionError{Reason: "'token' is missing"}
	}
	if len(req.Params) == 0 {
		return &RejectionError{Reason: "'params' is missing"}
	}

	shopDomain := req.Params["shop"]
	state := req.Params["state"]

	if !o.nonces.Verify(req.Token, shopDomain, state) {
		return &RejectionError{Reason: "invalid 'token'"}
	}
	if !shopDomainPattern.MatchString(shopDomain) {
		o.logger.Info().Str("shop", shopDomain).Msg("shop domain validation failed")
		return &RejectionError{Reason: "invalid 'token'"}
	}
	if !integrity.VerifyParams(req.Params, digestField, o.apiSecret) {
		o.logger.Info().Str("shop", shopDomain).Msg("hmac validation failed")
		return &RejectionError{Reason: "invalid 'token'"}
	}
	return nil
}
