// Package identity provisions shop owner users in the Cognito user pool and
// carries the pool's custom-auth lifecycle triggers.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/rs/zerolog"

	"github.com/shopkite/shopify-connect/internal/aws"
)

const shopDomainSuffix = ".myshopify.com"

// DeriveEmail maps a shop domain to the owner-style address used as the
// username: example.myshopify.com -> example@myshopify.com.
func DeriveEmail(shopDomain string) string {
	return strings.TrimSuffix(shopDomain, shopDomainSuffix) + "@myshopify.com"
}

// CreateOutcome is the explicit result of a creation attempt: either a new
// user was created, or one already existed for the derived email.
type CreateOutcome struct {
	Created  bool
	Username string
}

// Resolver implements create-or-fetch against the user pool.
type Resolver struct {
	client     aws.CognitoAPI
	userPoolID string
	logger     zerolog.Logger
}

func NewResolver(client aws.CognitoAPI, userPoolID string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		client:     client,
		userPoolID: userPoolID,
		logger:     logger,
	}
}

// ResolveOrCreate returns the username of the identity for shopDomain,
// creating it when absent. Creation is attempted first so two concurrent
// installs for the same domain cannot both pass a prior existence check; the
// pool itself arbitrates, and the loser falls back to a fetch.
func (r *Resolver) ResolveOrCreate(ctx context.Context, shopDomain string) (string, error) {
	outcome, err := r.create(ctx, shopDomain)
	if err != nil {
		return "", err
	}
	if outcome.Created {
		return outcome.Username, nil
	}

	email := DeriveEmail(shopDomain)
	out, err := r.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: &r.userPoolID,
		Username:   &email,
	})
	if err != nil {
		return "", fmt.Errorf("identity: get existing user: %w", err)
	}
	if out.Username == nil || *out.Username == "" {
		return "", errors.New("identity: existing user has no username")
	}
	return *out.Username, nil
}

func (r *Resolver) create(ctx context.Context, shopDomain string) (CreateOutcome, error) {
	email := DeriveEmail(shopDomain)

	out, err := r.client.AdminCreateUser(ctx, &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId:    &r.userPoolID,
		Username:      &email,
		MessageAction: cognitotypes.MessageActionTypeSuppress,
		UserAttributes: []cognitotypes.AttributeType{
			{Name: strptr("email"), Value: &email},
			{Name: strptr("name"), Value: &shopDomain},
			{Name: strptr("website"), Value: &shopDomain},
		},
	})
	if err != nil {
		var exists *cognitotypes.UsernameExistsException
		if errors.As(err, &exists) {
			r.logger.Info().Str("shop", shopDomain).Msg("identity already exists, fetching")
			return CreateOutcome{Created: false}, nil
		}
		return CreateOutcome{}, fmt.Errorf("identity: create user: %w", err)
	}

	if out.User == nil || out.User.Username == nil || *out.User.Username == "" {
		return CreateOutcome{}, errors.New("identity: created user has no username")
	}
	return CreateOutcome{Created: true, Username: *out.User.Username}, nil
}

func strptr(s string) *string { return &s }
