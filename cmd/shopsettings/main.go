package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	awsclients "github.com/shopkite/shopify-connect/internal/aws"
	connectevents "github.com/shopkite/shopify-connect/internal/events"
	"github.com/shopkite/shopify-connect/internal/settings"
	"github.com/shopkite/shopify-connect/internal/shops"
)

// Task fetches shop settings after install and merges them into the
// installation record. It is a Step Functions task: the input passes through
// unchanged so later states can reuse it.
type Task struct {
	fetcher *settings.Fetcher
	store   *shops.Store
	logger  zerolog.Logger
}

func (t *Task) Handle(ctx context.Context, input connectevents.WorkflowInput) (connectevents.WorkflowInput, error) {
	if input.ShopDomain == "" || input.AccessToken == "" {
		return input, fmt.Errorf("workflow input missing shopDomain or accessToken")
	}

	fields, err := t.fetcher.Fetch(ctx, input.ShopDomain, input.AccessToken)
	if err != nil {
		t.logger.Error().Err(err).Str("shop", input.ShopDomain).Msg("settings fetch failed")
		return input, err
	}

	if err := t.store.MergeProfileFields(ctx, input.ShopDomain, fields); err != nil {
		t.logger.Error().Err(err).Str("shop", input.ShopDomain).Msg("settings merge failed")
		return input, err
	}

	t.logger.Info().Str("shop", input.ShopDomain).Int("fields", len(fields)).Msg("shop settings merged")
	return input, nil
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	table := os.Getenv("SHOPS_TABLE")
	if table == "" {
		logger.Fatal().Msg("SHOPS_TABLE environment variable is required")
	}

	clients, err := awsclients.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init aws clients")
	}

	task := &Task{
		fetcher: settings.NewFetcher(http.DefaultClient, logger),
		store:   shops.NewStore(clients.DynamoDB, table),
		logger:  logger,
	}
	lambda.Start(task.Handle)
}
