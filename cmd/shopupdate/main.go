package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	awsclients "github.com/shopkite/shopify-connect/internal/aws"
	"github.com/shopkite/shopify-connect/internal/shops"
)

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

	processor := NewProcessor(shops.NewStore(clients.DynamoDB, table), logger)
	lambda.Start(processor.Handle)
}
