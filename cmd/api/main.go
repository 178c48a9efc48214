package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/shopkite/shopify-connect/internal/authflow"
	awsclients "github.com/shopkite/shopify-connect/internal/aws"
	"github.com/shopkite/shopify-connect/internal/config"
	connectevents "github.com/shopkite/shopify-connect/internal/events"
	"github.com/shopkite/shopify-connect/internal/exchange"
	"github.com/shopkite/shopify-connect/internal/handlers"
	"github.com/shopkite/shopify-connect/internal/identity"
	"github.com/shopkite/shopify-connect/internal/monitoring"
	"github.com/shopkite/shopify-connect/internal/nonce"
	"github.com/shopkite/shopify-connect/internal/shops"
)

const clockTolerance = 600 * time.Second

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterAuthRoutes(r, cfg)
	handlers.RegisterWebhookRoutes(r, cfg)

	return r
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	clients, err := awsclients.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init aws clients")
	}

	nonces, err := nonce.New(cfg.JWTSecret, cfg.JWTIssuer, clockTolerance, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init nonce service")
	}

	publisher := connectevents.NewPublisher(clients.SNS, logger)

	// Prefer the workflow binding when both are configured.
	var notifier connectevents.Notifier
	if cfg.AuthCompleteStateMachineARN != "" {
		notifier = connectevents.NewWorkflowNotifier(clients.StepFunctions, cfg.AuthCompleteStateMachineARN, logger)
	} else {
		notifier = connectevents.NewTopicNotifier(publisher, cfg.AuthCompleteTopicARN)
	}

	// A deployment without a shops table skips installation persistence.
	var store *shops.Store
	if cfg.ShopsTable != "" {
		store = shops.NewStore(clients.DynamoDB, cfg.ShopsTable)
	}

	orchestrator := authflow.NewOrchestrator(
		nonces,
		exchange.NewClient(http.DefaultClient, cfg.APIKey, cfg.APISecret, logger),
		identity.NewResolver(clients.Cognito, cfg.UserPoolID, logger),
		store,
		notifier,
		cfg.APISecret,
		logger,
	)

	var metrics *monitoring.Recorder
	if cfg.MetricsNamespace != "" {
		metrics = monitoring.NewRecorder(clients.CloudWatch, cfg.MetricsNamespace, logger)
	}

	r := setupRouter(handlers.HandlerConfig{
		Config:       cfg,
		Orchestrator: orchestrator,
		Nonces:       nonces,
		Publisher:    publisher,
		Metrics:      metrics,
		Logger:       logger,
	})

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		logger.Info().Str("addr", addr).Msg("running local server")
		if err := r.Run(addr); err != nil {
			logger.Fatal().Err(err).Msg("failed to run local server")
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
