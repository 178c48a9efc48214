package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopkite/shopify-connect/internal/aws"
)

// Notifier hands a fresh credential to downstream reconciliation, exactly
// once per successful completion from this process's point of view; the
// channel itself is at-least-once.
type Notifier interface {
	NotifyAuthComplete(ctx context.Context, shopDomain, accessToken string) error
}

// Publisher sends envelopes to SNS topics. It is both the webhook fan-out
// and the topic binding of the completion notification.
type Publisher struct {
	client aws.SNSAPI
	logger zerolog.Logger
}

func NewPublisher(client aws.SNSAPI, logger zerolog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// Publish sends env to topicARN as JSON.
func (p *Publisher) Publish(ctx context.Context, topicARN string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	message := string(body)

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &topicARN,
		Message:  &message,
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", env.Event, err)
	}
	if out.MessageId != nil {
		p.logger.Info().Str("shop", env.ShopDomain).Str("event", string(env.Event)).Str("messageId", *out.MessageId).Msg("event published")
	}
	return nil
}

// TopicNotifier binds the completion notification to an SNS topic.
type TopicNotifier struct {
	publisher *Publisher
	topicARN  string
}

func NewTopicNotifier(publisher *Publisher, topicARN string) *TopicNotifier {
	return &TopicNotifier{publisher: publisher, topicARN: topicARN}
}

func (n *TopicNotifier) NotifyAuthComplete(ctx context.Context, shopDomain, accessToken string) error {
	return n.publisher.Publish(ctx, n.topicARN, Envelope{
		ShopDomain:  shopDomain,
		Event:       TopicAuthComplete,
		Data:        json.RawMessage("null"),
		AccessToken: accessToken,
	})
}

// WorkflowNotifier binds the completion notification to a Step Functions
// state machine that runs the post-install reconciliation.
type WorkflowNotifier struct {
	client          aws.SFNAPI
	stateMachineARN string
	logger          zerolog.Logger
}

func NewWorkflowNotifier(client aws.SFNAPI, stateMachineARN string, logger zerolog.Logger) *WorkflowNotifier {
	return &WorkflowNotifier{client: client, stateMachineARN: stateMachineARN, logger: logger}
}

// WorkflowInput is the state machine input for a completed install.
type WorkflowInput struct {
	AccessToken string `json:"accessToken"`
	ShopDomain  string `json:"shopDomain"`
}

func (n *WorkflowNotifier) NotifyAuthComplete(ctx context.Context, shopDomain, accessToken string) error {
	input, err := json.Marshal(WorkflowInput{AccessToken: accessToken, ShopDomain: shopDomain})
	if err != nil {
		return fmt.Errorf("events: marshal workflow input: %w", err)
	}
	inputStr := string(input)
	name := executionName(shopDomain)

	out, err := n.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: &n.stateMachineARN,
		Input:           &inputStr,
		Name:            &name,
	})
	if err != nil {
		return fmt.Errorf("events: start workflow: %w", err)
	}
	if out.ExecutionArn != nil {
		n.logger.Info().Str("shop", shopDomain).Str("executionArn", *out.ExecutionArn).Msg("reconciliation workflow started")
	}
	return nil
}

// executionName builds a unique, SFN-legal execution name from the shop
// domain (dots are not allowed).
func executionName(shopDomain string) string {
	safe := strings.ReplaceAll(shopDomain, ".", "-")
	return safe + "-" + uuid.NewString()
}
