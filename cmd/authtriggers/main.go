package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/shopkite/shopify-connect/internal/identity"
)

// One Lambda serves every user pool trigger; Cognito tells us which via
// triggerSource, so the raw event is decoded twice.
func handler(logger zerolog.Logger) func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	return func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var probe struct {
			TriggerSource string `json:"triggerSource"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("decode trigger event: %w", err)
		}
		logger.Info().Str("triggerSource", probe.TriggerSource).Msg("user pool trigger")

		switch {
		case strings.HasPrefix(probe.TriggerSource, "PreSignUp_"):
			var ev events.CognitoEventUserPoolsPreSignup
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, fmt.Errorf("decode pre sign-up event: %w", err)
			}
			return identity.PreSignUp(ev), nil

		case probe.TriggerSource == "PreAuthentication_Authentication":
			var ev events.CognitoEventUserPoolsPreAuthentication
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, fmt.Errorf("decode pre-authentication event: %w", err)
			}
			return identity.PreAuthentication(ev), nil

		case probe.TriggerSource == "DefineAuthChallenge_Authentication":
			var ev events.CognitoEventUserPoolsDefineAuthChallenge
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, fmt.Errorf("decode define-challenge event: %w", err)
			}
			return identity.DefineAuthChallenge(ev), nil

		case probe.TriggerSource == "CreateAuthChallenge_Authentication":
			var ev events.CognitoEventUserPoolsCreateAuthChallenge
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, fmt.Errorf("decode create-challenge event: %w", err)
			}
			return identity.CreateAuthChallenge(ev), nil

		case probe.TriggerSource == "VerifyAuthChallengeResponse_Authentication":
			var ev events.CognitoEventUserPoolsVerifyAuthChallenge
			if err := json.Unmarshal(raw, &ev); err != nil {
				return nil, fmt.Errorf("decode verify-challenge event: %w", err)
			}
			return identity.VerifyAuthChallenge(ev), nil
		}

		return nil, fmt.Errorf("unhandled trigger source %q", probe.TriggerSource)
	}
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	lambda.Start(handler(logger))
}
