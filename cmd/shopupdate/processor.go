package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	connectevents "github.com/shopkite/shopify-connect/internal/events"
	"github.com/shopkite/shopify-connect/internal/shops"
)

// Processor merges shop/update webhook payloads into the installation
// record's profile fields.
type Processor struct {
	store  *shops.Store
	logger zerolog.Logger
}

func NewProcessor(store *shops.Store, logger zerolog.Logger) *Processor {
	return &Processor{store: store, logger: logger}
}

// Handle processes each SNS record. Merges skip absent values, so a
// redelivered update never blanks out a field a later update already set.
func (p *Processor) Handle(ctx context.Context, ev events.SNSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processRecord(ctx, rec); err != nil {
			p.logger.Error().Err(err).Msg("shop update processing failed")
			return err
		}
	}
	return nil
}

func (p *Processor) processRecord(ctx context.Context, rec events.SNSEventRecord) error {
	env, err := connectevents.ParseEnvelope([]byte(rec.SNS.Message))
	if err != nil {
		return fmt.Errorf("parse shop update message: %w", err)
	}
	if env.Event != connectevents.TopicShopUpdate {
		p.logger.Warn().Str("event", string(env.Event)).Msg("ignoring unexpected event on shop update topic")
		return nil
	}

	data, err := env.DataMap()
	if err != nil {
		return err
	}
	fields := shops.NormalizeProfile(data)
	if len(fields) == 0 {
		p.logger.Info().Str("shop", env.ShopDomain).Msg("shop update carried no profile fields")
		return nil
	}

	if err := p.store.MergeProfileFields(ctx, env.ShopDomain, fields); err != nil {
		return fmt.Errorf("merge profile for %s: %w", env.ShopDomain, err)
	}
	p.logger.Info().Str("shop", env.ShopDomain).Int("fields", len(fields)).Msg("shop profile merged")
	return nil
}
