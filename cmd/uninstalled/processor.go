package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	connectevents "github.com/shopkite/shopify-connect/internal/events"
	"github.com/shopkite/shopify-connect/internal/shops"
)

// Processor handles app/uninstalled events by archiving and removing the
// shop's installation record.
type Processor struct {
	store   *shops.Store
	nowFunc func() time.Time
	logger  zerolog.Logger
}

func NewProcessor(store *shops.Store, logger zerolog.Logger) *Processor {
	return &Processor{
		store:   store,
		nowFunc: time.Now,
		logger:  logger,
	}
}

// Handle receives an SNS batch event and processes each record. Returning an
// error makes the runtime redeliver; archive-and-remove is a no-op on a shop
// that is already gone, so redelivery is safe.
func (p *Processor) Handle(ctx context.Context, ev events.SNSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processRecord(ctx, rec); err != nil {
			p.logger.Error().Err(err).Msg("uninstall processing failed")
			return err
		}
	}
	return nil
}

func (p *Processor) processRecord(ctx context.Context, rec events.SNSEventRecord) error {
	env, err := connectevents.ParseEnvelope([]byte(rec.SNS.Message))
	if err != nil {
		return fmt.Errorf("parse uninstall message: %w", err)
	}
	if env.Event != connectevents.TopicAppUninstalled {
		p.logger.Warn().Str("event", string(env.Event)).Msg("ignoring unexpected event on uninstall topic")
		return nil
	}

	archived, err := p.store.ArchiveAndRemove(ctx, env.ShopDomain, p.nowFunc())
	if err != nil {
		return fmt.Errorf("archive %s: %w", env.ShopDomain, err)
	}
	if !archived {
		p.logger.Info().Str("shop", env.ShopDomain).Msg("shop record already removed")
		return nil
	}
	p.logger.Info().Str("shop", env.ShopDomain).Msg("shop record archived and removed")
	return nil
}
