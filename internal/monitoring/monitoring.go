// Package monitoring emits CloudWatch counters for the auth and webhook
// surfaces. Emission is best-effort: a metrics failure never fails the
// request it describes.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/shopkite/shopify-connect/internal/aws"
)

// Metric names.
const (
	MetricAuthCompleted   = "AuthCompleted"
	MetricAuthRejected    = "AuthRejected"
	MetricAuthFailed      = "AuthFailed"
	MetricWebhookReceived = "WebhookReceived"
	MetricWebhookRejected = "WebhookRejected"
)

// Recorder counts events in a single CloudWatch namespace.
type Recorder struct {
	client    aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
	logger    zerolog.Logger
}

func NewRecorder(client aws.CloudWatchAPI, namespace string, logger zerolog.Logger) *Recorder {
	return &Recorder{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
		logger:    logger,
	}
}

// Count adds 1 to the named metric. A nil Recorder is a no-op so callers
// can run without metrics configured.
func (r *Recorder) Count(ctx context.Context, name string, dimensions map[string]string) {
	if r == nil {
		return
	}
	now := r.nowFunc()
	value := 1.0
	datum := cwtypes.MetricDatum{
		MetricName: &name,
		Value:      &value,
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  &now,
	}
	for k, v := range dimensions {
		k, v := k, v
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{Name: &k, Value: &v})
	}

	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  &r.namespace,
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		ev := r.logger.Warn().Err(err).Str("metric", name)
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			ev = ev.Str("code", apiErr.ErrorCode())
		}
		ev.Msg("metric emission failed")
	}
}
