// Package handler adapts the transformer and the latest-points query to
// AWS Lambda event shapes.
package handler

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

type Transformer interface {
	Transform(ctx context.Context, records []models.Record) ([]models.Acknowledgment, error)
}

type Alerter interface {
	Send(ctx context.Context, msg string) error
}

type Firehose struct {
	transformer Transformer
	alerter     Alerter
	logger      *zap.Logger
}

func NewFirehose(t Transformer, alerter Alerter, logger *zap.Logger) *Firehose {
	return &Firehose{transformer: t, alerter: alerter, logger: logger}
}

// Handle answers a delivery-stream transformation invocation. On an
// invocation-level failure the error is returned so the runtime fails the
// invocation and the delivery stream retries the batch; an alert is sent
// first.
func (h *Firehose) Handle(ctx context.Context, ev models.TransformationEvent) (models.TransformationResponse, error) {
	log := h.logger.With(
		zap.String("firehose_invocation", ev.InvocationID),
		zap.Int("records", len(ev.Records)),
	)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With(zap.String("aws_request_id", lc.AwsRequestID))
	}
	log.Debug("transformation invocation received", zap.String("stream", ev.DeliveryStreamArn))

	acks, err := h.transformer.Transform(ctx, ev.Records)
	resp := models.TransformationResponse{Records: acks}
	if err != nil {
		msg := fmt.Sprintf("transform invocation %s failed (%d records): %v", ev.InvocationID, len(ev.Records), err)
		if alertErr := h.alerter.Send(ctx, msg); alertErr != nil {
			log.Warn("alert not delivered", zap.Error(alertErr))
		}
		return resp, err
	}
	return resp, nil
}
