// Package order implements the order engine: checkout (atomic multi-item
// stock reservation), ownership-scoped queries, and the compensating
// cancellation path.
package order

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"

	domain "github.com/ryzenix/pharmacart/internal/domain/order"
	"github.com/ryzenix/pharmacart/internal/observability"
)

const (
	useCaseCreate        = "order.create"
	useCaseGet           = "order.get"
	useCaseList          = "order.list"
	useCaseCancel        = "order.cancel"
	useCaseUpdateStatus  = "order.update_status"
	useCaseUpdatePayment = "order.update_payment_status"

	spanPrefix = "UC."
)

type Service struct {
	repo  domain.Repository
	idGen IDGenerator
	tel   observability.Telemetry

	reqCounter   observability.Counter
	durHistogram observability.Histogram

	now func() time.Time
}

// NewService wires the order engine. Dependencies are injected; nothing is
// resolved through process-wide accessors.
func NewService(repo domain.Repository, idGen IDGenerator, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		repo:         repo,
		idGen:        idGen,
		tel:          tel,
		reqCounter:   tel.Counter(observability.MetricUsecaseRequests),
		durHistogram: tel.Histogram(observability.MetricUsecaseDuration),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// instrument opens a span for the use case and returns a finish callback
// that records outcome, duration, and the span status.
func (s *Service) instrument(ctx context.Context, useCase string) (context.Context, func(err error)) {
	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+useCase)
	start := s.now()

	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		}
		s.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(time.Since(start).Seconds(),
			observability.L("use_case", useCase),
		)
	}
}
