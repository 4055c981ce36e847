package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stripesync/internal/clock"
	obscontext "github.com/smallbiznis/stripesync/internal/observability/context"
	"github.com/smallbiznis/stripesync/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stripesync/internal/observability/metrics"
	"github.com/smallbiznis/stripesync/internal/webhook/dedupe"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"github.com/smallbiznis/stripesync/internal/webhook/router"
	"github.com/smallbiznis/stripesync/internal/webhook/verifier"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB `optional:"true"`
	Log            *zap.Logger
	Verifier       *verifier.Verifier
	Router         *router.Router
	Repo           domain.Repository
	GenID          *snowflake.Node
	Clock          clock.Clock                `optional:"true"`
	Dedupe         domain.Deduplicator        `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics        `optional:"true"`
	WebhookMetrics *obsmetrics.WebhookMetrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	verifier       *verifier.Verifier
	router         *router.Router
	repo           domain.Repository
	genID          *snowflake.Node
	clock          clock.Clock
	dedupe         domain.Deduplicator
	obsMetrics     *obsmetrics.Metrics
	webhookMetrics *obsmetrics.WebhookMetrics
	tracer         trace.Tracer
}

func NewService(p Params) domain.Service {
	var clk clock.Clock = clock.SystemClock{}
	if p.Clock != nil {
		clk = p.Clock
	}
	var dd domain.Deduplicator = (*dedupe.Cache)(nil)
	if p.Dedupe != nil {
		dd = p.Dedupe
	}
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("webhook.service"),
		verifier:       p.Verifier,
		router:         p.Router,
		repo:           p.Repo,
		genID:          p.GenID,
		clock:          clk,
		dedupe:         dd,
		obsMetrics:     p.ObsMetrics,
		webhookMetrics: p.WebhookMetrics,
		tracer:         otel.Tracer("stripesync/webhook"),
	}
}

// IngestWebhook verifies one delivery and projects it. A nil error means the
// delivery may be acknowledged; that includes unknown event types and events
// already projected by an earlier delivery.
func (s *Service) IngestWebhook(ctx context.Context, payload []byte, signature string) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "webhook.ingest", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("webhook verification failed", zap.Error(err))
		s.finish(ctx, span, "", obsmetrics.OutcomeRejected, start, err)
		return err
	}

	ctx = obscontext.WithEvent(ctx, event.ID, event.Type)
	span.SetAttributes(
		attribute.String("stripe.event_id", event.ID),
		attribute.String("stripe.event_type", event.Type),
		attribute.Bool("stripe.livemode", event.LiveMode),
	)
	log := logger.WithContext(ctx, s.log)

	if !s.router.Handles(event.Type) {
		log.Debug("unhandled event type")
		s.finish(ctx, span, event.Type, obsmetrics.OutcomeIgnored, start, nil)
		return nil
	}

	if s.db == nil {
		s.finish(ctx, span, event.Type, obsmetrics.OutcomeFailed, start, domain.ErrStoreUnavailable)
		return domain.ErrStoreUnavailable
	}

	if seen, err := s.dedupe.Seen(ctx, event.ID); err != nil {
		log.Warn("dedupe cache lookup failed", zap.Error(err))
	} else if seen {
		log.Info("event already processed; skipping", zap.String("source", "cache"))
		s.finish(ctx, span, event.Type, obsmetrics.OutcomeDuplicate, start, nil)
		return nil
	}

	release, acquired, err := s.dedupe.Acquire(ctx, event.ID)
	switch {
	case err != nil:
		log.Warn("dedupe lock failed; continuing without it", zap.Error(err))
	case !acquired:
		log.Info("event is being processed by another delivery")
		s.finish(ctx, span, event.Type, obsmetrics.OutcomeInFlight, start, domain.ErrEventInFlight)
		return domain.ErrEventInFlight
	}
	defer release(context.WithoutCancel(ctx))

	duplicate, err := s.project(ctx, event)
	if err != nil {
		retryable := zap.Bool("retryable", obsmetrics.IsWebhookErrorRetryable(err))
		if errors.Is(err, domain.ErrLookup) {
			log.Error("webhook projection lookup failed", zap.Error(err), retryable)
		} else {
			log.Error("webhook projection failed", zap.Error(err), retryable)
		}
		s.finish(ctx, span, event.Type, obsmetrics.OutcomeFailed, start, err)
		return err
	}

	if err := s.dedupe.Remember(ctx, event.ID); err != nil {
		log.Warn("dedupe cache write failed", zap.Error(err))
	}

	if duplicate {
		log.Info("event already processed; skipping", zap.String("source", "store"))
		s.finish(ctx, span, event.Type, obsmetrics.OutcomeDuplicate, start, nil)
		return nil
	}

	log.Info("webhook event projected", zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	s.finish(ctx, span, event.Type, obsmetrics.OutcomeProjected, start, nil)
	return nil
}

// project runs the handler and records the event in one transaction. It
// reports true when the event had already been processed.
func (s *Service) project(ctx context.Context, event *domain.Event) (bool, error) {
	duplicate := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByProviderEventID(ctx, tx, domain.ProviderStripe, event.ID)
		if err != nil {
			return domain.NewStoreError("find webhook event", err)
		}
		if existing != nil && existing.ProcessedAt != nil {
			duplicate = true
			return nil
		}

		if err := s.router.Dispatch(ctx, tx, event); err != nil {
			return err
		}

		now := s.clock.Now()
		inserted, err := s.repo.Insert(ctx, tx, &domain.EventRecord{
			ID:              s.genID.Generate(),
			Provider:        domain.ProviderStripe,
			ProviderEventID: event.ID,
			EventType:       event.Type,
			Payload:         datatypes.JSON(event.RawPayload),
			ReceivedAt:      now,
			ProcessedAt:     &now,
		})
		if err != nil {
			return domain.NewStoreError("record webhook event", err)
		}
		if !inserted {
			logger.WithContext(ctx, s.log).Info("webhook event recorded concurrently")
		}
		return nil
	})
	return duplicate, err
}

func (s *Service) finish(ctx context.Context, span trace.Span, eventType, outcome string, start time.Time, err error) {
	elapsed := time.Since(start)
	span.SetAttributes(attribute.String("stripe.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, obsmetrics.ClassifyWebhookErrorReason(err))
		s.webhookMetrics.IncError(eventType, err)
	}
	s.webhookMetrics.Observe(eventType, outcome, elapsed)
	s.obsMetrics.RecordWebhookEvent(ctx, eventType, outcome, elapsed)
}
