package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"gorm.io/gorm"
)

const (
	OutcomeProjected = "projected"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeInFlight  = "in_flight"
)

const (
	WebhookReasonVerification         = "verification_failed"
	WebhookReasonLookup               = "lookup_failed"
	WebhookReasonInvalidPayload       = "invalid_payload"
	WebhookReasonStoreUnavailable     = "store_unavailable"
	WebhookReasonInFlight             = "in_flight"
	WebhookReasonDeadlineExceeded     = "deadline_exceeded"
	WebhookReasonDBLockTimeout        = "db_lock_timeout"
	WebhookReasonSerializationFailure = "serialization_failure"
	WebhookReasonUniqueViolation      = "unique_violation"
	WebhookReasonForeignKeyViolation  = "foreign_key_violation"
	WebhookReasonStore                = "store"
	WebhookReasonUnknown              = "unknown"
)

// WebhookMetrics captures ingest health for Prometheus scraping.
type WebhookMetrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

func NewWebhookMetrics(registerer prometheus.Registerer, cfg Config) *WebhookMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := constLabelsFor(cfg)

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stripesync_webhook_events_total",
		Help:        "Stripe webhook deliveries by event type and outcome.",
		ConstLabels: constLabels,
	}, []string{"event_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "stripesync_webhook_processing_duration_seconds",
		Help:        "Verification plus projection latency per delivery.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"event_type"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "stripesync_webhook_errors_total",
		Help:        "Failed deliveries by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"event_type", "reason"})

	registerer.MustRegister(events, duration, errs)

	return &WebhookMetrics{
		events:   events,
		duration: duration,
		errors:   errs,
	}
}

func (m *WebhookMetrics) Observe(eventType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	eventType = normalizeEventType(eventType)
	m.events.WithLabelValues(eventType, outcome).Inc()
	if duration > 0 {
		m.duration.WithLabelValues(eventType).Observe(duration.Seconds())
	}
}

func (m *WebhookMetrics) IncError(eventType string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(normalizeEventType(eventType), ClassifyWebhookErrorReason(err)).Inc()
}

// ClassifyWebhookErrorReason maps an ingest error to a bounded reason label.
func ClassifyWebhookErrorReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrVerification):
		return WebhookReasonVerification
	case errors.Is(err, domain.ErrLookup):
		return WebhookReasonLookup
	case errors.Is(err, domain.ErrInvalidPayload):
		return WebhookReasonInvalidPayload
	case errors.Is(err, domain.ErrStoreUnavailable):
		return WebhookReasonStoreUnavailable
	case errors.Is(err, domain.ErrEventInFlight):
		return WebhookReasonInFlight
	case errors.Is(err, context.DeadlineExceeded):
		return WebhookReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return WebhookReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return WebhookReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505"):
		return WebhookReasonUniqueViolation
	case errors.Is(err, gorm.ErrForeignKeyViolated) || hasPGCode(err, "23503"):
		return WebhookReasonForeignKeyViolation
	case errors.Is(err, domain.ErrStore):
		return WebhookReasonStore
	default:
		return WebhookReasonUnknown
	}
}

// IsWebhookErrorRetryable reports whether Stripe redelivery can succeed
// without operator action.
func IsWebhookErrorRetryable(err error) bool {
	switch ClassifyWebhookErrorReason(err) {
	case WebhookReasonDeadlineExceeded, WebhookReasonDBLockTimeout,
		WebhookReasonSerializationFailure, WebhookReasonStoreUnavailable,
		WebhookReasonLookup, WebhookReasonForeignKeyViolation, WebhookReasonInFlight:
		return true
	default:
		return false
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func constLabelsFor(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "stripesync"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}
}
