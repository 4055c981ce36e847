package verifier

import (
	"errors"
	"time"

	"github.com/smallbiznis/stripesync/internal/config"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

var errSecretMissing = errors.New("webhook signing secret is not configured")

// Verifier authenticates Stripe deliveries against the endpoint signing secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func New(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Provide builds the verifier from process configuration and registers the
// API key with the SDK when one is set.
func Provide(cfg config.Config, log *zap.Logger) *Verifier {
	if cfg.Stripe.APIKey != "" {
		stripe.Key = cfg.Stripe.APIKey
	}
	stripe.SetAppInfo(&stripe.AppInfo{Name: cfg.AppName, Version: cfg.AppVersion})
	if cfg.Stripe.WebhookSigningSecret == "" {
		log.Named("webhook.verifier").Warn("STRIPE_WEBHOOK_SIGNING_SECRET is empty; every delivery will be rejected")
	}
	return New(cfg.Stripe.WebhookSigningSecret, cfg.Webhook.Tolerance)
}

// Verify checks the signature header against the exact payload bytes and
// returns the decoded event.
func (v *Verifier) Verify(payload []byte, signature string) (*domain.Event, error) {
	if v.secret == "" {
		return nil, domain.NewVerificationError(errSecretMissing)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, domain.NewVerificationError(err)
	}
	if event.ID == "" || event.Type == "" || event.Data == nil {
		return nil, domain.NewVerificationError(errors.New("webhook event is missing id, type or data"))
	}

	return &domain.Event{
		ID:         event.ID,
		Type:       string(event.Type),
		Created:    event.Created,
		LiveMode:   event.Livemode,
		APIVersion: event.APIVersion,
		Object:     event.Data.Raw,
		RawPayload: payload,
	}, nil
}
