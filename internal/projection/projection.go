// Package projection maps verified Stripe events onto local rows. Every
// handler runs inside the transaction opened by the ingest service, so one
// event either lands completely or not at all.
package projection

import (
	"context"
	"strings"

	"github.com/smallbiznis/stripesync/internal/clock"
	"github.com/smallbiznis/stripesync/internal/config"
	customerdomain "github.com/smallbiznis/stripesync/internal/customer/domain"
	"github.com/smallbiznis/stripesync/internal/observability/logger"
	pricedomain "github.com/smallbiznis/stripesync/internal/price/domain"
	productdomain "github.com/smallbiznis/stripesync/internal/product/domain"
	subscriptiondomain "github.com/smallbiznis/stripesync/internal/subscription/domain"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"github.com/smallbiznis/stripesync/internal/webhook/router"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// SettingsProvider exposes the current projection settings.
type SettingsProvider interface {
	Get() config.ProjectionConfig
}

type Params struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	Settings      *config.ProjectionConfigHolder
	Customers     customerdomain.Repository
	Products      productdomain.Repository
	Prices        pricedomain.Repository
	Subscriptions subscriptiondomain.Repository
}

type Handlers struct {
	log           *zap.Logger
	clock         clock.Clock
	settings      SettingsProvider
	customers     customerdomain.Repository
	products      productdomain.Repository
	prices        pricedomain.Repository
	subscriptions subscriptiondomain.Repository
}

func New(p Params) *Handlers {
	var settings SettingsProvider = config.NewStaticProjectionConfig(config.DefaultProjectionConfig())
	if p.Settings != nil {
		settings = p.Settings
	}
	var clk clock.Clock = clock.SystemClock{}
	if p.Clock != nil {
		clk = p.Clock
	}
	return &Handlers{
		log:           p.Log.Named("projection"),
		clock:         clk,
		settings:      settings,
		customers:     p.Customers,
		products:      p.Products,
		prices:        p.Prices,
		subscriptions: p.Subscriptions,
	}
}

// Register binds every supported event type on r.
func (h *Handlers) Register(r *router.Router) {
	r.Register(domain.EventTypeProductCreated, router.Typed(h.productCreated))
	r.Register(domain.EventTypeProductUpdated, router.Typed(h.productUpdated))
	r.Register(domain.EventTypePriceCreated, router.Typed(h.priceCreated))
	r.Register(domain.EventTypePriceUpdated, router.Typed(h.priceUpdated))
	r.Register(domain.EventTypeCustomerCreated, router.Typed(h.customerCreated))
	r.Register(domain.EventTypeSubscriptionCreated, router.Typed(h.subscriptionCreated))
	r.Register(domain.EventTypeSubscriptionUpdated, router.Typed(h.subscriptionUpdated))
}

// NewRouter builds the dispatch table used by the ingest service.
func NewRouter(h *Handlers) *router.Router {
	r := router.New()
	h.Register(r)
	return r
}

func (h *Handlers) logger(ctx context.Context, event *domain.Event) *zap.Logger {
	return logger.WithContext(ctx, h.log).With(
		zap.String("stripe_event_id", event.ID),
		zap.String("stripe_event_type", event.Type),
	)
}

func toJSONMap(in map[string]string) datatypes.JSONMap {
	if in == nil {
		return nil
	}
	out := make(datatypes.JSONMap, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
