package projection_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/stripesync/internal/clock"
	"github.com/smallbiznis/stripesync/internal/config"
	customerdomain "github.com/smallbiznis/stripesync/internal/customer/domain"
	customerrepo "github.com/smallbiznis/stripesync/internal/customer/repository"
	"github.com/smallbiznis/stripesync/internal/migration/migrationtest"
	pricedomain "github.com/smallbiznis/stripesync/internal/price/domain"
	pricerepo "github.com/smallbiznis/stripesync/internal/price/repository"
	productdomain "github.com/smallbiznis/stripesync/internal/product/domain"
	productrepo "github.com/smallbiznis/stripesync/internal/product/repository"
	"github.com/smallbiznis/stripesync/internal/projection"
	subscriptiondomain "github.com/smallbiznis/stripesync/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/stripesync/internal/subscription/repository"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"github.com/smallbiznis/stripesync/internal/webhook/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newRouter(t *testing.T, settings config.ProjectionConfig) *router.Router {
	t.Helper()
	return newRouterWithPrices(t, settings, pricerepo.Provide())
}

func newRouterWithPrices(t *testing.T, settings config.ProjectionConfig, prices pricedomain.Repository) *router.Router {
	t.Helper()
	h := projection.New(projection.Params{
		Log:           zap.NewNop(),
		Clock:         clock.NewFakeClock(fixedNow),
		Settings:      config.NewStaticProjectionConfig(settings),
		Customers:     customerrepo.Provide(),
		Products:      productrepo.Provide(),
		Prices:        prices,
		Subscriptions: subscriptionrepo.Provide(),
	})
	return projection.NewRouter(h)
}

func findPrice(t *testing.T, db *gorm.DB, id string) *pricedomain.Price {
	t.Helper()
	price, err := pricerepo.Provide().FindByID(context.Background(), db, id)
	require.NoError(t, err)
	require.NotNil(t, price, "price %s", id)
	return price
}

func findSubscription(t *testing.T, db *gorm.DB, userID string) *subscriptiondomain.Subscription {
	t.Helper()
	sub, err := subscriptionrepo.Provide().FindByUserID(context.Background(), db, userID)
	require.NoError(t, err)
	require.NotNil(t, sub, "subscription for %s", userID)
	return sub
}

func dispatch(t *testing.T, r *router.Router, db *gorm.DB, eventType, object string) error {
	t.Helper()
	return r.Dispatch(context.Background(), db, &domain.Event{
		ID:     "evt_" + eventType,
		Type:   eventType,
		Object: []byte(object),
	})
}

func seedCustomer(t *testing.T, db *gorm.DB, id, email string, stripeID *string) {
	t.Helper()
	require.NoError(t, db.Create(&customerdomain.Customer{
		ID:               id,
		Email:            email,
		StripeCustomerID: stripeID,
		CreatedAt:        fixedNow,
		UpdatedAt:        fixedNow,
	}).Error)
}

func strPtr(s string) *string { return &s }

func TestRouterRegistersEverySupportedType(t *testing.T) {
	r := newRouter(t, config.DefaultProjectionConfig())
	assert.Equal(t, []string{
		domain.EventTypeCustomerCreated,
		domain.EventTypeSubscriptionCreated,
		domain.EventTypeSubscriptionUpdated,
		domain.EventTypePriceCreated,
		domain.EventTypePriceUpdated,
		domain.EventTypeProductCreated,
		domain.EventTypeProductUpdated,
	}, r.Types())
	assert.False(t, r.Handles("invoice.paid"))
}

func TestProductCreatedIsIdempotent(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	require.NoError(t, dispatch(t, r, db, domain.EventTypeProductCreated,
		`{"id":"prod_1","active":true,"name":"Basic","description":"first","images":["https://img/1.png"],"metadata":{"tier":"1"}}`))
	require.NoError(t, dispatch(t, r, db, domain.EventTypeProductCreated,
		`{"id":"prod_1","active":false,"name":"Pro","description":null,"images":[],"metadata":{}}`))

	assert.EqualValues(t, 1, migrationtest.Count(t, db, "products"))

	var got productdomain.Product
	require.NoError(t, db.First(&got, "id = ?", "prod_1").Error)
	assert.Equal(t, "Pro", got.Name)
	assert.False(t, got.Active)
	assert.Nil(t, got.Image)
	assert.Nil(t, got.Description)
}

func TestProductUpdatedBeforeCreatedInserts(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	require.NoError(t, dispatch(t, r, db, domain.EventTypeProductUpdated,
		`{"id":"prod_2","active":true,"name":"Late","images":["https://img/2.png"]}`))

	var got productdomain.Product
	require.NoError(t, db.First(&got, "id = ?", "prod_2").Error)
	assert.Equal(t, "Late", got.Name)
	require.NotNil(t, got.Image)
	assert.Equal(t, "https://img/2.png", *got.Image)
}

func TestPriceRequiresExistingProduct(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	err := dispatch(t, r, db, domain.EventTypePriceCreated,
		`{"id":"price_1","product":"prod_missing","active":true,"unit_amount":1000,"currency":"usd","type":"one_time"}`)

	var lookupErr *domain.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "product", lookupErr.Entity)
	assert.EqualValues(t, 0, migrationtest.Count(t, db, "prices"))
}

func TestPriceCreatedProjectsRecurringFields(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	require.NoError(t, dispatch(t, r, db, domain.EventTypeProductCreated, `{"id":"prod_1","active":true,"name":"Pro"}`))
	require.NoError(t, dispatch(t, r, db, domain.EventTypePriceCreated,
		`{"id":"price_1","product":{"id":"prod_1"},"active":true,"unit_amount":2500,"currency":"usd","type":"recurring",
		  "recurring":{"interval":"month","interval_count":1,"trial_period_days":14}}`))

	got := findPrice(t, db, "price_1")
	assert.Equal(t, "prod_1", got.ProductID)
	assert.Equal(t, pricedomain.PriceType("recurring"), got.Type)
	require.NotNil(t, got.Interval)
	assert.Equal(t, pricedomain.Interval("month"), *got.Interval)
	require.NotNil(t, got.TrialPeriodDays)
	assert.EqualValues(t, 14, *got.TrialPeriodDays)
	require.NotNil(t, got.UnitAmount)
	assert.EqualValues(t, 2500, *got.UnitAmount)
}

func TestPriceUpdatedOverwritesFields(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	require.NoError(t, dispatch(t, r, db, domain.EventTypeProductCreated, `{"id":"prod_1","active":true,"name":"Pro"}`))
	require.NoError(t, dispatch(t, r, db, domain.EventTypePriceCreated,
		`{"id":"price_1","product":"prod_1","active":true,"unit_amount":1000,"currency":"usd","type":"recurring","recurring":{"interval":"month","interval_count":1}}`))
	require.NoError(t, dispatch(t, r, db, domain.EventTypePriceUpdated,
		`{"id":"price_1","product":"prod_1","active":false,"unit_amount":2000,"currency":"usd","type":"one_time"}`))

	got := findPrice(t, db, "price_1")
	assert.False(t, got.Active)
	require.NotNil(t, got.UnitAmount)
	assert.EqualValues(t, 2000, *got.UnitAmount)
	assert.Equal(t, pricedomain.PriceTypeOneTime, got.Type)
	assert.Nil(t, got.Interval)
	assert.Nil(t, got.IntervalCount)
	assert.EqualValues(t, 1, migrationtest.Count(t, db, "prices"))
}

func TestPriceUpdatedBeforeCreatedInserts(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	require.NoError(t, dispatch(t, r, db, domain.EventTypeProductCreated, `{"id":"prod_1","active":true,"name":"Pro"}`))
	require.NoError(t, dispatch(t, r, db, domain.EventTypePriceUpdated,
		`{"id":"price_9","product":"prod_1","active":true,"unit_amount":500,"currency":"eur","type":"one_time"}`))

	got := findPrice(t, db, "price_9")
	assert.True(t, got.Active)
	assert.Equal(t, "eur", got.Currency)
	assert.Equal(t, "prod_1", got.ProductID)
}

func TestPriceUpdatedBeforeCreatedRequiresProduct(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	err := dispatch(t, r, db, domain.EventTypePriceUpdated,
		`{"id":"price_9","product":"prod_missing","active":true,"currency":"usd","type":"one_time"}`)

	var lookupErr *domain.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "prod_missing", lookupErr.Value)
	assert.EqualValues(t, 0, migrationtest.Count(t, db, "prices"))
}

type foreignKeyPrices struct {
	pricedomain.Repository
}

func (foreignKeyPrices) Upsert(context.Context, *gorm.DB, *pricedomain.Price) error {
	return gorm.ErrForeignKeyViolated
}

func TestPriceForeignKeyViolationIsLookupFailure(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouterWithPrices(t, config.DefaultProjectionConfig(), foreignKeyPrices{Repository: pricerepo.Provide()})

	require.NoError(t, dispatch(t, r, db, domain.EventTypeProductCreated, `{"id":"prod_1","active":true,"name":"Pro"}`))
	err := dispatch(t, r, db, domain.EventTypePriceCreated,
		`{"id":"price_1","product":"prod_1","active":true,"currency":"usd","type":"one_time"}`)

	var lookupErr *domain.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "product", lookupErr.Entity)
	assert.False(t, errors.Is(err, domain.ErrStore))
}

func TestPriceRejectsInvalidType(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	err := dispatch(t, r, db, domain.EventTypePriceCreated,
		`{"id":"price_1","product":"prod_1","currency":"usd","type":"metered"}`)
	assert.True(t, errors.Is(err, domain.ErrInvalidPayload))
}

func TestCustomerCreatedLinksByEmail(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())
	seedCustomer(t, db, "u1", "a@x.com", nil)

	require.NoError(t, dispatch(t, r, db, domain.EventTypeCustomerCreated, `{"id":"cus_abc","email":"a@x.com"}`))

	var got customerdomain.Customer
	require.NoError(t, db.First(&got, "id = ?", "u1").Error)
	require.NotNil(t, got.StripeCustomerID)
	assert.Equal(t, "cus_abc", *got.StripeCustomerID)

	// Redelivery of the same link is a no-op.
	require.NoError(t, dispatch(t, r, db, domain.EventTypeCustomerCreated, `{"id":"cus_abc","email":"a@x.com"}`))
}

func TestCustomerCreatedFailures(t *testing.T) {
	cases := []struct {
		name   string
		seed   func(t *testing.T, db *gorm.DB)
		object string
	}{
		{
			name:   "no matching email",
			seed:   func(t *testing.T, db *gorm.DB) {},
			object: `{"id":"cus_abc","email":"nobody@x.com"}`,
		},
		{
			name:   "already linked elsewhere",
			seed:   func(t *testing.T, db *gorm.DB) { seedCustomer(t, db, "u1", "a@x.com", strPtr("cus_old")) },
			object: `{"id":"cus_abc","email":"a@x.com"}`,
		},
		{
			name: "stripe id owned by another user",
			seed: func(t *testing.T, db *gorm.DB) {
				seedCustomer(t, db, "u1", "a@x.com", nil)
				seedCustomer(t, db, "u2", "b@x.com", strPtr("cus_abc"))
			},
			object: `{"id":"cus_abc","email":"a@x.com"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := migrationtest.OpenSQLite(t)
			r := newRouter(t, config.DefaultProjectionConfig())
			tc.seed(t, db)

			err := dispatch(t, r, db, domain.EventTypeCustomerCreated, tc.object)
			assert.ErrorIs(t, err, domain.ErrLookup)
		})
	}
}

func TestCustomerCreatedRequiresEmail(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	err := dispatch(t, r, db, domain.EventTypeCustomerCreated, `{"id":"cus_abc","email":null}`)
	assert.True(t, errors.Is(err, domain.ErrInvalidPayload))
}

const subscriptionObject = `{
  "id":"sub_1","customer":"cus_123","status":"active","cancel_at_period_end":false,
  "created":1700000000,"current_period_start":1700000000,"current_period_end":1702592000,
  "plan":{"id":"price_1"},
  "items":{"data":[{"id":"si_1","price":{"id":"price_1"},"quantity":3}]},
  "metadata":{"source":"checkout"}
}`

func TestSubscriptionCreatedJoinsToUser(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())
	seedCustomer(t, db, "u1", "a@x.com", strPtr("cus_123"))

	require.NoError(t, dispatch(t, r, db, domain.EventTypeSubscriptionCreated, subscriptionObject))

	var subs []subscriptiondomain.Subscription
	require.NoError(t, db.Find(&subs).Error)
	require.Len(t, subs, 1)
	assert.Equal(t, "u1", subs[0].UserID)
	assert.Equal(t, "sub_1", subs[0].ID)
	assert.Equal(t, "price_1", subs[0].PriceID)
	assert.EqualValues(t, 1, subs[0].Quantity)
	require.NotNil(t, subs[0].CurrentPeriodStart)
	assert.True(t, subs[0].CurrentPeriodStart.Equal(time.Unix(1700000000, 0)))
	assert.Nil(t, subs[0].EndedAt)
}

func TestSubscriptionQuantityFromPayload(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.ProjectionConfig{
		SubscriptionQuantity: config.QuantityPolicy{Mode: config.QuantityModePayload, Fixed: 1},
	})
	seedCustomer(t, db, "u1", "a@x.com", strPtr("cus_123"))

	require.NoError(t, dispatch(t, r, db, domain.EventTypeSubscriptionCreated, subscriptionObject))

	sub := findSubscription(t, db, "u1")
	assert.EqualValues(t, 3, sub.Quantity)
}

func TestSubscriptionUpdatedForUnknownCustomer(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())

	err := dispatch(t, r, db, domain.EventTypeSubscriptionUpdated, subscriptionObject)

	var lookupErr *domain.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, "stripe_customer_id", lookupErr.Key)
	assert.EqualValues(t, 0, migrationtest.Count(t, db, "subscriptions"))
}

func TestSubscriptionUpdatedOverwritesStatus(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())
	seedCustomer(t, db, "u1", "a@x.com", strPtr("cus_123"))

	require.NoError(t, dispatch(t, r, db, domain.EventTypeSubscriptionCreated, subscriptionObject))
	require.NoError(t, dispatch(t, r, db, domain.EventTypeSubscriptionUpdated,
		`{"id":"sub_1","customer":{"id":"cus_123"},"status":"canceled","cancel_at_period_end":true,
		  "canceled_at":1701000000,"items":{"data":[{"price":{"id":"price_2"},"current_period_start":1701000000,"current_period_end":1703600000}]}}`))

	sub := findSubscription(t, db, "u1")
	assert.Equal(t, subscriptiondomain.SubscriptionStatus("canceled"), sub.Status)
	assert.Equal(t, "price_2", sub.PriceID)
	assert.True(t, sub.CancelAtPeriodEnd)
	require.NotNil(t, sub.CanceledAt)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, sub.CurrentPeriodEnd.Equal(time.Unix(1703600000, 0)))
	assert.EqualValues(t, 1, migrationtest.Count(t, db, "subscriptions"))
}

func TestSubscriptionUpdatedBeforeCreatedInserts(t *testing.T) {
	db := migrationtest.OpenSQLite(t)
	r := newRouter(t, config.DefaultProjectionConfig())
	seedCustomer(t, db, "u1", "a@x.com", strPtr("cus_123"))

	require.NoError(t, dispatch(t, r, db, domain.EventTypeSubscriptionUpdated, subscriptionObject))

	sub := findSubscription(t, db, "u1")
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, subscriptiondomain.SubscriptionStatus("active"), sub.Status)
	assert.EqualValues(t, 1, sub.Quantity)
	assert.EqualValues(t, 1, migrationtest.Count(t, db, "subscriptions"))
}
