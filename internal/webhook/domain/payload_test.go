package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandableIDAcceptsStringAndObject(t *testing.T) {
	var price PriceObject
	require.NoError(t, json.Unmarshal([]byte(`{"id":"price_1","product":"prod_1","type":"one_time"}`), &price))
	assert.Equal(t, "prod_1", price.Product.String())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"price_1","product":{"id":"prod_2","object":"product"},"type":"one_time"}`), &price))
	assert.Equal(t, "prod_2", price.Product.String())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"price_1","product":null,"type":"one_time"}`), &price))
	assert.Error(t, price.Validate())
}

func TestPriceValidateRecurringOptional(t *testing.T) {
	price := PriceObject{ID: "price_1", Product: "prod_1", Type: "recurring"}
	assert.NoError(t, price.Validate())

	price.Type = "metered"
	assert.Error(t, price.Validate())
}

func TestSubscriptionPriceIDFallsBackToItems(t *testing.T) {
	raw := `{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "active",
		"plan": null,
		"items": {"data": [{"id": "si_1", "price": {"id": "price_item"}, "quantity": 4, "current_period_start": 10, "current_period_end": 20}]}
	}`
	var sub SubscriptionObject
	require.NoError(t, json.Unmarshal([]byte(raw), &sub))
	require.NoError(t, sub.Validate())

	assert.Equal(t, "price_item", sub.PriceID())
	require.NotNil(t, sub.ItemQuantity())
	assert.Equal(t, int64(4), *sub.ItemQuantity())
	require.NotNil(t, sub.PeriodStart())
	assert.Equal(t, int64(10), *sub.PeriodStart())
	assert.Equal(t, int64(20), *sub.PeriodEnd())
	assert.Nil(t, sub.TrialStart)

	sub.Plan = &SubscriptionPlan{ID: "price_plan"}
	assert.Equal(t, "price_plan", sub.PriceID())
}

func TestSubscriptionValidateRequiresPrice(t *testing.T) {
	sub := SubscriptionObject{ID: "sub_1", Customer: "cus_1", Status: "active"}
	assert.Error(t, sub.Validate())
}

func TestProductImagePicksFirst(t *testing.T) {
	p := ProductObject{ID: "prod_1", Images: []string{"", "https://img/1.png", "https://img/2.png"}}
	require.NotNil(t, p.Image())
	assert.Equal(t, "https://img/1.png", *p.Image())

	p.Images = nil
	assert.Nil(t, p.Image())
}

func TestErrorClassification(t *testing.T) {
	verr := NewVerificationError(errors.New("No signatures found matching the expected signature for payload"))
	assert.True(t, errors.Is(verr, ErrVerification))
	assert.Equal(t, "No signatures found matching the expected signature for payload", verr.Error())

	lookup := &LookupError{Entity: "customer", Key: "stripe_customer_id", Value: "cus_x", Matched: 0}
	assert.True(t, errors.Is(lookup, ErrLookup))
	assert.Contains(t, lookup.Error(), "matched 0 rows")

	cause := errors.New("connection reset")
	storeErr := NewStoreError("upsert product", cause)
	assert.True(t, errors.Is(storeErr, ErrStore))
	assert.True(t, errors.Is(storeErr, cause))
	assert.Same(t, lookup, NewStoreError("upsert subscription", lookup))
	assert.Nil(t, NewStoreError("noop", nil))

	invalid := InvalidPayload(EventTypeProductCreated, errors.New("product id is required"))
	assert.True(t, errors.Is(invalid, ErrInvalidPayload))
}
