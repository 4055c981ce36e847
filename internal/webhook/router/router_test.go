package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDispatchExactMatch(t *testing.T) {
	r := New()
	var called []string
	r.Register(domain.EventTypeProductCreated, HandlerFunc(func(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
		called = append(called, event.Type)
		return nil
	}))

	require.NoError(t, r.Dispatch(context.Background(), nil, &domain.Event{Type: "product.created"}))
	assert.Equal(t, []string{"product.created"}, called)

	for _, eventType := range []string{"product", "product.created.v2", "Product.Created", "invoice.paid", ""} {
		err := r.Dispatch(context.Background(), nil, &domain.Event{Type: eventType})
		assert.True(t, errors.Is(err, domain.ErrEventIgnored), "type %q", eventType)
		assert.False(t, r.Handles(eventType))
	}
	assert.Len(t, called, 1)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := New()
	noop := HandlerFunc(func(context.Context, *gorm.DB, *domain.Event) error { return nil })
	r.Register(domain.EventTypePriceCreated, noop)
	assert.Panics(t, func() { r.Register(domain.EventTypePriceCreated, noop) })
	assert.Equal(t, []string{domain.EventTypePriceCreated}, r.Types())
}

func TestTypedDecodesAndValidates(t *testing.T) {
	var got *domain.ProductObject
	h := Typed(func(ctx context.Context, tx *gorm.DB, event *domain.Event, p *domain.ProductObject) error {
		got = p
		return nil
	})

	event := &domain.Event{Type: domain.EventTypeProductCreated, Object: json.RawMessage(`{"id":"prod_1","name":"Pro","active":true}`)}
	require.NoError(t, h.Handle(context.Background(), nil, event))
	require.NotNil(t, got)
	assert.Equal(t, "prod_1", got.ID)
	assert.True(t, got.Active)

	got = nil
	missingID := &domain.Event{Type: domain.EventTypeProductCreated, Object: json.RawMessage(`{"name":"Pro"}`)}
	err := h.Handle(context.Background(), nil, missingID)
	assert.True(t, errors.Is(err, domain.ErrInvalidPayload))
	assert.Nil(t, got)

	garbage := &domain.Event{Type: domain.EventTypeProductCreated, Object: json.RawMessage(`[1,2`)}
	assert.True(t, errors.Is(h.Handle(context.Background(), nil, garbage), domain.ErrInvalidPayload))

	empty := &domain.Event{Type: domain.EventTypeProductCreated}
	assert.True(t, errors.Is(h.Handle(context.Background(), nil, empty), domain.ErrInvalidPayload))
}
