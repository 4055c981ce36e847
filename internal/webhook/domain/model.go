package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const ProviderStripe = "stripe"

const (
	EventTypeProductCreated      = "product.created"
	EventTypeProductUpdated      = "product.updated"
	EventTypePriceCreated        = "price.created"
	EventTypePriceUpdated        = "price.updated"
	EventTypeCustomerCreated     = "customer.created"
	EventTypeSubscriptionCreated = "customer.subscription.created"
	EventTypeSubscriptionUpdated = "customer.subscription.updated"
)

// Event is a provider notification whose signature has been verified.
type Event struct {
	ID         string
	Type       string
	Created    int64
	LiveMode   bool
	APIVersion string
	Object     json.RawMessage
	RawPayload []byte
}

// EventRecord marks a provider event as projected.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_webhook_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_webhook_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "webhook_events" }

//go:generate mockgen -destination=../mock/service_mock.go -package=mock github.com/smallbiznis/stripesync/internal/webhook/domain Service

// Service ingests raw webhook deliveries.
type Service interface {
	IngestWebhook(ctx context.Context, payload []byte, signature string) error
}

// Repository persists the processed-event log.
type Repository interface {
	FindByProviderEventID(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	Insert(ctx context.Context, db *gorm.DB, record *EventRecord) (bool, error)
}

// Deduplicator is the fast path consulted before the processed-event log.
// Acquire reports ok=false while another delivery of the event is in flight.
type Deduplicator interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
	Acquire(ctx context.Context, eventID string) (release func(context.Context), ok bool, err error)
}
