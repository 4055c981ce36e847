package domain

import (
	"time"

	"gorm.io/datatypes"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// Subscription is the local projection of a user's Stripe subscription.
// One row per user; cancellation is expressed through status and timestamps.
type Subscription struct {
	UserID             string             `json:"user_id" gorm:"primaryKey;type:varchar(64)"`
	ID                 string             `json:"id" gorm:"column:id;type:varchar(255);not null;index"`
	Status             SubscriptionStatus `json:"status" gorm:"type:varchar(32);not null"`
	PriceID            string             `json:"price_id" gorm:"type:varchar(255);not null"`
	Quantity           int64              `json:"quantity" gorm:"not null;default:1"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end" gorm:"not null;default:false"`
	Created            *time.Time         `json:"created,omitempty"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	EndedAt            *time.Time         `json:"ended_at,omitempty"`
	CancelAt           *time.Time         `json:"cancel_at,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	TrialStart         *time.Time         `json:"trial_start,omitempty"`
	TrialEnd           *time.Time         `json:"trial_end,omitempty"`
	Metadata           datatypes.JSONMap  `json:"metadata,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }
