package domain

import (
	"time"

	"gorm.io/datatypes"
)

type PriceType string

const (
	PriceTypeOneTime   PriceType = "one_time"
	PriceTypeRecurring PriceType = "recurring"
)

type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Price mirrors a Stripe price. Recurring fields are nil for one-time prices.
type Price struct {
	ID              string            `json:"id" gorm:"primaryKey;type:varchar(255)"`
	ProductID       string            `json:"product_id" gorm:"type:varchar(255);not null;index"`
	Active          bool              `json:"active" gorm:"not null"`
	UnitAmount      *int64            `json:"unit_amount,omitempty"`
	Currency        string            `json:"currency" gorm:"type:varchar(3);not null"`
	Type            PriceType         `json:"type" gorm:"type:varchar(16);not null"`
	Interval        *Interval         `json:"interval,omitempty" gorm:"type:varchar(16)"`
	IntervalCount   *int64            `json:"interval_count,omitempty"`
	TrialPeriodDays *int64            `json:"trial_period_days,omitempty"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time         `json:"updated_at" gorm:"not null"`
}

func (Price) TableName() string { return "prices" }
