package domain

import "time"

// Customer is an application user, optionally linked to a Stripe customer.
// Rows are created by signup; webhooks only attach the provider id.
type Customer struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Email            string    `json:"email" gorm:"type:varchar(320);not null;uniqueIndex:ux_customers_email"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty" gorm:"type:varchar(255);uniqueIndex:ux_customers_stripe_customer_id"`
	CreatedAt        time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"not null"`
}

func (Customer) TableName() string { return "customers" }
