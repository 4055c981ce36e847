package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByEmail(ctx context.Context, db *gorm.DB, email string, limit int) ([]Customer, error)
	FindByStripeCustomerID(ctx context.Context, db *gorm.DB, stripeCustomerID string, limit int) ([]Customer, error)
	LinkStripeCustomer(ctx context.Context, db *gorm.DB, id, stripeCustomerID string, updatedAt time.Time) (int64, error)
}
