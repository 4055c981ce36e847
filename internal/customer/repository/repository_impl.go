package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/stripesync/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string, limit int) ([]domain.Customer, error) {
	var items []domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, stripe_customer_id, created_at, updated_at
		 FROM customers WHERE email = ? ORDER BY id ASC LIMIT ?`,
		email,
		normalizeLimit(limit),
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByStripeCustomerID(ctx context.Context, db *gorm.DB, stripeCustomerID string, limit int) ([]domain.Customer, error) {
	var items []domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, stripe_customer_id, created_at, updated_at
		 FROM customers WHERE stripe_customer_id = ? ORDER BY id ASC LIMIT ?`,
		stripeCustomerID,
		normalizeLimit(limit),
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LinkStripeCustomer(ctx context.Context, db *gorm.DB, id, stripeCustomerID string, updatedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE customers SET stripe_customer_id = ?, updated_at = ? WHERE id = ?`,
		stripeCustomerID,
		updatedAt,
		id,
	)
	return res.RowsAffected, res.Error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 2
	}
	return limit
}
