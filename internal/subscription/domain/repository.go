package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	UpdateByUserID(ctx context.Context, db *gorm.DB, subscription *Subscription) (int64, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*Subscription, error)
}
