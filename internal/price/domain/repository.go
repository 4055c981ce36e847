package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, price *Price) error
	Update(ctx context.Context, db *gorm.DB, price *Price) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Price, error)
}
