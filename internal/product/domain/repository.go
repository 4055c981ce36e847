package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, product *Product) error
	Update(ctx context.Context, db *gorm.DB, product *Product) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Product, error)
}
