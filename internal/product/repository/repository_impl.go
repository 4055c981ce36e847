package repository

import (
	"context"

	"github.com/smallbiznis/stripesync/internal/product/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Upsert inserts the product or replaces every provider-owned column.
// created_at is kept from the first insert.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "name", "image", "description", "metadata", "updated_at"}),
	}).Create(product).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) (int64, error) {
	if product == nil {
		return 0, gorm.ErrInvalidData
	}
	res := db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"active":      product.Active,
			"name":        product.Name,
			"image":       product.Image,
			"description": product.Description,
			"metadata":    product.Metadata,
			"updated_at":  product.UpdatedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, active, name, image, description, metadata, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, nil
	}
	return &p, nil
}
