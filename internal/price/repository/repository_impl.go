package repository

import (
	"context"

	"github.com/smallbiznis/stripesync/internal/price/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

var upsertColumns = []string{
	"product_id",
	"active",
	"unit_amount",
	"currency",
	"type",
	"interval",
	"interval_count",
	"trial_period_days",
	"metadata",
	"updated_at",
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, price *domain.Price) error {
	if price == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(price).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, price *domain.Price) (int64, error) {
	if price == nil {
		return 0, gorm.ErrInvalidData
	}
	res := db.WithContext(ctx).Model(&domain.Price{}).
		Where("id = ?", price.ID).
		Updates(map[string]any{
			"active":            price.Active,
			"unit_amount":       price.UnitAmount,
			"currency":          price.Currency,
			"type":              price.Type,
			"interval":          price.Interval,
			"interval_count":    price.IntervalCount,
			"trial_period_days": price.TrialPeriodDays,
			"metadata":          price.Metadata,
			"updated_at":        price.UpdatedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Price, error) {
	var p domain.Price
	err := db.WithContext(ctx).Model(&domain.Price{}).
		Where("id = ?", id).
		Limit(1).
		Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, nil
	}
	return &p, nil
}
