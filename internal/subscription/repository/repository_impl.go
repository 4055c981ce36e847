package repository

import (
	"context"

	"github.com/smallbiznis/stripesync/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

var mutableColumns = []string{
	"id",
	"status",
	"price_id",
	"quantity",
	"cancel_at_period_end",
	"created",
	"current_period_start",
	"current_period_end",
	"ended_at",
	"cancel_at",
	"canceled_at",
	"trial_start",
	"trial_end",
	"metadata",
	"updated_at",
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	if subscription == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(subscription).Error
}

func (r *repo) UpdateByUserID(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) (int64, error) {
	if subscription == nil {
		return 0, gorm.ErrInvalidData
	}
	res := db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("user_id = ?", subscription.UserID).
		Updates(map[string]any{
			"id":                   subscription.ID,
			"status":               subscription.Status,
			"price_id":             subscription.PriceID,
			"quantity":             subscription.Quantity,
			"cancel_at_period_end": subscription.CancelAtPeriodEnd,
			"created":              subscription.Created,
			"current_period_start": subscription.CurrentPeriodStart,
			"current_period_end":   subscription.CurrentPeriodEnd,
			"ended_at":             subscription.EndedAt,
			"cancel_at":            subscription.CancelAt,
			"canceled_at":          subscription.CanceledAt,
			"trial_start":          subscription.TrialStart,
			"trial_end":            subscription.TrialEnd,
			"metadata":             subscription.Metadata,
			"updated_at":           subscription.UpdatedAt,
		})
	return res.RowsAffected, res.Error
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.UserID == "" {
		return nil, nil
	}
	return &s, nil
}
