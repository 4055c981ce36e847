package projection

import (
	"context"
	"time"

	productdomain "github.com/smallbiznis/stripesync/internal/product/domain"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handlers) productCreated(ctx context.Context, tx *gorm.DB, event *domain.Event, payload *domain.ProductObject) error {
	product := toProduct(payload, h.clock.Now())
	if err := h.products.Upsert(ctx, tx, product); err != nil {
		return domain.NewStoreError("upsert product", err)
	}
	h.logger(ctx, event).Debug("product upserted", zap.String("product_id", product.ID))
	return nil
}

func (h *Handlers) productUpdated(ctx context.Context, tx *gorm.DB, event *domain.Event, payload *domain.ProductObject) error {
	product := toProduct(payload, h.clock.Now())
	rows, err := h.products.Update(ctx, tx, product)
	if err != nil {
		return domain.NewStoreError("update product", err)
	}
	if rows > 0 {
		return nil
	}

	h.logger(ctx, event).Info("product not found for update, inserting", zap.String("product_id", product.ID))
	if err := h.products.Upsert(ctx, tx, product); err != nil {
		return domain.NewStoreError("upsert product", err)
	}
	return nil
}

func toProduct(p *domain.ProductObject, now time.Time) *productdomain.Product {
	return &productdomain.Product{
		ID:          p.ID,
		Active:      p.Active,
		Name:        p.Name,
		Image:       p.Image(),
		Description: trimmedPtr(p.Description),
		Metadata:    toJSONMap(p.Metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
