package projection

import (
	"context"
	"time"

	pricedomain "github.com/smallbiznis/stripesync/internal/price/domain"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"github.com/smallbiznis/stripesync/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handlers) priceCreated(ctx context.Context, tx *gorm.DB, event *domain.Event, payload *domain.PriceObject) error {
	price := toPrice(payload, h.clock.Now())
	if err := h.ensureProduct(ctx, tx, price.ProductID); err != nil {
		return err
	}
	if err := h.upsertPrice(ctx, tx, price); err != nil {
		return err
	}
	h.logger(ctx, event).Debug("price upserted",
		zap.String("price_id", price.ID),
		zap.String("product_id", price.ProductID),
	)
	return nil
}

func (h *Handlers) priceUpdated(ctx context.Context, tx *gorm.DB, event *domain.Event, payload *domain.PriceObject) error {
	price := toPrice(payload, h.clock.Now())
	rows, err := h.prices.Update(ctx, tx, price)
	if err != nil {
		return domain.NewStoreError("update price", err)
	}
	if rows > 0 {
		return nil
	}

	h.logger(ctx, event).Info("price not found for update, inserting", zap.String("price_id", price.ID))
	if err := h.ensureProduct(ctx, tx, price.ProductID); err != nil {
		return err
	}
	return h.upsertPrice(ctx, tx, price)
}

// upsertPrice reports a product removed between the existence check and the
// write as a lookup failure, same as a product that never existed.
func (h *Handlers) upsertPrice(ctx context.Context, tx *gorm.DB, price *pricedomain.Price) error {
	err := h.prices.Upsert(ctx, tx, price)
	switch {
	case err == nil:
		return nil
	case db.IsForeignKeyErr(err):
		return &domain.LookupError{Entity: "product", Key: "id", Value: price.ProductID, Matched: 0}
	default:
		return domain.NewStoreError("upsert price", err)
	}
}

func (h *Handlers) ensureProduct(ctx context.Context, tx *gorm.DB, productID string) error {
	product, err := h.products.FindByID(ctx, tx, productID)
	if err != nil {
		return domain.NewStoreError("find product", err)
	}
	if product == nil {
		return &domain.LookupError{Entity: "product", Key: "id", Value: productID, Matched: 0}
	}
	return nil
}

func toPrice(p *domain.PriceObject, now time.Time) *pricedomain.Price {
	price := &pricedomain.Price{
		ID:         p.ID,
		ProductID:  p.Product.String(),
		Active:     p.Active,
		UnitAmount: p.UnitAmount,
		Currency:   p.Currency,
		Type:       pricedomain.PriceType(p.Type),
		Metadata:   toJSONMap(p.Metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.Recurring != nil {
		if p.Recurring.Interval != "" {
			interval := pricedomain.Interval(p.Recurring.Interval)
			price.Interval = &interval
		}
		if p.Recurring.IntervalCount > 0 {
			count := p.Recurring.IntervalCount
			price.IntervalCount = &count
		}
		price.TrialPeriodDays = p.Recurring.TrialPeriodDays
	}
	return price
}
