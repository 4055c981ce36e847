package projection

import (
	"context"
	"time"

	subscriptiondomain "github.com/smallbiznis/stripesync/internal/subscription/domain"
	"github.com/smallbiznis/stripesync/internal/timestamp"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handlers) subscriptionCreated(ctx context.Context, tx *gorm.DB, event *domain.Event, payload *domain.SubscriptionObject) error {
	customer, err := h.resolveUser(ctx, tx, payload.Customer.String())
	if err != nil {
		return err
	}

	sub := h.toSubscription(customer.ID, payload, h.clock.Now())
	if err := h.subscriptions.Upsert(ctx, tx, sub); err != nil {
		return domain.NewStoreError("upsert subscription", err)
	}
	h.logger(ctx, event).Info("subscription upserted",
		zap.String("user_id", sub.UserID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)),
	)
	return nil
}

func (h *Handlers) subscriptionUpdated(ctx context.Context, tx *gorm.DB, event *domain.Event, payload *domain.SubscriptionObject) error {
	customer, err := h.resolveUser(ctx, tx, payload.Customer.String())
	if err != nil {
		return err
	}

	sub := h.toSubscription(customer.ID, payload, h.clock.Now())
	rows, err := h.subscriptions.UpdateByUserID(ctx, tx, sub)
	if err != nil {
		return domain.NewStoreError("update subscription", err)
	}
	if rows > 0 {
		h.logger(ctx, event).Info("subscription updated",
			zap.String("user_id", sub.UserID),
			zap.String("status", string(sub.Status)),
		)
		return nil
	}

	h.logger(ctx, event).Info("subscription not found for update, inserting", zap.String("user_id", sub.UserID))
	if err := h.subscriptions.Upsert(ctx, tx, sub); err != nil {
		return domain.NewStoreError("upsert subscription", err)
	}
	return nil
}

func (h *Handlers) toSubscription(userID string, p *domain.SubscriptionObject, now time.Time) *subscriptiondomain.Subscription {
	policy := h.settings.Get().SubscriptionQuantity
	return &subscriptiondomain.Subscription{
		UserID:             userID,
		ID:                 p.ID,
		Status:             subscriptiondomain.SubscriptionStatus(p.Status),
		PriceID:            p.PriceID(),
		Quantity:           policy.Resolve(p.ItemQuantity()),
		CancelAtPeriodEnd:  p.CancelAtPeriodEnd,
		Created:            timestamp.FromUnix(p.Created),
		CurrentPeriodStart: timestamp.FromUnix(p.PeriodStart()),
		CurrentPeriodEnd:   timestamp.FromUnix(p.PeriodEnd()),
		EndedAt:            timestamp.FromUnix(p.EndedAt),
		CancelAt:           timestamp.FromUnix(p.CancelAt),
		CanceledAt:         timestamp.FromUnix(p.CanceledAt),
		TrialStart:         timestamp.FromUnix(p.TrialStart),
		TrialEnd:           timestamp.FromUnix(p.TrialEnd),
		Metadata:           toJSONMap(p.Metadata),
		UpdatedAt:          now,
	}
}
