package projection

import (
	"context"
	"fmt"
	"strings"

	customerdomain "github.com/smallbiznis/stripesync/internal/customer/domain"
	"github.com/smallbiznis/stripesync/internal/webhook/domain"
	"github.com/smallbiznis/stripesync/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handlers) customerCreated(ctx context.Context, tx *gorm.DB, event *domain.Event, payload *domain.CustomerObject) error {
	email := strings.TrimSpace(*payload.Email)

	matches, err := h.customers.FindByEmail(ctx, tx, email, 2)
	if err != nil {
		return domain.NewStoreError("find customer by email", err)
	}
	if len(matches) != 1 {
		return &domain.LookupError{Entity: "customer", Key: "email", Value: email, Matched: len(matches)}
	}

	customer := matches[0]
	if linked := customer.StripeCustomerID; linked != nil && *linked != "" && *linked != payload.ID {
		return &domain.LookupError{
			Entity:  "customer",
			Key:     "email",
			Value:   email,
			Matched: 1,
			Reason:  fmt.Sprintf("already linked to stripe customer %s", *linked),
		}
	}

	if _, err := h.customers.LinkStripeCustomer(ctx, tx, customer.ID, payload.ID, h.clock.Now()); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return &domain.LookupError{
				Entity:  "customer",
				Key:     "stripe_customer_id",
				Value:   payload.ID,
				Matched: 1,
				Reason:  "stripe customer is linked to another user",
			}
		}
		return domain.NewStoreError("link stripe customer", err)
	}

	h.logger(ctx, event).Info("stripe customer linked",
		zap.String("user_id", customer.ID),
		zap.String("stripe_customer_id", payload.ID),
	)
	return nil
}

// resolveUser returns the internal user id owning a Stripe customer. Exactly
// one row must match.
func (h *Handlers) resolveUser(ctx context.Context, tx *gorm.DB, stripeCustomerID string) (*customerdomain.Customer, error) {
	matches, err := h.customers.FindByStripeCustomerID(ctx, tx, stripeCustomerID, 2)
	if err != nil {
		return nil, domain.NewStoreError("find customer by stripe id", err)
	}
	if len(matches) != 1 {
		return nil, &domain.LookupError{
			Entity:  "customer",
			Key:     "stripe_customer_id",
			Value:   stripeCustomerID,
			Matched: len(matches),
		}
	}
	return &matches[0], nil
}
