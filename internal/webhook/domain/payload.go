package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ExpandableID decodes a provider reference that is either a bare id or an
// expanded object carrying an "id" field.
type ExpandableID string

func (id *ExpandableID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExpandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*id = ExpandableID(obj.ID)
	return nil
}

func (id ExpandableID) String() string { return string(id) }

type ProductObject struct {
	ID          string            `json:"id"`
	Active      bool              `json:"active"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
}

func (p *ProductObject) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("product id is required")
	}
	return nil
}

// Image returns the first image, if any.
func (p *ProductObject) Image() *string {
	for _, img := range p.Images {
		if img = strings.TrimSpace(img); img != "" {
			return &img
		}
	}
	return nil
}

type PriceRecurring struct {
	Interval        string `json:"interval"`
	IntervalCount   int64  `json:"interval_count"`
	TrialPeriodDays *int64 `json:"trial_period_days"`
}

type PriceObject struct {
	ID         string            `json:"id"`
	Product    ExpandableID      `json:"product"`
	Active     bool              `json:"active"`
	UnitAmount *int64            `json:"unit_amount"`
	Currency   string            `json:"currency"`
	Type       string            `json:"type"`
	Recurring  *PriceRecurring   `json:"recurring"`
	Metadata   map[string]string `json:"metadata"`
}

func (p *PriceObject) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("price id is required")
	}
	if strings.TrimSpace(p.Product.String()) == "" {
		return errors.New("price product is required")
	}
	switch p.Type {
	case "one_time", "recurring":
	default:
		return errors.New("price type must be one_time or recurring")
	}
	return nil
}

type CustomerObject struct {
	ID    string  `json:"id"`
	Email *string `json:"email"`
}

func (c *CustomerObject) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("customer id is required")
	}
	if c.Email == nil || strings.TrimSpace(*c.Email) == "" {
		return errors.New("customer email is required")
	}
	return nil
}

type SubscriptionPlan struct {
	ID string `json:"id"`
}

type SubscriptionItem struct {
	ID    string `json:"id"`
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
	Quantity           *int64 `json:"quantity"`
	CurrentPeriodStart *int64 `json:"current_period_start"`
	CurrentPeriodEnd   *int64 `json:"current_period_end"`
}

type SubscriptionObject struct {
	ID       string            `json:"id"`
	Customer ExpandableID      `json:"customer"`
	Status   string            `json:"status"`
	Plan     *SubscriptionPlan `json:"plan"`
	Items    struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Created            *int64            `json:"created"`
	CurrentPeriodStart *int64            `json:"current_period_start"`
	CurrentPeriodEnd   *int64            `json:"current_period_end"`
	EndedAt            *int64            `json:"ended_at"`
	CancelAt           *int64            `json:"cancel_at"`
	CanceledAt         *int64            `json:"canceled_at"`
	TrialStart         *int64            `json:"trial_start"`
	TrialEnd           *int64            `json:"trial_end"`
	Metadata           map[string]string `json:"metadata"`
}

func (s *SubscriptionObject) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("subscription id is required")
	}
	if strings.TrimSpace(s.Customer.String()) == "" {
		return errors.New("subscription customer is required")
	}
	if strings.TrimSpace(s.Status) == "" {
		return errors.New("subscription status is required")
	}
	if s.PriceID() == "" {
		return errors.New("subscription price is required")
	}
	return nil
}

// PriceID prefers the legacy plan id and falls back to the first item's price.
func (s *SubscriptionObject) PriceID() string {
	if s.Plan != nil && strings.TrimSpace(s.Plan.ID) != "" {
		return s.Plan.ID
	}
	if item := s.firstItem(); item != nil {
		return strings.TrimSpace(item.Price.ID)
	}
	return ""
}

func (s *SubscriptionObject) ItemQuantity() *int64 {
	if item := s.firstItem(); item != nil {
		return item.Quantity
	}
	return nil
}

// PeriodStart falls back to the first item for API versions that moved
// billing periods onto subscription items.
func (s *SubscriptionObject) PeriodStart() *int64 {
	if s.CurrentPeriodStart != nil {
		return s.CurrentPeriodStart
	}
	if item := s.firstItem(); item != nil {
		return item.CurrentPeriodStart
	}
	return nil
}

func (s *SubscriptionObject) PeriodEnd() *int64 {
	if s.CurrentPeriodEnd != nil {
		return s.CurrentPeriodEnd
	}
	if item := s.firstItem(); item != nil {
		return item.CurrentPeriodEnd
	}
	return nil
}

func (s *SubscriptionObject) firstItem() *SubscriptionItem {
	if len(s.Items.Data) == 0 {
		return nil
	}
	return &s.Items.Data[0]
}
