package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Product mirrors a Stripe product. The id is Stripe's.
type Product struct {
	ID          string            `json:"id" gorm:"primaryKey;type:varchar(255)"`
	Active      bool              `json:"active" gorm:"not null"`
	Name        string            `json:"name" gorm:"type:text;not null"`
	Image       *string           `json:"image,omitempty" gorm:"type:text"`
	Description *string           `json:"description,omitempty" gorm:"type:text"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
