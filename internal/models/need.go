package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Need priority tiers, ordered from least to most urgent.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Need is a funding target posted by a manager: a quantity of items at a
// unit cost. QuantityFulfilled is written only by registry.IncrementFulfilled.
type Need struct {
	ID                string          `gorm:"primaryKey;size:32" json:"id"`
	ManagerID         string          `gorm:"size:64;not null;index" json:"manager_id"`
	Title             string          `gorm:"not null" json:"title"`
	Description       string          `gorm:"type:text" json:"description"`
	Cost              decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	QuantityFulfilled int             `gorm:"not null;default:0" json:"quantity_fulfilled"`
	Priority          string          `gorm:"size:16;default:normal;index" json:"priority"`
	NeededBy          *time.Time      `json:"needed_by"`
	IsPerishable      bool            `gorm:"default:false" json:"is_perishable"`
	RequestCount      int             `gorm:"default:0" json:"request_count"`
	BundleTag         string          `gorm:"size:64;index" json:"bundle_tag"`
	UrgencyScore      float64         `gorm:"default:0" json:"urgency_score"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Events []Event `gorm:"foreignKey:NeedID" json:"-"`
}

// Remaining returns the uncommitted capacity of the need.
func (n *Need) Remaining() int {
	return n.Quantity - n.QuantityFulfilled
}

// FullyFunded reports whether the need has no remaining capacity.
func (n *Need) FullyFunded() bool {
	return n.QuantityFulfilled >= n.Quantity
}
