package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingRecord is an append-only ledger entry for committed funding.
// Amount is Quantity times the need's unit cost at commit time; rows are
// never updated or deleted except by an administrative need delete.
type FundingRecord struct {
	ID        string          `gorm:"primaryKey;size:32" json:"id"`
	NeedID    string          `gorm:"size:32;not null;index" json:"need_id"`
	HelperID  string          `gorm:"size:64;not null;index" json:"helper_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
