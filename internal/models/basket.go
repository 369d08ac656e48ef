package models

import "time"

// BasketLine is a helper's tentative intent to fund Quantity units of a need.
// At most one line exists per (helper, need) pair; nothing is reserved until
// checkout.
type BasketLine struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	HelperID  string    `gorm:"size:64;not null;uniqueIndex:idx_basket_helper_need" json:"helper_id"`
	NeedID    string    `gorm:"size:32;not null;uniqueIndex:idx_basket_helper_need" json:"need_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Need Need `gorm:"foreignKey:NeedID" json:"-"`
}
