package models

import "time"

// Notice kinds.
const (
	NoticePromotion = "promotion"
	NoticeDrop      = "drop"
	NoticeDigest    = "digest"
)

// Notice is a persisted message to a helper: a waitlist promotion, a
// checkout drop report, or a reminder digest. Callers render it; the core
// only stores plain data.
type Notice struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	HelperID     string    `gorm:"size:64;not null;index" json:"helper_id"`
	Kind         string    `gorm:"size:16;not null" json:"kind"`
	Subject      string    `gorm:"size:256" json:"subject"`
	Body         string    `gorm:"type:text" json:"body"`
	Acknowledged bool      `gorm:"default:false;index" json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}
