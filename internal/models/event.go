package models

import "time"

// Event types.
const (
	EventDelivery     = "delivery"
	EventKitBuild     = "kit_build"
	EventCleanup      = "cleanup"
	EventDistribution = "distribution"
)

// Signup statuses.
const (
	SignupConfirmed = "confirmed"
	SignupWaitlist  = "waitlist"
	SignupCancelled = "cancelled"
)

// Event is a scheduled volunteer activity tied to a need.
// VolunteerSlots of 0 means unlimited capacity. ConfirmedCount is the
// denormalized confirmed-signup counter; it is written only by the guarded
// counter path in the events package, inside the same transaction as the
// signup row it accounts for.
type Event struct {
	ID             string     `gorm:"primaryKey;size:32" json:"id"`
	NeedID         string     `gorm:"size:32;not null;index" json:"need_id"`
	EventType      string     `gorm:"size:16;not null" json:"event_type"`
	EventStart     time.Time  `gorm:"not null;index" json:"event_start"`
	EventEnd       *time.Time `json:"event_end"`
	Location       string     `gorm:"size:256" json:"location"`
	VolunteerSlots int        `gorm:"not null;default:0" json:"volunteer_slots"`
	ConfirmedCount int        `gorm:"not null;default:0" json:"confirmed_count"`
	Notes          string     `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Signups []Signup `gorm:"foreignKey:EventID" json:"-"`
}

// Unlimited reports whether the event has no slot cap.
func (e *Event) Unlimited() bool {
	return e.VolunteerSlots == 0
}

// Signup is a helper's confirmed or waitlisted slot on an event. CreatedAt
// orders waitlist promotion; it is stored explicitly, never inferred from
// row order.
type Signup struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	EventID   string    `gorm:"size:32;not null;index:idx_signup_event" json:"event_id"`
	HelperID  string    `gorm:"size:64;not null;index" json:"helper_id"`
	Status    string    `gorm:"size:16;not null;index:idx_signup_event" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
