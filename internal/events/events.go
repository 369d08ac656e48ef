// Package events manages volunteer events and their slot signups.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/ellsworth/pantry/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the event, need, or signup does not exist.
var ErrNotFound = errors.New("events: not found")

// ErrNotOwner is returned when a manager edits an event for a need they do
// not own. The caller's role is trusted as supplied; ownership is still
// checked against the need row.
var ErrNotOwner = errors.New("events: not the owning manager")

// CreateOpts holds parameters for creating an event.
type CreateOpts struct {
	NeedID         string
	EventType      string
	EventStart     time.Time
	EventEnd       *time.Time
	Location       string
	VolunteerSlots int
	Notes          string
}

// UpdateOpts holds the editable fields of an event. Nil fields are left
// unchanged. VolunteerSlots may only grow; shrinking below the confirmed
// count would break the capacity invariant retroactively.
type UpdateOpts struct {
	EventType      *string
	EventStart     *time.Time
	EventEnd       *time.Time
	Location       *string
	VolunteerSlots *int
	Notes          *string
}

func validEventType(et string) bool {
	switch et {
	case models.EventDelivery, models.EventKitBuild, models.EventCleanup, models.EventDistribution:
		return true
	}
	return false
}

// Create creates an event for a need. The acting manager must own the need.
func Create(db *gorm.DB, managerID string, opts CreateOpts) (*models.Event, error) {
	if managerID == "" {
		return nil, fmt.Errorf("events: managerID is required")
	}
	if opts.NeedID == "" {
		return nil, fmt.Errorf("events: needID is required")
	}
	if !validEventType(opts.EventType) {
		return nil, fmt.Errorf("events: invalid event type %q", opts.EventType)
	}
	if opts.EventStart.IsZero() {
		return nil, fmt.Errorf("events: event start is required")
	}
	if opts.VolunteerSlots < 0 {
		return nil, fmt.Errorf("events: volunteer slots must be >= 0, got %d", opts.VolunteerSlots)
	}

	var need models.Need
	if err := db.First(&need, "id = ?", opts.NeedID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("events: need %s: %w", opts.NeedID, ErrNotFound)
		}
		return nil, fmt.Errorf("events: load need %s: %w", opts.NeedID, err)
	}
	if need.ManagerID != managerID {
		return nil, fmt.Errorf("events: need %s owned by %s: %w", need.ID, need.ManagerID, ErrNotOwner)
	}

	id, err := models.NewID("event")
	if err != nil {
		return nil, err
	}
	event := models.Event{
		ID:             id,
		NeedID:         opts.NeedID,
		EventType:      opts.EventType,
		EventStart:     opts.EventStart,
		EventEnd:       opts.EventEnd,
		Location:       opts.Location,
		VolunteerSlots: opts.VolunteerSlots,
		Notes:          opts.Notes,
	}
	if err := db.Create(&event).Error; err != nil {
		return nil, fmt.Errorf("events: create: %w", err)
	}
	return &event, nil
}

// Update edits an event owned by the acting manager.
func Update(db *gorm.DB, managerID, eventID string, opts UpdateOpts) (*models.Event, error) {
	event, err := loadOwned(db, managerID, eventID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if opts.EventType != nil {
		if !validEventType(*opts.EventType) {
			return nil, fmt.Errorf("events: invalid event type %q", *opts.EventType)
		}
		updates["event_type"] = *opts.EventType
	}
	if opts.EventStart != nil {
		updates["event_start"] = *opts.EventStart
	}
	if opts.EventEnd != nil {
		updates["event_end"] = *opts.EventEnd
	}
	if opts.Location != nil {
		updates["location"] = *opts.Location
	}
	if opts.VolunteerSlots != nil {
		slots := *opts.VolunteerSlots
		if slots != 0 && slots < event.ConfirmedCount {
			return nil, fmt.Errorf("events: cannot shrink slots to %d below %d confirmed", slots, event.ConfirmedCount)
		}
		updates["volunteer_slots"] = slots
	}
	if opts.Notes != nil {
		updates["notes"] = *opts.Notes
	}
	if len(updates) == 0 {
		return event, nil
	}

	if err := db.Model(event).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("events: update %s: %w", eventID, err)
	}
	return event, nil
}

// Delete removes an event and cascades to all of its signups.
func Delete(db *gorm.DB, managerID, eventID string) error {
	if _, err := loadOwned(db, managerID, eventID); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Signup{}, "event_id = ?", eventID).Error; err != nil {
			return fmt.Errorf("events: delete signups for %s: %w", eventID, err)
		}
		if err := tx.Delete(&models.Event{}, "id = ?", eventID).Error; err != nil {
			return fmt.Errorf("events: delete %s: %w", eventID, err)
		}
		return nil
	})
}

// List returns events, optionally limited to one need, soonest first.
func List(db *gorm.DB, needID string) ([]models.Event, error) {
	q := db.Order("event_start ASC, id ASC")
	if needID != "" {
		q = q.Where("need_id = ?", needID)
	}
	var events []models.Event
	if err := q.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("events: list: %w", err)
	}
	return events, nil
}

// Upcoming returns events starting within the window [now, now+lookahead).
func Upcoming(db *gorm.DB, now time.Time, lookahead time.Duration) ([]models.Event, error) {
	var events []models.Event
	if err := db.Where("event_start >= ? AND event_start < ?", now, now.Add(lookahead)).
		Order("event_start ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("events: upcoming: %w", err)
	}
	return events, nil
}

// loadOwned loads an event and verifies the acting manager owns its need.
func loadOwned(db *gorm.DB, managerID, eventID string) (*models.Event, error) {
	if managerID == "" {
		return nil, fmt.Errorf("events: managerID is required")
	}
	if eventID == "" {
		return nil, fmt.Errorf("events: eventID is required")
	}

	var event models.Event
	if err := db.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("events: event %s: %w", eventID, ErrNotFound)
		}
		return nil, fmt.Errorf("events: load event %s: %w", eventID, err)
	}

	var need models.Need
	if err := db.First(&need, "id = ?", event.NeedID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("events: need %s: %w", event.NeedID, ErrNotFound)
		}
		return nil, fmt.Errorf("events: load need %s: %w", event.NeedID, err)
	}
	if need.ManagerID != managerID {
		return nil, fmt.Errorf("events: need %s owned by %s: %w", need.ID, need.ManagerID, ErrNotOwner)
	}
	return &event, nil
}
