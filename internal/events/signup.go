package events

import (
	"errors"
	"fmt"

	"github.com/ellsworth/pantry/internal/models"
	"github.com/ellsworth/pantry/internal/notice"
	"github.com/ellsworth/pantry/internal/registry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadySignedUp is returned when the helper already has an active
// (confirmed or waitlist) signup for the event.
var ErrAlreadySignedUp = errors.New("events: already signed up")

// Slots summarizes an event's signup state. RemainingSlots is nil for
// unlimited events, else max(0, volunteer_slots - confirmedCount).
type Slots struct {
	ConfirmedCount int  `json:"confirmed_count"`
	WaitlistCount  int  `json:"waitlist_count"`
	RemainingSlots *int `json:"remaining_slots"`
}

// lockEvent loads the event row, holding a row lock until the transaction
// commits so signup and cancellation work on the same event is serialized.
// SQLite has no FOR UPDATE syntax; its single-writer lock serializes instead.
func lockEvent(tx *gorm.DB, eventID string) (*models.Event, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var event models.Event
	if err := q.First(&event, "id = ?", eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("events: event %s: %w", eventID, ErrNotFound)
		}
		return nil, fmt.Errorf("events: load event %s: %w", eventID, err)
	}
	return &event, nil
}

// Signup registers a helper for an event. The helper is confirmed if the
// event is unlimited or a slot is free, otherwise waitlisted. The returned
// status tells the caller which. Slot capacity is enforced by the same
// guarded-increment primitive as the need registry: the confirmed counter is
// advanced in one conditional UPDATE inside the transaction that inserts the
// signup row, so concurrent signups cannot over-confirm. The locked event
// row serializes the duplicate check against concurrent signups for the same
// pair; a cancelled signup leaves its row behind, so the pair invariant
// cannot be a schema constraint.
func Signup(db *gorm.DB, eventID, helperID string) (*models.Signup, error) {
	if eventID == "" {
		return nil, fmt.Errorf("events: eventID is required")
	}
	if helperID == "" {
		return nil, fmt.Errorf("events: helperID is required")
	}

	var signup models.Signup
	err := db.Transaction(func(tx *gorm.DB) error {
		event, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&models.Signup{}).
			Where("event_id = ? AND helper_id = ? AND status IN ?", eventID, helperID,
				[]string{models.SignupConfirmed, models.SignupWaitlist}).
			Count(&active).Error; err != nil {
			return fmt.Errorf("events: check signup: %w", err)
		}
		if active > 0 {
			return fmt.Errorf("events: helper %s on event %s: %w", helperID, eventID, ErrAlreadySignedUp)
		}

		status := models.SignupWaitlist
		if event.Unlimited() {
			// No cap to guard; count confirmed signups all the same.
			if _, err := registry.GuardedIncrement(tx, &models.Event{}, "confirmed_count", 1,
				"id = ?", eventID); err != nil {
				return err
			}
			status = models.SignupConfirmed
		} else {
			confirmed, err := registry.GuardedIncrement(tx, &models.Event{}, "confirmed_count", 1,
				"id = ? AND confirmed_count < volunteer_slots", eventID)
			if err != nil {
				return err
			}
			if confirmed {
				status = models.SignupConfirmed
			}
		}

		id, idErr := models.NewID("sgnup")
		if idErr != nil {
			return idErr
		}
		signup = models.Signup{ID: id, EventID: eventID, HelperID: helperID, Status: status}
		if err := tx.Create(&signup).Error; err != nil {
			return fmt.Errorf("events: create signup: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &signup, nil
}

// Cancel sets the helper's active signup to cancelled. If a confirmed
// signup on a finite-slot event is cancelled, the oldest waitlisted signup
// is promoted in its place. Promotion order is strictly signup creation
// time; fairness over priority.
func Cancel(db *gorm.DB, eventID, helperID string) error {
	if eventID == "" {
		return fmt.Errorf("events: eventID is required")
	}
	if helperID == "" {
		return fmt.Errorf("events: helperID is required")
	}

	var promotedHelper string
	err := db.Transaction(func(tx *gorm.DB) error {
		// Serialize against concurrent signups and cancellations on this
		// event, so two cancels cannot promote the same waitlisted signup.
		if _, err := lockEvent(tx, eventID); err != nil {
			return err
		}

		var signup models.Signup
		if err := tx.Where("event_id = ? AND helper_id = ? AND status IN ?", eventID, helperID,
			[]string{models.SignupConfirmed, models.SignupWaitlist}).
			First(&signup).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("events: signup for helper %s on event %s: %w", helperID, eventID, ErrNotFound)
			}
			return fmt.Errorf("events: load signup: %w", err)
		}

		if err := tx.Model(&models.Signup{}).Where("id = ?", signup.ID).
			Update("status", models.SignupCancelled).Error; err != nil {
			return fmt.Errorf("events: cancel signup %s: %w", signup.ID, err)
		}

		if signup.Status != models.SignupConfirmed {
			return nil
		}

		// A confirmed slot opened: hand it to the oldest waitlisted signup,
		// keeping the confirmed counter unchanged. With nobody waiting the
		// counter comes back down.
		var next models.Signup
		err := tx.Where("event_id = ? AND status = ?", eventID, models.SignupWaitlist).
			Order("created_at ASC, id ASC").First(&next).Error
		switch {
		case err == nil:
			if err := tx.Model(&models.Signup{}).Where("id = ?", next.ID).
				Update("status", models.SignupConfirmed).Error; err != nil {
				return fmt.Errorf("events: promote signup %s: %w", next.ID, err)
			}
			promotedHelper = next.HelperID
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if _, err := registry.GuardedIncrement(tx, &models.Event{}, "confirmed_count", -1,
				"id = ? AND confirmed_count > 0", eventID); err != nil {
				return err
			}
			return nil
		default:
			return fmt.Errorf("events: find waitlist: %w", err)
		}
	})
	if err != nil {
		return err
	}

	if promotedHelper != "" {
		// Best effort: the promotion is already durable, a lost notice
		// must not roll it back or fail the cancel.
		_, _ = notice.Send(db, promotedHelper, models.NoticePromotion,
			"You're confirmed", fmt.Sprintf("A slot opened up on event %s and you were promoted from the waitlist.", eventID))
	}
	return nil
}

// ListForEvent returns confirmed and waitlist counts plus remaining slots.
func ListForEvent(db *gorm.DB, eventID string) (*Slots, error) {
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

	counts := map[string]int{}
	rows := []struct {
		Status string
		N      int
	}{}
	if err := db.Model(&models.Signup{}).
		Select("status, COUNT(*) AS n").
		Where("event_id = ? AND status IN ?", eventID,
			[]string{models.SignupConfirmed, models.SignupWaitlist}).
		Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("events: count signups for %s: %w", eventID, err)
	}
	for _, r := range rows {
		counts[r.Status] = r.N
	}

	slots := &Slots{
		ConfirmedCount: counts[models.SignupConfirmed],
		WaitlistCount:  counts[models.SignupWaitlist],
	}
	if !event.Unlimited() {
		remaining := event.VolunteerSlots - slots.ConfirmedCount
		if remaining < 0 {
			remaining = 0
		}
		slots.RemainingSlots = &remaining
	}
	return slots, nil
}
