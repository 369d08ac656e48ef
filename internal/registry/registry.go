// Package registry is the authoritative record of each need's capacity.
//
// IncrementFulfilled is the only writer of needs.quantity_fulfilled in the
// whole codebase. Both it and the event coordinator's confirmed counter run
// through the same guarded conditional UPDATE, so no interleaving of
// concurrent commits can push a counter past its cap.
package registry

import (
	"errors"
	"fmt"

	"github.com/ellsworth/pantry/internal/models"
	"gorm.io/gorm"
)

// ErrCapacityExceeded is returned when an increment would push the fulfilled
// counter above the need's target quantity. No partial update happens.
var ErrCapacityExceeded = errors.New("registry: capacity exceeded")

// ErrNotFound is returned when the need does not exist.
var ErrNotFound = errors.New("registry: need not found")

// GuardedIncrement adds delta to column on the single row matched by guard,
// only where the guard condition holds. The guard is evaluated inside the
// UPDATE itself, so the check-and-increment is one atomic statement. It
// reports whether a row was updated.
func GuardedIncrement(db *gorm.DB, model interface{}, column string, delta int, guard string, args ...interface{}) (bool, error) {
	result := db.Model(model).
		Where(guard, args...).
		Update(column, gorm.Expr(column+" + ?", delta))
	if result.Error != nil {
		return false, fmt.Errorf("registry: guarded increment %s: %w", column, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RemainingCapacity returns quantity - quantity_fulfilled for the need.
func RemainingCapacity(db *gorm.DB, needID string) (int, error) {
	if needID == "" {
		return 0, fmt.Errorf("registry: needID is required")
	}
	var need models.Need
	if err := db.Select("quantity", "quantity_fulfilled").First(&need, "id = ?", needID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("registry: need %s: %w", needID, ErrNotFound)
		}
		return 0, fmt.Errorf("registry: load need %s: %w", needID, err)
	}
	return need.Remaining(), nil
}

// IncrementFulfilled advances the need's fulfilled counter by delta. It
// rejects with ErrCapacityExceeded if the increment would exceed the target
// quantity, leaving the row untouched.
func IncrementFulfilled(db *gorm.DB, needID string, delta int) error {
	if needID == "" {
		return fmt.Errorf("registry: needID is required")
	}
	if delta <= 0 {
		return fmt.Errorf("registry: delta must be positive, got %d", delta)
	}

	updated, err := GuardedIncrement(db, &models.Need{}, "quantity_fulfilled", delta,
		"id = ? AND quantity_fulfilled + ? <= quantity", needID, delta)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	// Nothing matched: either the need is gone or the guard rejected.
	var count int64
	if err := db.Model(&models.Need{}).Where("id = ?", needID).Count(&count).Error; err != nil {
		return fmt.Errorf("registry: check need %s: %w", needID, err)
	}
	if count == 0 {
		return fmt.Errorf("registry: need %s: %w", needID, ErrNotFound)
	}
	return fmt.Errorf("registry: need %s delta %d: %w", needID, delta, ErrCapacityExceeded)
}
