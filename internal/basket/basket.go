// Package basket manages per-helper intended funding quantities.
//
// Capacity checks here are advisory: they give early feedback at edit time
// but reserve nothing. The checkout engine re-checks authoritatively against
// the registry before anything is committed.
package basket

import (
	"errors"
	"fmt"

	"github.com/ellsworth/pantry/internal/models"
	"github.com/ellsworth/pantry/internal/registry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidQuantity is returned for quantities below 1.
var ErrInvalidQuantity = errors.New("basket: invalid quantity")

// ErrCapacityExceeded is returned when the requested quantity exceeds the
// need's current remaining capacity. Advisory only; remaining can shrink
// again before checkout.
var ErrCapacityExceeded = errors.New("basket: capacity exceeded")

// ErrNotFound is returned when the basket line does not exist.
var ErrNotFound = errors.New("basket: line not found")

// Line pairs a basket line with a snapshot of its need and the line total.
type Line struct {
	Line      models.BasketLine `json:"line"`
	Need      models.Need       `json:"need"`
	LineTotal decimal.Decimal   `json:"line_total"`
}

// Totals is the read-only join returned by ListWithTotals.
type Totals struct {
	Lines      []Line          `json:"lines"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// AddOrMerge adds quantity units of a need to the helper's basket. If a line
// already exists for the (helper, need) pair the quantities are merged. The
// merged quantity is checked against the need's remaining capacity, read
// fresh.
func AddOrMerge(db *gorm.DB, helperID, needID string, quantity int) (*models.BasketLine, error) {
	if helperID == "" {
		return nil, fmt.Errorf("basket: helperID is required")
	}
	if needID == "" {
		return nil, fmt.Errorf("basket: needID is required")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("basket: quantity %d: %w", quantity, ErrInvalidQuantity)
	}

	var line models.BasketLine
	err := db.Where("helper_id = ? AND need_id = ?", helperID, needID).First(&line).Error
	switch {
	case err == nil:
		merged := line.Quantity + quantity
		if err := checkCapacity(db, needID, merged); err != nil {
			return nil, err
		}
		if err := db.Model(&line).Update("quantity", merged).Error; err != nil {
			return nil, fmt.Errorf("basket: merge line %s: %w", line.ID, err)
		}
		line.Quantity = merged
		return &line, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := checkCapacity(db, needID, quantity); err != nil {
			return nil, err
		}
		id, err := models.NewID("line")
		if err != nil {
			return nil, err
		}
		line = models.BasketLine{ID: id, HelperID: helperID, NeedID: needID, Quantity: quantity}
		if err := db.Create(&line).Error; err != nil {
			return nil, fmt.Errorf("basket: create line: %w", err)
		}
		return &line, nil
	default:
		return nil, fmt.Errorf("basket: find line: %w", err)
	}
}

// UpdateQuantity replaces the line's quantity. The new quantity is checked
// against the need's current remaining capacity.
func UpdateQuantity(db *gorm.DB, lineID string, quantity int) (*models.BasketLine, error) {
	if lineID == "" {
		return nil, fmt.Errorf("basket: lineID is required")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("basket: quantity %d: %w", quantity, ErrInvalidQuantity)
	}

	var line models.BasketLine
	if err := db.First(&line, "id = ?", lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("basket: line %s: %w", lineID, ErrNotFound)
		}
		return nil, fmt.Errorf("basket: load line %s: %w", lineID, err)
	}

	if err := checkCapacity(db, line.NeedID, quantity); err != nil {
		return nil, err
	}
	if err := db.Model(&line).Update("quantity", quantity).Error; err != nil {
		return nil, fmt.Errorf("basket: update line %s: %w", lineID, err)
	}
	line.Quantity = quantity
	return &line, nil
}

// Remove deletes a basket line.
func Remove(db *gorm.DB, lineID string) error {
	if lineID == "" {
		return fmt.Errorf("basket: lineID is required")
	}
	result := db.Delete(&models.BasketLine{}, "id = ?", lineID)
	if result.Error != nil {
		return fmt.Errorf("basket: remove line %s: %w", lineID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("basket: line %s: %w", lineID, ErrNotFound)
	}
	return nil
}

// Clear deletes all of the helper's basket lines. Clearing an already-empty
// basket is a no-op, not an error.
func Clear(db *gorm.DB, helperID string) error {
	if helperID == "" {
		return fmt.Errorf("basket: helperID is required")
	}
	if err := db.Delete(&models.BasketLine{}, "helper_id = ?", helperID).Error; err != nil {
		return fmt.Errorf("basket: clear %s: %w", helperID, err)
	}
	return nil
}

// ListWithTotals returns the helper's basket joined with need snapshots and
// line totals. Lines whose need has been deleted since they were created are
// skipped, not an error.
func ListWithTotals(db *gorm.DB, helperID string) (*Totals, error) {
	if helperID == "" {
		return nil, fmt.Errorf("basket: helperID is required")
	}

	var lines []models.BasketLine
	if err := db.Where("helper_id = ?", helperID).
		Order("created_at ASC, id ASC").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("basket: list %s: %w", helperID, err)
	}

	totals := &Totals{GrandTotal: decimal.Zero}
	for _, l := range lines {
		var need models.Need
		if err := db.First(&need, "id = ?", l.NeedID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("basket: load need %s: %w", l.NeedID, err)
		}
		lineTotal := need.Cost.Mul(decimal.NewFromInt(int64(l.Quantity)))
		totals.Lines = append(totals.Lines, Line{Line: l, Need: need, LineTotal: lineTotal})
		totals.GrandTotal = totals.GrandTotal.Add(lineTotal)
	}
	return totals, nil
}

// checkCapacity rejects quantities above the need's remaining capacity.
func checkCapacity(db *gorm.DB, needID string, quantity int) error {
	remaining, err := registry.RemainingCapacity(db, needID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("basket: need %s: %w", needID, ErrNotFound)
		}
		return err
	}
	if quantity > remaining {
		return fmt.Errorf("basket: quantity %d exceeds remaining %d: %w", quantity, remaining, ErrCapacityExceeded)
	}
	return nil
}
