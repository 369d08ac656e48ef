// Package checkout converts basket lines into permanent funding records.
//
// Each line commits in its own transaction: re-read remaining capacity,
// clamp, run the registry's guarded increment, append the funding record.
// The loop as a whole is not transactional; a mid-loop failure leaves prior
// lines committed exactly once and later lines untouched.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ellsworth/pantry/internal/models"
	"github.com/ellsworth/pantry/internal/notice"
	"github.com/ellsworth/pantry/internal/registry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrEmptyBasket is returned when the helper has nothing to check out.
var ErrEmptyBasket = errors.New("checkout: empty basket")

// CommittedLine reports a line that produced a funding record, possibly for
// fewer units than the basket asked for.
type CommittedLine struct {
	NeedID    string          `json:"need_id"`
	NeedTitle string          `json:"need_title"`
	Requested int             `json:"requested"`
	Committed int             `json:"committed"`
	Amount    decimal.Decimal `json:"amount"`
	RecordID  string          `json:"record_id"`
}

// DroppedLine reports a line that committed nothing: the need filled up (or
// vanished) between basket edit and checkout.
type DroppedLine struct {
	NeedID    string `json:"need_id"`
	NeedTitle string `json:"need_title"`
	Requested int    `json:"requested"`
	Reason    string `json:"reason"`
}

// Result summarizes a checkout. Reduced and dropped lines are surfaced so
// the caller can render an honest summary, never hidden.
type Result struct {
	Committed   []CommittedLine `json:"committed"`
	Dropped     []DroppedLine   `json:"dropped"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Checkout commits the helper's basket. Capacity conflicts clamp or drop
// individual lines; they never fail the checkout as a whole. The basket is
// cleared afterwards regardless of drops, since the result reflects what was
// actually committed.
func Checkout(db *gorm.DB, helperID string) (*Result, error) {
	if helperID == "" {
		return nil, fmt.Errorf("checkout: helperID is required")
	}

	var lines []models.BasketLine
	if err := db.Where("helper_id = ?", helperID).
		Order("created_at ASC, id ASC").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("checkout: load basket %s: %w", helperID, err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyBasket
	}

	result := &Result{TotalAmount: decimal.Zero}
	for _, line := range lines {
		committed, dropped, err := commitLine(db, helperID, line)
		if err != nil {
			return nil, err
		}
		if dropped != nil {
			result.Dropped = append(result.Dropped, *dropped)
			continue
		}
		result.Committed = append(result.Committed, *committed)
		result.TotalAmount = result.TotalAmount.Add(committed.Amount)
	}

	if err := db.Delete(&models.BasketLine{}, "helper_id = ?", helperID).Error; err != nil {
		return nil, fmt.Errorf("checkout: clear basket %s: %w", helperID, err)
	}

	if len(result.Dropped) > 0 {
		// Best effort; the checkout result already carries the report.
		recordDropNotice(db, helperID, result.Dropped)
	}
	return result, nil
}

// commitLine atomically commits a single basket line. A nil, nil, nil return
// cannot happen: exactly one of committed or dropped is set on success.
func commitLine(db *gorm.DB, helperID string, line models.BasketLine) (*CommittedLine, *DroppedLine, error) {
	var committed *CommittedLine
	var dropped *DroppedLine

	err := db.Transaction(func(tx *gorm.DB) error {
		var need models.Need
		if err := tx.First(&need, "id = ?", line.NeedID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				dropped = &DroppedLine{NeedID: line.NeedID, Requested: line.Quantity, Reason: "need no longer exists"}
				return nil
			}
			return fmt.Errorf("checkout: load need %s: %w", line.NeedID, err)
		}

		quantity := line.Quantity
		if remaining := need.Remaining(); quantity > remaining {
			quantity = remaining
		}
		if quantity <= 0 {
			dropped = &DroppedLine{NeedID: need.ID, NeedTitle: need.Title, Requested: line.Quantity, Reason: "fully funded"}
			return nil
		}

		if err := registry.IncrementFulfilled(tx, need.ID, quantity); err != nil {
			if errors.Is(err, registry.ErrCapacityExceeded) || errors.Is(err, registry.ErrNotFound) {
				// Lost the race after our read; drop the line.
				dropped = &DroppedLine{NeedID: need.ID, NeedTitle: need.Title, Requested: line.Quantity, Reason: "fully funded"}
				return nil
			}
			return err
		}

		id, err := models.NewID("fund")
		if err != nil {
			return err
		}
		record := models.FundingRecord{
			ID:       id,
			NeedID:   need.ID,
			HelperID: helperID,
			Quantity: quantity,
			Amount:   need.Cost.Mul(decimal.NewFromInt(int64(quantity))),
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("checkout: create funding record: %w", err)
		}

		committed = &CommittedLine{
			NeedID:    need.ID,
			NeedTitle: need.Title,
			Requested: line.Quantity,
			Committed: quantity,
			Amount:    record.Amount,
			RecordID:  record.ID,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return committed, dropped, nil
}

// recordDropNotice stores a drop report in the helper's notice feed. Best
// effort: the checkout result already carries the report, so a failed write
// here must not fail the checkout.
func recordDropNotice(db *gorm.DB, helperID string, drops []DroppedLine) {
	var b strings.Builder
	for _, d := range drops {
		title := d.NeedTitle
		if title == "" {
			title = d.NeedID
		}
		fmt.Fprintf(&b, "%s: %d requested, 0 committed (%s)\n", title, d.Requested, d.Reason)
	}
	_, _ = notice.Send(db, helperID, models.NoticeDrop, "Some basket lines could not be funded", b.String())
}
