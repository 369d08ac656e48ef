// Package needs is the metadata surface for needs: the manager-facing
// create/edit/delete boundary the fulfillment core reads from. The core
// never writes metadata, and nothing here touches quantity_fulfilled.
package needs

import (
	"errors"
	"fmt"
	"time"

	"github.com/ellsworth/pantry/internal/models"
	"github.com/ellsworth/pantry/internal/urgency"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the need does not exist.
var ErrNotFound = errors.New("needs: not found")

// ErrNotOwner is returned when a manager edits a need they do not own.
var ErrNotOwner = errors.New("needs: not the owning manager")

// CreateOpts holds parameters for posting a new need.
type CreateOpts struct {
	Title        string
	Description  string
	Cost         decimal.Decimal
	Quantity     int
	Priority     string
	NeededBy     *time.Time
	IsPerishable bool
	BundleTag    string
}

// UpdateOpts holds the editable metadata fields. Nil fields are unchanged.
// Quantity may only grow; it can never drop below the fulfilled counter.
type UpdateOpts struct {
	Title        *string
	Description  *string
	Cost         *decimal.Decimal
	Quantity     *int
	Priority     *string
	NeededBy     *time.Time
	IsPerishable *bool
	BundleTag    *string
}

// ListFilters holds optional listing filters.
type ListFilters struct {
	Priority   string
	BundleTag  string
	Perishable *bool
	OpenOnly   bool // exclude fully funded needs
}

func validPriority(p string) bool {
	switch p {
	case models.PriorityNormal, models.PriorityHigh, models.PriorityUrgent:
		return true
	}
	return false
}

// Create posts a new need for the acting manager.
func Create(db *gorm.DB, managerID string, opts CreateOpts) (*models.Need, error) {
	if managerID == "" {
		return nil, fmt.Errorf("needs: managerID is required")
	}
	if opts.Title == "" {
		return nil, fmt.Errorf("needs: title is required")
	}
	if opts.Quantity < 1 {
		return nil, fmt.Errorf("needs: quantity must be >= 1, got %d", opts.Quantity)
	}
	if opts.Cost.IsNegative() || opts.Cost.IsZero() {
		return nil, fmt.Errorf("needs: cost must be positive, got %s", opts.Cost)
	}
	if opts.Priority == "" {
		opts.Priority = models.PriorityNormal
	}
	if !validPriority(opts.Priority) {
		return nil, fmt.Errorf("needs: invalid priority %q", opts.Priority)
	}

	id, err := models.NewID("need")
	if err != nil {
		return nil, err
	}
	need := models.Need{
		ID:           id,
		ManagerID:    managerID,
		Title:        opts.Title,
		Description:  opts.Description,
		Cost:         opts.Cost,
		Quantity:     opts.Quantity,
		Priority:     opts.Priority,
		NeededBy:     opts.NeededBy,
		IsPerishable: opts.IsPerishable,
		BundleTag:    opts.BundleTag,
	}
	need.UrgencyScore = urgency.Score(&need, time.Now())
	if err := db.Create(&need).Error; err != nil {
		return nil, fmt.Errorf("needs: create: %w", err)
	}
	return &need, nil
}

// Get loads one need.
func Get(db *gorm.DB, needID string) (*models.Need, error) {
	if needID == "" {
		return nil, fmt.Errorf("needs: needID is required")
	}
	var need models.Need
	if err := db.First(&need, "id = ?", needID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("needs: need %s: %w", needID, ErrNotFound)
		}
		return nil, fmt.Errorf("needs: load %s: %w", needID, err)
	}
	return &need, nil
}

// List returns needs matching the filters, most urgent first. Ranking is
// computed live from the urgency function, never from the cache column.
func List(db *gorm.DB, filters ListFilters, now time.Time) ([]models.Need, error) {
	q := db.Model(&models.Need{})
	if filters.Priority != "" {
		q = q.Where("priority = ?", filters.Priority)
	}
	if filters.BundleTag != "" {
		q = q.Where("bundle_tag = ?", filters.BundleTag)
	}
	if filters.Perishable != nil {
		q = q.Where("is_perishable = ?", *filters.Perishable)
	}
	if filters.OpenOnly {
		q = q.Where("quantity_fulfilled < quantity")
	}

	var needs []models.Need
	if err := q.Find(&needs).Error; err != nil {
		return nil, fmt.Errorf("needs: list: %w", err)
	}
	urgency.Sort(needs, now)
	return needs, nil
}

// RecordRequest bumps the demand signal on a need.
func RecordRequest(db *gorm.DB, needID string) error {
	if needID == "" {
		return fmt.Errorf("needs: needID is required")
	}
	result := db.Model(&models.Need{}).Where("id = ?", needID).
		Update("request_count", gorm.Expr("request_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("needs: record request %s: %w", needID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("needs: need %s: %w", needID, ErrNotFound)
	}
	return nil
}

// Update edits metadata on a need owned by the acting manager.
func Update(db *gorm.DB, managerID, needID string, opts UpdateOpts) (*models.Need, error) {
	need, err := loadOwned(db, managerID, needID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if opts.Title != nil {
		if *opts.Title == "" {
			return nil, fmt.Errorf("needs: title is required")
		}
		updates["title"] = *opts.Title
	}
	if opts.Description != nil {
		updates["description"] = *opts.Description
	}
	if opts.Cost != nil {
		if opts.Cost.IsNegative() || opts.Cost.IsZero() {
			return nil, fmt.Errorf("needs: cost must be positive, got %s", opts.Cost)
		}
		updates["cost"] = *opts.Cost
	}
	if opts.Quantity != nil {
		if *opts.Quantity < need.QuantityFulfilled {
			return nil, fmt.Errorf("needs: cannot shrink quantity to %d below %d fulfilled",
				*opts.Quantity, need.QuantityFulfilled)
		}
		updates["quantity"] = *opts.Quantity
	}
	if opts.Priority != nil {
		if !validPriority(*opts.Priority) {
			return nil, fmt.Errorf("needs: invalid priority %q", *opts.Priority)
		}
		updates["priority"] = *opts.Priority
	}
	if opts.NeededBy != nil {
		updates["needed_by"] = *opts.NeededBy
	}
	if opts.IsPerishable != nil {
		updates["is_perishable"] = *opts.IsPerishable
	}
	if opts.BundleTag != nil {
		updates["bundle_tag"] = *opts.BundleTag
	}
	if len(updates) == 0 {
		return need, nil
	}

	if err := db.Model(need).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("needs: update %s: %w", needID, err)
	}
	return need, nil
}

// Delete administratively removes a need and cascades to its basket lines,
// funding records, events, and signups. This is the one path that discards
// ledger rows; it exists for the owning manager only.
func Delete(db *gorm.DB, managerID, needID string) error {
	if _, err := loadOwned(db, managerID, needID); err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var eventIDs []string
		if err := tx.Model(&models.Event{}).Where("need_id = ?", needID).
			Pluck("id", &eventIDs).Error; err != nil {
			return fmt.Errorf("needs: list events for %s: %w", needID, err)
		}
		if len(eventIDs) > 0 {
			if err := tx.Delete(&models.Signup{}, "event_id IN ?", eventIDs).Error; err != nil {
				return fmt.Errorf("needs: delete signups for %s: %w", needID, err)
			}
			if err := tx.Delete(&models.Event{}, "id IN ?", eventIDs).Error; err != nil {
				return fmt.Errorf("needs: delete events for %s: %w", needID, err)
			}
		}
		if err := tx.Delete(&models.BasketLine{}, "need_id = ?", needID).Error; err != nil {
			return fmt.Errorf("needs: delete basket lines for %s: %w", needID, err)
		}
		if err := tx.Delete(&models.FundingRecord{}, "need_id = ?", needID).Error; err != nil {
			return fmt.Errorf("needs: delete funding records for %s: %w", needID, err)
		}
		if err := tx.Delete(&models.Need{}, "id = ?", needID).Error; err != nil {
			return fmt.Errorf("needs: delete %s: %w", needID, err)
		}
		return nil
	})
}

func loadOwned(db *gorm.DB, managerID, needID string) (*models.Need, error) {
	if managerID == "" {
		return nil, fmt.Errorf("needs: managerID is required")
	}
	need, err := Get(db, needID)
	if err != nil {
		return nil, err
	}
	if need.ManagerID != managerID {
		return nil, fmt.Errorf("needs: need %s owned by %s: %w", need.ID, need.ManagerID, ErrNotOwner)
	}
	return need, nil
}
