package db

import (
	"fmt"
	"time"

	"github.com/ellsworth/pantry/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedNeed describes one need to upsert during seeding.
type SeedNeed struct {
	ID           string
	Title        string
	Cost         string
	Quantity     int
	Priority     string
	NeededByDays int // days from now; 0 means no deadline
	IsPerishable bool
	BundleTag    string
}

// DefaultSeeds is a small starter set for local development.
var DefaultSeeds = []SeedNeed{
	{ID: "need-seed1", Title: "Canned soup", Cost: "2.50", Quantity: 200, Priority: models.PriorityNormal, BundleTag: "food"},
	{ID: "need-seed2", Title: "Fresh produce boxes", Cost: "18.00", Quantity: 40, Priority: models.PriorityHigh, NeededByDays: 5, IsPerishable: true, BundleTag: "food"},
	{ID: "need-seed3", Title: "Winter coats", Cost: "35.00", Quantity: 60, Priority: models.PriorityUrgent, NeededByDays: 14, BundleTag: "clothing"},
}

// SeedNeeds upserts need rows for the given manager. Existing rows are left
// untouched so fulfilled counters survive re-seeding.
func SeedNeeds(db *gorm.DB, managerID string, seeds []SeedNeed) error {
	if managerID == "" {
		return fmt.Errorf("db: managerID is required")
	}
	for _, s := range seeds {
		cost, err := decimal.NewFromString(s.Cost)
		if err != nil {
			return fmt.Errorf("db: seed %q cost: %w", s.ID, err)
		}
		need := models.Need{
			ID:           s.ID,
			ManagerID:    managerID,
			Title:        s.Title,
			Cost:         cost,
			Quantity:     s.Quantity,
			Priority:     s.Priority,
			IsPerishable: s.IsPerishable,
			BundleTag:    s.BundleTag,
		}
		if s.NeededByDays > 0 {
			d := time.Now().AddDate(0, 0, s.NeededByDays)
			need.NeededBy = &d
		}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&need)
		if result.Error != nil {
			return fmt.Errorf("db: seed need %q: %w", s.ID, result.Error)
		}
	}
	return nil
}
