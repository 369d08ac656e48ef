// Package urgency computes display-ranking scores for needs.
//
// Score is a pure function of (need, now); nothing here touches storage
// except Recompute, which refreshes the display-only cache column.
package urgency

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ellsworth/pantry/internal/models"
	"gorm.io/gorm"
)

// Factor weights, heaviest first: priority tier dominates, then deadline
// proximity, then perishability, then demand.
const (
	priorityWeight  = 1000.0
	deadlineWeight  = 100.0
	perishableBoost = 50.0
	requestWeight   = 1.0
	deadlineHorizon = 30.0 // days; deadlines this far out score ~0 from proximity
)

// priorityTier maps the ordinal priority to 0 (normal), 1 (high), 2 (urgent).
func priorityTier(priority string) float64 {
	switch priority {
	case models.PriorityUrgent:
		return 2
	case models.PriorityHigh:
		return 1
	default:
		return 0
	}
}

// Score returns the urgency of a need at the given instant; higher is more
// urgent. It is deterministic and has no side effects.
func Score(need *models.Need, now time.Time) float64 {
	score := priorityTier(need.Priority) * priorityWeight

	if need.NeededBy != nil {
		days := need.NeededBy.Sub(now).Hours() / 24
		if days < 0 {
			days = 0 // overdue is maximally proximate
		}
		proximity := (deadlineHorizon - math.Min(days, deadlineHorizon)) / deadlineHorizon
		score += proximity * deadlineWeight
	}

	if need.IsPerishable {
		score += perishableBoost
	}

	// Demand signal: monotonic but flattening, so request spam cannot
	// outrank a priority tier.
	score += math.Log1p(float64(need.RequestCount)) * requestWeight

	return score
}

// Less orders needs for listing: higher score first, smaller id breaking
// ties so repeated listings are stable.
func Less(a, b *models.Need, now time.Time) bool {
	sa, sb := Score(a, now), Score(b, now)
	if sa != sb {
		return sa > sb
	}
	return a.ID < b.ID
}

// Sort orders needs in place, most urgent first.
func Sort(needs []models.Need, now time.Time) {
	sort.SliceStable(needs, func(i, j int) bool {
		return Less(&needs[i], &needs[j], now)
	})
}

// Recompute refreshes the urgency_score cache column for every need. The
// cache is display-only; listings always re-rank from live fields.
func Recompute(db *gorm.DB, now time.Time) (int, error) {
	var needs []models.Need
	if err := db.Find(&needs).Error; err != nil {
		return 0, fmt.Errorf("urgency: load needs: %w", err)
	}

	updated := 0
	for i := range needs {
		score := Score(&needs[i], now)
		if score == needs[i].UrgencyScore {
			continue
		}
		if err := db.Model(&models.Need{}).Where("id = ?", needs[i].ID).
			Update("urgency_score", score).Error; err != nil {
			return updated, fmt.Errorf("urgency: cache score for %s: %w", needs[i].ID, err)
		}
		updated++
	}
	return updated, nil
}
