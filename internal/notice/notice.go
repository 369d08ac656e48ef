// Package notice provides the per-helper notice feed.
package notice

import (
	"errors"
	"fmt"

	"github.com/ellsworth/pantry/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the notice does not exist or belongs to a
// different helper.
var ErrNotFound = errors.New("notice: not found")

// Send creates a new notice for a helper.
func Send(db *gorm.DB, helperID, kind, subject, body string) (*models.Notice, error) {
	if helperID == "" {
		return nil, fmt.Errorf("notice: helperID is required")
	}
	if kind == "" {
		return nil, fmt.Errorf("notice: kind is required")
	}

	n := models.Notice{
		HelperID: helperID,
		Kind:     kind,
		Subject:  subject,
		Body:     body,
	}
	if err := db.Create(&n).Error; err != nil {
		return nil, fmt.Errorf("notice: send: %w", err)
	}
	return &n, nil
}

// Inbox returns unacknowledged notices for a helper, oldest first.
func Inbox(db *gorm.DB, helperID string) ([]models.Notice, error) {
	if helperID == "" {
		return nil, fmt.Errorf("notice: helperID is required")
	}

	var notices []models.Notice
	if err := db.Where("helper_id = ? AND acknowledged = ?", helperID, false).
		Order("created_at ASC, id ASC").Find(&notices).Error; err != nil {
		return nil, fmt.Errorf("notice: inbox %s: %w", helperID, err)
	}
	return notices, nil
}

// Acknowledge marks a helper's notice as read. The update is scoped to the
// owning helper, so one helper cannot acknowledge another's notices.
func Acknowledge(db *gorm.DB, helperID string, noticeID uint) error {
	if helperID == "" {
		return fmt.Errorf("notice: helperID is required")
	}
	result := db.Model(&models.Notice{}).
		Where("id = ? AND helper_id = ?", noticeID, helperID).
		Update("acknowledged", true)
	if result.Error != nil {
		return fmt.Errorf("notice: acknowledge %d: %w", noticeID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notice: notice %d for helper %s: %w", noticeID, helperID, ErrNotFound)
	}
	return nil
}
