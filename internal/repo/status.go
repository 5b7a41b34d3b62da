package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/AbbasPi/Maller-API/internal/models"
)

var ErrDefaultStatus = errors.New("exactly one default order status required")

// SeedStatuses inserts missing status rows. NEW becomes the default only
// when the table starts empty.
func (r *GormRepo) SeedStatuses(ctx context.Context) error {
	return r.Transaction(ctx, func(tx *GormRepo) error {
		var existing []models.OrderStatus
		if err := tx.DB.Find(&existing).Error; err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, s := range existing {
			have[s.Title] = true
		}
		fresh := len(existing) == 0

		for _, title := range models.StatusTitles {
			if have[title] {
				continue
			}
			s := models.OrderStatus{Title: title, IsDefault: fresh && title == models.StatusNew}
			if err := tx.DB.Create(&s).Error; err != nil {
				return fmt.Errorf("seed status %s: %w", title, err)
			}
		}
		return nil
	})
}

// DefaultStatus returns the single is_default status or ErrDefaultStatus.
func (r *GormRepo) DefaultStatus(ctx context.Context) (*models.OrderStatus, error) {
	var rows []models.OrderStatus
	if err := r.DB.WithContext(ctx).Where("is_default = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("%w: found %d", ErrDefaultStatus, len(rows))
	}
	return &rows[0], nil
}

func (r *GormRepo) StatusByTitle(ctx context.Context, title string) (*models.OrderStatus, error) {
	var s models.OrderStatus
	if err := r.DB.WithContext(ctx).First(&s, "title = ?", title).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
