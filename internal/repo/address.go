package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/models"
)

// UserAddress returns the user's address book entry, oldest first.
func (r *GormRepo) UserAddress(ctx context.Context, userID uuid.UUID) (*models.Address, error) {
	var a models.Address
	err := r.DB.WithContext(ctx).
		Preload("City").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) AddressForUser(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var a models.Address
	err := r.DB.WithContext(ctx).
		Preload("City").
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}
