package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/models"
)

func (r *GormRepo) PromoByCode(ctx context.Context, code string) (*models.Promo, error) {
	var p models.Promo
	if err := r.DB.WithContext(ctx).First(&p, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) PromoUsed(ctx context.Context, userID, promoID uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.PromoUsage{}).
		Where("user_id = ? AND promo_id = ?", userID, promoID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreatePromoUsage fails with a duplicate key error when the user already
// consumed the promo.
func (r *GormRepo) CreatePromoUsage(ctx context.Context, u *models.PromoUsage) error {
	return r.DB.WithContext(ctx).Create(u).Error
}
