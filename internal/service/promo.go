package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
)

type PromoEngine struct {
	Now func() time.Time
}

func (e PromoEngine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CheckPromo applies the stateless rules in order: active flag, time window
// (inclusive on both ends), previous use, bound user.
func CheckPromo(p *models.Promo, userID uuid.UUID, used bool, now time.Time) error {
	if !p.IsActive {
		return ErrPromoInactive
	}
	if now.Before(p.ActiveFrom) || now.After(p.ActiveTill) {
		return ErrPromoExpired
	}
	if used {
		return ErrAlreadyUsed
	}
	if p.UserID != nil && *p.UserID != userID {
		return ErrNotEligible
	}
	return nil
}

// Validate checks promo eligibility for the user against stored usage.
func (e PromoEngine) Validate(ctx context.Context, tx *repo.GormRepo, p *models.Promo, userID uuid.UUID) error {
	used, err := tx.PromoUsed(ctx, userID, p.ID)
	if err != nil {
		return fmt.Errorf("check promo usage: %w", err)
	}
	return CheckPromo(p, userID, used, e.now())
}

// Redeem records the usage and attaches the promo to the order. The usage
// row's unique index rejects a concurrent second redemption.
func (e PromoEngine) Redeem(ctx context.Context, tx *repo.GormRepo, p *models.Promo, order *models.Order) error {
	if err := tx.CreatePromoUsage(ctx, &models.PromoUsage{UserID: order.UserID, PromoID: p.ID}); err != nil {
		if repo.IsDuplicate(err) {
			return ErrAlreadyUsed
		}
		return fmt.Errorf("create promo usage: %w", err)
	}
	if err := tx.UpdateOrder(ctx, order.ID, map[string]any{"promo_id": p.ID}); err != nil {
		return fmt.Errorf("attach promo: %w", err)
	}
	order.PromoID = &p.ID
	order.Promo = p
	return nil
}
