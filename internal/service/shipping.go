package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
)

// Shipping prices an order from the delivery map. Lookups key on the
// destination city; OriginCity narrows them to one source city when set.
type Shipping struct {
	OriginCity string
}

// Cost returns zero for free_shipping promos and for orders without an
// address. A priced order with no matching route fails with ErrNoRoute.
func (s Shipping) Cost(ctx context.Context, tx *repo.GormRepo, order *models.Order) (decimal.Decimal, error) {
	if order.Promo != nil && order.Promo.Type == models.PromoFreeShipping {
		return decimal.Zero, nil
	}
	if order.Address == nil {
		return decimal.Zero, nil
	}

	cost, ok, err := tx.DeliveryCost(ctx, order.Address.CityID, s.OriginCity)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lookup delivery map: %w", err)
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoRoute, order.Address.City.Name)
	}
	return cost.Round(2), nil
}
