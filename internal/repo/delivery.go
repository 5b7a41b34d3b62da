package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AbbasPi/Maller-API/internal/models"
)

// DeliveryCost finds the cheapest route into destCityID. An empty
// originCity matches any source city. ok is false when no route exists.
func (r *GormRepo) DeliveryCost(ctx context.Context, destCityID uuid.UUID, originCity string) (cost decimal.Decimal, ok bool, err error) {
	q := r.DB.WithContext(ctx).Model(&models.DeliveryMap{}).
		Where("delivery_maps.destination_id = ?", destCityID)
	if originCity != "" {
		q = q.Joins("JOIN cities src ON src.id = delivery_maps.source_id").
			Where("LOWER(src.name) = LOWER(?)", originCity)
	}

	var rows []models.DeliveryMap
	if err := q.Order("delivery_maps.cost ASC").Limit(1).Find(&rows).Error; err != nil {
		return decimal.Zero, false, err
	}
	if len(rows) == 0 {
		return decimal.Zero, false, nil
	}
	return rows[0].Cost, true, nil
}
