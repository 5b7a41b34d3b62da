package repo

import (
	"context"
	"fmt"

	"github.com/AbbasPi/Maller-API/internal/models"
)

var tables = []any{
	&models.Product{},
	&models.City{},
	&models.Address{},
	&models.DeliveryMap{},
	&models.OrderStatus{},
	&models.Promo{},
	&models.PromoUsage{},
	&models.Order{},
	&models.LineItem{},
}

// Partial unique indexes: one open order per user and one cart line per
// user and product. Both postgres and sqlite accept this syntax.
var constraints = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_open_per_user ON orders (user_id) WHERE ordered = false`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_line_items_cart_product ON line_items (user_id, product_id) WHERE ordered = false`,
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	db := r.DB.WithContext(ctx)
	if err := db.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}
	return nil
}
