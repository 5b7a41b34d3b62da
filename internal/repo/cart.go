package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AbbasPi/Maller-API/internal/models"
)

func (r *GormRepo) GetCart(ctx context.Context, userID uuid.UUID) ([]models.LineItem, error) {
	var items []models.LineItem
	err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND ordered = ?", userID, false).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// LockCart row-locks every unordered item of the user.
func (r *GormRepo) LockCart(ctx context.Context, userID uuid.UUID) ([]models.LineItem, error) {
	var items []models.LineItem
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND ordered = ?", userID, false).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart bumps the quantity of the user's unordered line for the product or
// creates it. The partial unique index turns a concurrent double insert into a
// duplicate key error, which the caller retries.
func (r *GormRepo) AddToCart(ctx context.Context, item *models.LineItem) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LineItem{}).
			Where("user_id = ? AND product_id = ? AND ordered = ?", item.UserID, item.ProductID, false).
			Update("quantity", gorm.Expr("quantity + ?", item.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("user_id = ? AND product_id = ? AND ordered = ?", item.UserID, item.ProductID, false).First(item).Error
		}

		item.Ordered = false
		item.OrderID = nil
		return tx.Omit(clause.Associations).Create(item).Error
	})
}

func (r *GormRepo) LockCartItem(ctx context.Context, userID, itemID uuid.UUID) (*models.LineItem, error) {
	var item models.LineItem
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ? AND ordered = ?", itemID, userID, false).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// LockUserItem finds any line item of the user, ordered or not.
func (r *GormRepo) LockUserItem(ctx context.Context, userID, itemID uuid.UUID) (*models.LineItem, error) {
	var item models.LineItem
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) AddItemQuantity(ctx context.Context, itemID uuid.UUID, delta int) error {
	return r.DB.WithContext(ctx).Model(&models.LineItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
}

func (r *GormRepo) GetItem(ctx context.Context, itemID uuid.UUID) (*models.LineItem, error) {
	var item models.LineItem
	if err := r.DB.WithContext(ctx).Preload("Product").First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.DB.WithContext(ctx).Delete(&models.LineItem{}, "id = ?", itemID).Error
}

// AttachItem moves a cart line into an order.
func (r *GormRepo) AttachItem(ctx context.Context, itemID, orderID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.LineItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"order_id": orderID, "ordered": true}).Error
}
