package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AbbasPi/Maller-API/internal/models"
)

func withOrderDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product").
		Preload("Status").
		Preload("Promo").
		Preload("Address.City")
}

// LockOpenOrder row-locks the user's single unordered order and loads its
// lines, promo, status and address.
func (r *GormRepo) LockOpenOrder(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := withOrderDetails(r.DB.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND ordered = ?", userID, false).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) LockUserOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := withOrderDetails(r.DB.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := withOrderDetails(r.DB.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetUserOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := withOrderDetails(r.DB.WithContext(ctx)).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := withOrderDetails(r.DB.WithContext(ctx)).First(&o, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrders returns the user's open order, or every order when
// includeFinalized is set. Newest first.
func (r *GormRepo) ListOrders(ctx context.Context, userID uuid.UUID, includeFinalized bool, limit, offset int) ([]models.Order, error) {
	q := withOrderDetails(r.DB.WithContext(ctx)).Where("user_id = ?", userID)
	if !includeFinalized {
		q = q.Where("ordered = ?", false)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *GormRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, fields map[string]any) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(fields).Error
}

// OrderItems reloads an order's lines with their products.
func (r *GormRepo) OrderItems(ctx context.Context, orderID uuid.UUID) ([]models.LineItem, error) {
	var items []models.LineItem
	err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// OrdersByRef matches finalized orders of the user by reference code prefix.
func (r *GormRepo) OrdersByRef(ctx context.Context, userID uuid.UUID, ref string) ([]models.Order, error) {
	var orders []models.Order
	err := withOrderDetails(r.DB.WithContext(ctx)).
		Where(`user_id = ? AND ordered = ? AND ref_code LIKE ? ESCAPE '\'`, userID, true, escapeLike(ref)+"%").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
