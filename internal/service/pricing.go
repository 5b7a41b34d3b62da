package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
)

var hundred = decimal.NewFromInt(100)

// Subtotal sums price * quantity over lines whose product is loaded.
func Subtotal(items []models.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if it.Product == nil {
			continue
		}
		sum = sum.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// ComputeDiscount returns the amount a promo takes off the item subtotal.
// free_shipping discounts shipping instead, so it yields zero here.
func ComputeDiscount(subtotal decimal.Decimal, promo *models.Promo) decimal.Decimal {
	if promo == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch promo.Type {
	case models.PromoFixed:
		d = promo.Amount
	case models.PromoPercentage:
		d = subtotal.Mul(promo.Amount).Div(hundred)
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}

// ItemsTotal is the discounted subtotal, never below zero.
func ItemsTotal(subtotal decimal.Decimal, promo *models.Promo) decimal.Decimal {
	return subtotal.Sub(ComputeDiscount(subtotal, promo)).Round(2)
}

// refreshTotal reprices an order from its current lines and stores the total.
func refreshTotal(ctx context.Context, tx *repo.GormRepo, order *models.Order) error {
	items, err := tx.OrderItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	order.Items = items
	order.Total = ItemsTotal(Subtotal(items), order.Promo)
	if err := tx.UpdateOrder(ctx, order.ID, map[string]any{"total": order.Total}); err != nil {
		return fmt.Errorf("update order total: %w", err)
	}
	return nil
}
