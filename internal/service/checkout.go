package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
	"github.com/AbbasPi/Maller-API/pkg/logging"
)

// Checkout finalizes the user's open order: it resolves the shipping
// address, checks every line against stock, prices the order and
// decrements stock. Any failure leaves stock and the order untouched.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.LockOpenOrder(ctx, userID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock open order: %w", err)
		}
		if len(order.Items) == 0 {
			return ErrEmptyCart
		}

		if order.Address == nil {
			addr, err := tx.UserAddress(ctx, userID)
			if err != nil {
				if repo.IsNotFound(err) {
					return ErrNoAddress
				}
				return fmt.Errorf("get address: %w", err)
			}
			order.Address = addr
			order.AddressID = &addr.ID
		}

		ids := make([]uuid.UUID, 0, len(order.Items))
		for _, it := range order.Items {
			ids = append(ids, it.ProductID)
		}
		products, err := tx.ProductsByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		// decrement in a stable order so concurrent checkouts lock rows alike
		lines := slices.Clone(order.Items)
		slices.SortFunc(lines, func(a, b models.LineItem) int {
			return slices.Compare(a.ProductID[:], b.ProductID[:])
		})
		for i := range lines {
			p, ok := products[lines[i].ProductID]
			if !ok || !p.IsActive || p.Quantity < lines[i].Quantity {
				return &OutOfStockError{ProductName: productName(lines[i], p, ok)}
			}
			lines[i].Product = &p
		}

		shipping, err := s.Shipping.Cost(ctx, tx, order)
		if err != nil {
			return err
		}
		total := ItemsTotal(Subtotal(lines), order.Promo)

		for _, it := range lines {
			ok, err := tx.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return &OutOfStockError{ProductName: it.Product.Name}
			}
		}

		err = tx.UpdateOrder(ctx, order.ID, map[string]any{
			"ordered":    true,
			"address_id": order.Address.ID,
			"total":      total,
			"shipping":   shipping,
		})
		if err != nil {
			return fmt.Errorf("finalize order: %w", err)
		}

		out, err = tx.GetUserOrder(ctx, userID, order.ID)
		return err
	})
	s.Metrics.Checkout(resultLabel(err))
	if err != nil {
		return nil, wrapInternal("checkout", err)
	}

	logging.FromContext(ctx).Info("order_checked_out", "order_id", out.ID, "ref_code", out.RefCode, "total", out.Total.StringFixed(2))
	publish(ctx, s.Events, TopicOrder, userID, newOrderEvent("order_checked_out", out))
	s.index(ctx, out)
	return out, nil
}

func productName(it models.LineItem, p models.Product, found bool) string {
	switch {
	case found:
		return p.Name
	case it.Product != nil:
		return it.Product.Name
	default:
		return it.ProductID.String()
	}
}

func (s *OrderService) index(ctx context.Context, o *models.Order) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexOrder(ctx, o); err != nil {
		logging.FromContext(ctx).Warn("index_order_failed", "order_id", o.ID, "error", err)
	}
}
