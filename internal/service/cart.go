package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

type AddItemCommand struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

func (c AddItemCommand) Validate() error {
	if c.ProductID == uuid.Nil {
		return fmt.Errorf("product_id required: %w", ErrValidation)
	}
	if c.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

func (s *CartService) ViewCart(ctx context.Context, userID uuid.UUID) ([]models.LineItem, error) {
	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return items, nil
}

// AddItem adds qty units of an active catalog product to the user's cart,
// merging into the existing unordered line for that product.
func (s *CartService) AddItem(ctx context.Context, cmd AddItemCommand) (*models.LineItem, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	product, err := s.Repo.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, fmt.Errorf("product not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.IsActive {
		return nil, fmt.Errorf("product not found: %w", ErrNotFound)
	}

	item := &models.LineItem{UserID: cmd.UserID, ProductID: cmd.ProductID, Quantity: cmd.Quantity}
	err = s.Repo.AddToCart(ctx, item)
	if repo.IsDuplicate(err) {
		// lost the insert race; the row exists now
		item = &models.LineItem{UserID: cmd.UserID, ProductID: cmd.ProductID, Quantity: cmd.Quantity}
		err = s.Repo.AddToCart(ctx, item)
	}
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	item.Product = product

	publish(ctx, s.Events, TopicCart, cmd.UserID, cartEvent("item_added", item))
	return item, nil
}

// ChangeQuantity moves an unordered line by one unit. Reducing a line of one
// deletes it; deleted reports that case.
func (s *CartService) ChangeQuantity(ctx context.Context, userID, itemID uuid.UUID, delta int) (item *models.LineItem, deleted bool, err error) {
	if delta != 1 && delta != -1 {
		return nil, false, ErrInvalidQuantity
	}

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		locked, err := tx.LockCartItem(ctx, userID, itemID)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("item not found: %w", ErrNotFound)
			}
			return err
		}

		if delta < 0 && locked.Quantity <= 1 {
			if err := tx.DeleteItem(ctx, locked.ID); err != nil {
				return err
			}
			locked.Quantity = 0
			item, deleted = locked, true
			return nil
		}

		if err := tx.AddItemQuantity(ctx, locked.ID, delta); err != nil {
			return err
		}
		item, err = tx.GetItem(ctx, locked.ID)
		return err
	})
	if err != nil {
		return nil, false, wrapInternal("change quantity", err)
	}

	typ := "item_quantity_changed"
	if deleted {
		typ = "item_removed"
	}
	publish(ctx, s.Events, TopicCart, userID, cartEvent(typ, item))
	return item, deleted, nil
}

// RemoveItem deletes a cart line, or a line of the user's open order.
// Lines of checked out orders are reported as missing.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	var removed *models.LineItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		item, err := tx.LockUserItem(ctx, userID, itemID)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("item not found: %w", ErrNotFound)
			}
			return err
		}

		var order *models.Order
		if item.OrderID != nil {
			order, err = tx.LockUserOrder(ctx, userID, *item.OrderID)
			if err != nil {
				if repo.IsNotFound(err) {
					return fmt.Errorf("item not found: %w", ErrNotFound)
				}
				return err
			}
			if order.Ordered {
				return fmt.Errorf("item not found: %w", ErrNotFound)
			}
		}

		if err := tx.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		removed = item
		if order != nil {
			return refreshTotal(ctx, tx, order)
		}
		return nil
	})
	if err != nil {
		return wrapInternal("remove item", err)
	}

	publish(ctx, s.Events, TopicCart, userID, cartEvent("item_removed", removed))
	return nil
}

func cartEvent(typ string, item *models.LineItem) CartEvent {
	return CartEvent{
		Type:      typ,
		UserID:    item.UserID,
		ItemID:    item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		At:        time.Now().UTC(),
	}
}

// wrapInternal keeps domain errors as they are and labels storage failures.
func wrapInternal(op string, err error) error {
	var oos *OutOfStockError
	switch {
	case errors.As(err, &oos),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrNoRoute):
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
