package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/metrics"
	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
	"github.com/AbbasPi/Maller-API/internal/util"
	"github.com/AbbasPi/Maller-API/pkg/logging"
)

const maxNoteLength = 255

// OrderIndex mirrors finalized orders into a search backend.
type OrderIndex interface {
	IndexOrder(ctx context.Context, order *models.Order) error
	SearchByRef(ctx context.Context, userID uuid.UUID, ref string) ([]uuid.UUID, error)
}

type OrderService struct {
	Repo     *repo.GormRepo
	Events   EventPublisher
	Index    OrderIndex
	Metrics  *metrics.Domain
	Promos   PromoEngine
	Shipping Shipping

	defaultStatusID uuid.UUID
}

// NewOrderService resolves the default order status once. It fails unless
// exactly one status is marked default.
func NewOrderService(ctx context.Context, r *repo.GormRepo) (*OrderService, error) {
	st, err := r.DefaultStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("default order status: %w", err)
	}
	return &OrderService{Repo: r, defaultStatusID: st.ID}, nil
}

// Reconcile folds the user's cart into their single open order, creating
// the order on first use. Lines for a product already on the order are
// merged into it and the cart line is dropped.
func (s *OrderService) Reconcile(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.LockCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		if len(cart) == 0 {
			return ErrEmptyCart
		}

		order, err := tx.LockOpenOrder(ctx, userID)
		switch {
		case repo.IsNotFound(err):
			order, err = s.openOrder(ctx, tx, userID)
			if err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("lock open order: %w", err)
		}

		byProduct := make(map[uuid.UUID]models.LineItem, len(order.Items))
		for _, it := range order.Items {
			byProduct[it.ProductID] = it
		}
		for _, it := range cart {
			if existing, ok := byProduct[it.ProductID]; ok {
				if err := tx.AddItemQuantity(ctx, existing.ID, it.Quantity); err != nil {
					return fmt.Errorf("merge item: %w", err)
				}
				if err := tx.DeleteItem(ctx, it.ID); err != nil {
					return fmt.Errorf("drop merged item: %w", err)
				}
				continue
			}
			if err := tx.AttachItem(ctx, it.ID, order.ID); err != nil {
				return fmt.Errorf("attach item: %w", err)
			}
			byProduct[it.ProductID] = it
		}

		if err := refreshTotal(ctx, tx, order); err != nil {
			return err
		}
		out, err = tx.GetUserOrder(ctx, userID, order.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("reconcile", err)
	}

	publish(ctx, s.Events, TopicOrder, userID, newOrderEvent("order_reconciled", out))
	return out, nil
}

func (s *OrderService) openOrder(ctx context.Context, tx *repo.GormRepo, userID uuid.UUID) (*models.Order, error) {
	ref, err := NewRefCode()
	if err != nil {
		return nil, fmt.Errorf("generate ref code: %w", err)
	}
	order := &models.Order{
		UserID:   userID,
		StatusID: s.defaultStatusID,
		RefCode:  ref,
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		if repo.IsDuplicate(err) {
			return nil, fmt.Errorf("open order already exists: %w", ErrConflict)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

type ListOrdersQuery struct {
	IncludeFinalized bool
	Page             int
	Size             int
}

// ListOrders returns the open order, or a page of all orders when
// IncludeFinalized is set.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, q ListOrdersQuery) ([]models.Order, error) {
	offset, limit := util.Page(q.Page, q.Size)
	orders, err := s.Repo.ListOrders(ctx, userID, q.IncludeFinalized, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.GetUserOrder(ctx, userID, orderID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// SearchByRef finds the user's finalized orders by reference code. The
// search index is consulted when configured, the database otherwise.
func (s *OrderService) SearchByRef(ctx context.Context, userID uuid.UUID, ref string) ([]models.Order, error) {
	if ref == "" {
		return nil, fmt.Errorf("ref required: %w", ErrValidation)
	}
	if s.Index == nil {
		orders, err := s.Repo.OrdersByRef(ctx, userID, ref)
		if err != nil {
			return nil, fmt.Errorf("search orders: %w", err)
		}
		return orders, nil
	}

	ids, err := s.Index.SearchByRef(ctx, userID, ref)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	orders := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.Repo.GetUserOrder(ctx, userID, id)
		if repo.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// mutateOpen runs fn on the user's order inside a transaction, refusing
// orders that were already checked out.
func (s *OrderService) mutateOpen(ctx context.Context, userID, orderID uuid.UUID, fn func(tx *repo.GormRepo, o *models.Order) error) (*models.Order, error) {
	var out *models.Order
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockUserOrder(ctx, userID, orderID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if o.Ordered {
			return ErrOrderFinalized
		}
		if err := fn(tx, o); err != nil {
			return err
		}
		out, err = tx.GetUserOrder(ctx, userID, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *OrderService) SetAddress(ctx context.Context, userID, orderID, addressID uuid.UUID) (*models.Order, error) {
	o, err := s.mutateOpen(ctx, userID, orderID, func(tx *repo.GormRepo, o *models.Order) error {
		addr, err := tx.AddressForUser(ctx, userID, addressID)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("address not found: %w", ErrNotFound)
			}
			return err
		}
		return tx.UpdateOrder(ctx, o.ID, map[string]any{"address_id": addr.ID})
	})
	if err != nil {
		return nil, wrapInternal("set address", err)
	}
	return o, nil
}

func (s *OrderService) SetNote(ctx context.Context, userID, orderID uuid.UUID, note string) (*models.Order, error) {
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, fmt.Errorf("note longer than %d characters: %w", maxNoteLength, ErrValidation)
	}
	o, err := s.mutateOpen(ctx, userID, orderID, func(tx *repo.GormRepo, o *models.Order) error {
		return tx.UpdateOrder(ctx, o.ID, map[string]any{"note": note})
	})
	if err != nil {
		return nil, wrapInternal("set note", err)
	}
	return o, nil
}

// ApplyPromo validates code for the user and attaches it to their open
// order. Usage is recorded in the same transaction.
func (s *OrderService) ApplyPromo(ctx context.Context, userID, orderID uuid.UUID, code string) (*models.Order, error) {
	if code == "" {
		return nil, fmt.Errorf("promo_code required: %w", ErrValidation)
	}

	o, err := s.mutateOpen(ctx, userID, orderID, func(tx *repo.GormRepo, o *models.Order) error {
		p, err := tx.PromoByCode(ctx, code)
		if err != nil {
			if repo.IsNotFound(err) {
				return fmt.Errorf("promo not found: %w", ErrNotFound)
			}
			return err
		}
		if err := s.Promos.Validate(ctx, tx, p, userID); err != nil {
			return err
		}
		if err := s.Promos.Redeem(ctx, tx, p, o); err != nil {
			return err
		}
		return refreshTotal(ctx, tx, o)
	})
	s.Metrics.Promo(resultLabel(err))
	if err != nil {
		logging.FromContext(ctx).Debug("promo_rejected", "code", code, "error", err)
		return nil, wrapInternal("apply promo", err)
	}

	publish(ctx, s.Events, TopicOrder, userID, newOrderEvent("promo_applied", o))
	return o, nil
}
