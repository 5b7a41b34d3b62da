package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/internal/repo"
)

var transitions = map[string][]string{
	models.StatusNew:        {models.StatusProcessing},
	models.StatusProcessing: {models.StatusShipped, models.StatusRefunded},
	models.StatusShipped:    {models.StatusCompleted, models.StatusRefunded},
	models.StatusCompleted:  {models.StatusRefunded},
}

func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

// SetStatus moves a checked out order along the fulfilment states.
func (s *OrderService) SetStatus(ctx context.Context, orderID uuid.UUID, title string) (*models.Order, error) {
	if !slices.Contains(models.StatusTitles, title) {
		return nil, fmt.Errorf("unknown status %q: %w", title, ErrValidation)
	}

	var out *models.Order
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			if repo.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		if !o.Ordered {
			return fmt.Errorf("order is not checked out: %w", ErrInvalidTransition)
		}
		if !CanTransition(o.Status.Title, title) {
			return fmt.Errorf("%s to %s: %w", o.Status.Title, title, ErrInvalidTransition)
		}

		st, err := tx.StatusByTitle(ctx, title)
		if err != nil {
			return fmt.Errorf("get status: %w", err)
		}
		if err := tx.UpdateOrder(ctx, o.ID, map[string]any{"status_id": st.ID}); err != nil {
			return err
		}
		out, err = tx.GetOrder(ctx, o.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("set status", err)
	}

	publish(ctx, s.Events, TopicOrder, out.UserID, newOrderEvent("order_status_changed", out))
	s.index(ctx, out)
	return out, nil
}
