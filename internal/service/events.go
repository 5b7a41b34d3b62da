package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/models"
	"github.com/AbbasPi/Maller-API/pkg/logging"
)

const (
	TopicCart  = "cart_events"
	TopicOrder = "order_events"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type CartEvent struct {
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	ItemID    uuid.UUID `json:"item_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	At        time.Time `json:"at"`
}

type OrderEvent struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	OrderID  uuid.UUID `json:"order_id"`
	RefCode  string    `json:"ref_code"`
	Status   string    `json:"status,omitempty"`
	Promo    string    `json:"promo,omitempty"`
	Total    string    `json:"total"`
	Shipping string    `json:"shipping"`
	At       time.Time `json:"at"`
}

func newOrderEvent(typ string, o *models.Order) OrderEvent {
	ev := OrderEvent{
		Type:     typ,
		UserID:   o.UserID,
		OrderID:  o.ID,
		RefCode:  o.RefCode,
		Status:   o.Status.Title,
		Total:    o.Total.StringFixed(2),
		Shipping: o.Shipping.StringFixed(2),
		At:       time.Now().UTC(),
	}
	if o.Promo != nil {
		ev.Promo = o.Promo.Code
	}
	return ev
}

// publish runs after the transaction committed; a broker failure never
// undoes the operation.
func publish(ctx context.Context, p EventPublisher, topic string, key uuid.UUID, event any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, key.String(), event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "key", key, "error", err)
	}
}
