package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AbbasPi/Maller-API/internal/models"
)

type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type ChangeQuantityResponse struct {
	ItemID   uuid.UUID `json:"item_id"`
	Deleted  bool      `json:"deleted"`
	Quantity int       `json:"quantity"`
}

type ApplyPromoRequest struct {
	OrderID   uuid.UUID `json:"order_id"`
	PromoCode string    `json:"promo_code"`
}

type SetAddressRequest struct {
	AddressID uuid.UUID `json:"address_id"`
}

type SetNoteRequest struct {
	Note string `json:"note"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type CartResponse struct {
	Items    []models.LineItem `json:"items"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}
